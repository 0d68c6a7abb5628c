/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Writes generation statistics to a stats directory.
Handles timestamped and type-specific subdirectory naming.
Ensures directories exist and writes JSON files for easy analysis.
*/

package resources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteStatsJSON writes result under dir/kind with a timestamped file name
func WriteStatsJSON(dir, kind, name string, result interface{}) (string, error) {
	// Ensure stats directory and subdirectory exist
	statsDir := filepath.Join(dir, kind)
	if err := os.MkdirAll(statsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create stats directory: %w", err)
	}

	// Generate filename: 2024-06-11_01-30-00_forest_q1.json
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s_%s.json", timestamp, kind, name)
	filePath := filepath.Join(statsDir, filename)

	// Marshal result to JSON
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write stats file: %w", err)
	}

	return filePath, nil
}
