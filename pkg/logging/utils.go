/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Log management for chainforge. Provides size-based rotation with gzip
compression, retention cleanup, log directory statistics and a line-oriented analyzer
that counts levels and generation events.
*/

package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// LogManager provides log rotation and retention
type LogManager struct {
	logDir   string
	maxFiles int
	maxSize  int64
	compress bool
}

// NewLogManager creates a new log manager
func NewLogManager(logDir string, maxFiles int, maxSize int64, compress bool) *LogManager {
	return &LogManager{
		logDir:   logDir,
		maxFiles: maxFiles,
		maxSize:  maxSize,
		compress: compress,
	}
}

func (lm *LogManager) glob(suffix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(lm.logDir, FilePrefix+"*.log"+suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to glob log files: %w", err)
	}
	return files, nil
}

// RotateLogs rotates log files that exceed the size limit
func (lm *LogManager) RotateLogs() error {
	files, err := lm.glob("")
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := lm.rotateFile(file); err != nil {
			return fmt.Errorf("failed to rotate file %s: %w", file, err)
		}
	}
	return nil
}

// rotateFile rotates a single log file
func (lm *LogManager) rotateFile(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	if stat.Size() < lm.maxSize {
		return nil
	}

	rotatedPath := fmt.Sprintf("%s.%s", path, time.Now().Format("2006-01-02_15-04-05.000"))
	if err := os.Rename(path, rotatedPath); err != nil {
		return err
	}

	if lm.compress {
		return compressFile(rotatedPath)
	}
	return nil
}

// compressFile gzips a log file and removes the original
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	compressed, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer compressed.Close()

	gzipWriter := gzip.NewWriter(compressed)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// CleanupOldLogs removes the oldest log files beyond the retention limit
func (lm *LogManager) CleanupOldLogs() error {
	files, err := lm.glob("*")
	if err != nil {
		return err
	}
	if len(files) <= lm.maxFiles {
		return nil
	}

	modTimes := make(map[string]time.Time, len(files))
	for _, file := range files {
		if stat, err := os.Stat(file); err == nil {
			modTimes[file] = stat.ModTime()
		}
	}
	// Oldest first, names break ties since they carry timestamps
	slices.SortFunc(files, func(a, b string) int {
		if c := modTimes[a].Compare(modTimes[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	for _, file := range files[:len(files)-lm.maxFiles] {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("failed to remove file %s: %w", file, err)
		}
	}
	return nil
}

// GetLogStats returns statistics about log files
func (lm *LogManager) GetLogStats() (*LogStats, error) {
	files, err := lm.glob("*")
	if err != nil {
		return nil, err
	}

	stats := &LogStats{TotalFiles: len(files)}
	for _, file := range files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}

		stats.TotalSize += stat.Size()
		if stats.OldestFile.IsZero() || stat.ModTime().Before(stats.OldestFile) {
			stats.OldestFile = stat.ModTime()
		}
		if stat.ModTime().After(stats.NewestFile) {
			stats.NewestFile = stat.ModTime()
		}

		if strings.HasSuffix(file, ".gz") {
			stats.CompressedFiles++
		} else {
			stats.UncompressedFiles++
		}
	}

	return stats, nil
}

// LogStats holds statistics about log files
type LogStats struct {
	TotalFiles        int       `json:"total_files"`
	TotalSize         int64     `json:"total_size"`
	CompressedFiles   int       `json:"compressed_files"`
	UncompressedFiles int       `json:"uncompressed_files"`
	OldestFile        time.Time `json:"oldest_file"`
	NewestFile        time.Time `json:"newest_file"`
}

// LogAnalyzer counts levels and generation events in log files
type LogAnalyzer struct {
	logDir string
}

// NewLogAnalyzer creates a new log analyzer
func NewLogAnalyzer(logDir string) *LogAnalyzer {
	return &LogAnalyzer{logDir: logDir}
}

// AnalyzeLogs analyzes every log file in the directory, compressed ones included
func (la *LogAnalyzer) AnalyzeLogs() (*LogAnalysis, error) {
	files, err := filepath.Glob(filepath.Join(la.logDir, FilePrefix+"*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob log files: %w", err)
	}

	analysis := &LogAnalysis{StartTime: time.Now(), LogFiles: len(files)}
	for _, file := range files {
		if err := la.analyzeFile(file, analysis); err != nil {
			return nil, fmt.Errorf("failed to analyze file %s: %w", file, err)
		}
	}
	return analysis, nil
}

// analyzeFile analyzes a single log file
func (la *LogAnalyzer) analyzeFile(path string, analysis *LogAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		analysis.analyzeLine(scanner.Text())
	}
	return scanner.Err()
}

// analyzeLine analyzes a single log line
func (la *LogAnalysis) analyzeLine(line string) {
	la.TotalLines++

	switch {
	case strings.Contains(line, "DEBUG"), strings.Contains(line, `"level":"debug"`), strings.Contains(line, "level=debug"):
		la.DebugCount++
	case strings.Contains(line, "INFO"), strings.Contains(line, `"level":"info"`), strings.Contains(line, "level=info"):
		la.InfoCount++
	case strings.Contains(line, "WARN"), strings.Contains(line, `"level":"warning"`), strings.Contains(line, "level=warning"):
		la.WarningCount++
	case strings.Contains(line, "ERROR"), strings.Contains(line, `"level":"error"`), strings.Contains(line, "level=error"):
		la.ErrorCount++
	}

	switch {
	case strings.Contains(line, "Processing relational tree"):
		la.TreeCount++
	case strings.Contains(line, "Pairing found"):
		la.PairingCount++
	case strings.Contains(line, "Instantiation accepted"):
		la.InstantiationCount++
	case strings.Contains(line, "query failed"):
		la.QueryFailureCount++
	}
}

// LogAnalysis holds the results of log analysis
type LogAnalysis struct {
	StartTime          time.Time `json:"start_time"`
	LogFiles           int       `json:"log_files"`
	TotalLines         int64     `json:"total_lines"`
	DebugCount         int64     `json:"debug_count"`
	InfoCount          int64     `json:"info_count"`
	WarningCount       int64     `json:"warning_count"`
	ErrorCount         int64     `json:"error_count"`
	TreeCount          int64     `json:"tree_count"`
	PairingCount       int64     `json:"pairing_count"`
	InstantiationCount int64     `json:"instantiation_count"`
	QueryFailureCount  int64     `json:"query_failure_count"`
}

// GetLogSummary returns a summary of the log analysis
func (la *LogAnalysis) GetLogSummary() string {
	return fmt.Sprintf(
		"Log Analysis Summary:\n"+
			"  Files: %d\n"+
			"  Total Lines: %d\n"+
			"  Debug: %d\n"+
			"  Info: %d\n"+
			"  Warning: %d\n"+
			"  Error: %d\n"+
			"  Trees: %d\n"+
			"  Pairings: %d\n"+
			"  Instantiations: %d\n"+
			"  Failed Queries: %d",
		la.LogFiles, la.TotalLines, la.DebugCount, la.InfoCount,
		la.WarningCount, la.ErrorCount, la.TreeCount, la.PairingCount,
		la.InstantiationCount, la.QueryFailureCount,
	)
}
