/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logs.go
Description: Logs command implementation. Summarises the log directory and counts
levels and generation events across current and rotated log files.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/chainforge/pkg/logging"
	"github.com/spf13/cobra"
)

// RunLogs prints log directory statistics and analysis
func RunLogs(cmd *cobra.Command, args []string) error {
	printBanner("📜 Chainforge - Log Analysis")

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("no log directory configured, set --log-dir")
	}

	manager := logging.NewLogManager(cfg.Logging.Dir, cfg.Logging.MaxFiles, cfg.Logging.MaxSize, cfg.Logging.Compress)
	if err := manager.RotateLogs(); err != nil {
		return err
	}
	stats, err := manager.GetLogStats()
	if err != nil {
		return err
	}
	fmt.Printf("Files: %d (%d compressed), %d bytes\n", stats.TotalFiles, stats.CompressedFiles, stats.TotalSize)
	if stats.TotalFiles > 0 {
		fmt.Printf("Oldest: %s  Newest: %s\n\n", stats.OldestFile.Format("2006-01-02 15:04:05"), stats.NewestFile.Format("2006-01-02 15:04:05"))
	}

	analysis, err := logging.NewLogAnalyzer(cfg.Logging.Dir).AnalyzeLogs()
	if err != nil {
		return err
	}
	fmt.Println(analysis.GetLogSummary())
	return nil
}
