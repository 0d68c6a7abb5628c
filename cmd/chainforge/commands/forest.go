/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: forest.go
Description: Forest command implementation. Instantiates every relational tree for
every QA sample against the term database, writes one forest per sample together
with its statistics, and optionally exports Prometheus counters to a textfile.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/kleascm/chainforge/pkg/config"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/resources"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/kleascm/chainforge/pkg/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunForest generates instantiation forests
func RunForest(cmd *cobra.Command, args []string) error {
	printBanner("🌲 Chainforge - Generating Instantiation Forests")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	relations, reducer, err := loadReducer(cfg, log)
	if err != nil {
		return err
	}

	trees, err := resources.LoadJSONL[*core.RelationalTree](cfg.Resources.RelationalTreesFile)
	if err != nil {
		return fmt.Errorf("failed to load relational trees: %w", err)
	}
	samples, err := resources.LoadQADataYAML(cfg.Resources.QADataFile)
	if err != nil {
		return fmt.Errorf("failed to load QA data: %w", err)
	}
	if only := viper.GetStringSlice("forest.qa_ids"); len(only) > 0 {
		samples = slices.DeleteFunc(samples, func(qa *core.QAData) bool {
			return !slices.Contains(only, qa.ID)
		})
	}
	log.WithFields(logrus.Fields{
		"trees":      len(trees),
		"qa_samples": len(samples),
	}).Info("Loaded forest inputs")

	source, closeSource, err := openTermDB(cfg, relations, log)
	if err != nil {
		return fmt.Errorf("failed to open term database: %w", err)
	}
	defer closeAll(log, closeSource)

	beam, err := newBeamSearch(cfg, source, log)
	if err != nil {
		return fmt.Errorf("failed to setup beam search: %w", err)
	}

	pairingSampler, err := sampler(cfg, cfg.Sampling.PairingProb, sampling.StreamPairing)
	if err != nil {
		return fmt.Errorf("invalid pairing sampling: %w", err)
	}
	antiFactualSampler, err := sampler(cfg, cfg.Sampling.AntiFactualProb, sampling.StreamAntiFactual)
	if err != nil {
		return fmt.Errorf("invalid anti-factual sampling: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := core.NewPrometheusReporter(registry)

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	forestTransform := transform.NewForestTransform(reducer, beam)
	forestTransform.SetFormatter(termFormatter(cfg.TermDB.Formatter), cfg.General.Language)
	forestTransform.SetPairingSampler(pairingSampler)
	forestTransform.SetAntiFactualSampler(antiFactualSampler)
	forestTransform.SetLogger(log)

	total := core.NewGenerationStats()
	start := time.Now()
	for _, qa := range samples {
		stats, err := generateForest(ctx, cfg, log, forestTransform, trees, qa, core.NewLoggerReporter(log), metrics)
		if err != nil {
			return err
		}
		logger.LogStats(stats, logrus.Fields{"qa_id": qa.ID})
		total.Merge(stats)
		if err := logger.Rotate(); err != nil {
			log.Warnf("Log rotation failed: %v", err)
		}
	}

	if path := viper.GetString("forest.metrics_file"); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		fmt.Printf("📈 Metrics written to %s\n", path)
	}

	path, err := resources.WriteStatsJSON(cfg.Resources.StatsDir, "forest", "total", total)
	if err != nil {
		return err
	}

	fmt.Println()
	printStats(total)
	fmt.Printf("\n✨ Generated forests for %d QA samples in %v (stats: %s)\n", len(samples), time.Since(start).Round(time.Millisecond), path)
	return nil
}

// generateForest builds, writes and reports the forest of one QA sample
func generateForest(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, forestTransform *transform.ForestTransform, trees []*core.RelationalTree, qa *core.QAData, reporters ...core.Reporter) (*core.GenerationStats, error) {
	stats := core.NewStatsReporter()
	forestTransform.SetReporter(append(core.MultiReporter{stats}, reporters...))

	forest, err := forestTransform.Transform(ctx, trees, qa)
	if err != nil {
		return nil, fmt.Errorf("failed to generate forest for %s: %w", qa.ID, err)
	}

	families, data := cfg.Resources.ForestFiles(qa.ID)
	if err := resources.WriteForest(families, data, forest); err != nil {
		return nil, fmt.Errorf("failed to write forest for %s: %w", qa.ID, err)
	}
	if _, err := resources.WriteStatsJSON(cfg.Resources.StatsDir, "forest", qa.ID, stats.Stats); err != nil {
		return nil, err
	}

	log.WithFields(forest.GetStats()).WithField("qa_id", qa.ID).Info("Forest generated")
	fmt.Printf("  ✅ %s: %d instantiations in %d families\n", qa.ID, forest.Size(), len(forest.Families))
	return stats.Stats, nil
}

// printStats prints the generation tables
func printStats(stats *core.GenerationStats) {
	fmt.Println("📊 Generation Statistics")
	fmt.Printf("  Trees: %d\n", stats.Trees)

	fmt.Println("  Pairings by hops:")
	for _, hops := range sortedKeys(stats.Pairings) {
		fmt.Printf("    %3d: %d\n", hops, stats.Pairings[hops])
	}

	printGrid("Instantiation attempts", stats.Attempts)
	printGrid("Instantiations", stats.Instantiations)
}

// printGrid prints an (anti-factual vars x hops) table
func printGrid(title string, grid map[int]map[int]int) {
	fmt.Printf("  %s (af vars x hops):\n", title)
	for _, af := range sortedKeys(grid) {
		row := grid[af]
		fmt.Printf("    %3d:", af)
		for _, hops := range sortedKeys(row) {
			fmt.Printf(" [%d]=%d", hops, row[hops])
		}
		fmt.Println()
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
