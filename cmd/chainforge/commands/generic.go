/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: generic.go
Description: Generic command implementation. Enumerates every case-link assignment
for a tree size, keeps the poly-trees and writes them as JSONL.
*/

package commands

import (
	"fmt"
	"time"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/resources"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/kleascm/chainforge/pkg/transform"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RunGeneric generates generic trees
func RunGeneric(cmd *cobra.Command, args []string) error {
	printBanner("🌱 Chainforge - Generating Generic Trees")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	keep, err := sampler(cfg, cfg.Sampling.GenericProb, sampling.StreamGeneric)
	if err != nil {
		return fmt.Errorf("invalid generic sampling: %w", err)
	}

	builder := transform.NewGenericTreeBuilder()
	builder.SetLogger(log)

	size := cfg.Resources.TreeSize
	start := time.Now()
	var generateErr error
	trees := func(yield func(*core.GenericTree) bool) {
		for tree, err := range builder.GenerateGenericTrees(size, keep) {
			if err != nil {
				generateErr = err
				return
			}
			logger.LogTree("generic", tree, logrus.Fields{"size": size})
			if !yield(tree) {
				return
			}
		}
	}

	count, err := resources.WriteJSONL(cfg.Resources.GenericTreesFile, trees)
	if err != nil {
		return fmt.Errorf("failed to write generic trees: %w", err)
	}
	if generateErr != nil {
		return fmt.Errorf("failed to generate generic trees: %w", generateErr)
	}

	log.WithFields(logrus.Fields{
		"size":     size,
		"trees":    count,
		"duration": time.Since(start),
		"file":     cfg.Resources.GenericTreesFile,
	}).Info("Generic trees generated")

	fmt.Printf("✅ Wrote %d generic trees of size %d to %s\n", count, size, cfg.Resources.GenericTreesFile)
	return nil
}
