/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: relational.go
Description: Relational command implementation. Binds relation types to generic trees,
sub-samples them by reasoning hops, removes isomorphic duplicates and writes the
resulting relational trees as JSONL.
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

// RunRelational generates relational trees
func RunRelational(cmd *cobra.Command, args []string) error {
	printBanner("🌿 Chainforge - Generating Relational Trees")

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

	generic, err := resources.LoadJSONL[*core.GenericTree](cfg.Resources.GenericTreesFile)
	if err != nil {
		return fmt.Errorf("failed to load generic trees: %w", err)
	}
	log.WithFields(logrus.Fields{
		"file":  cfg.Resources.GenericTreesFile,
		"trees": len(generic),
	}).Info("Loaded generic trees")

	relational := transform.NewRelationalTransform(reducer)
	relational.SetLogger(log)

	// All hop samplers share one stream so results depend only on the seed
	rng := sampling.DeriveRand(cfg.General.Seed, sampling.StreamRelational)
	for hops, keep := range cfg.Sampling.RelationalProbs {
		hopSampler, err := sampling.NewSampler(keep, rng)
		if err != nil {
			return fmt.Errorf("invalid relational sampling for %d hops: %w", hops, err)
		}
		relational.SetHopSampler(hops, hopSampler)
	}

	start := time.Now()
	var generateErr error
	trees := func(yield func(*core.RelationalTree) bool) {
		for tree, err := range relational.Generate(generic, resources.RelationTypes(relations)) {
			if err != nil {
				generateErr = err
				return
			}
			logger.LogTree("relational", tree, nil)
			if !yield(tree) {
				return
			}
		}
	}

	count, err := resources.WriteJSONL(cfg.Resources.RelationalTreesFile, trees)
	if err != nil {
		return fmt.Errorf("failed to write relational trees: %w", err)
	}
	if generateErr != nil {
		return fmt.Errorf("failed to generate relational trees: %w", generateErr)
	}

	log.WithFields(logrus.Fields{
		"trees":    count,
		"duration": time.Since(start),
		"file":     cfg.Resources.RelationalTreesFile,
	}).Info("Relational trees generated")

	fmt.Printf("✅ Wrote %d relational trees to %s\n", count, cfg.Resources.RelationalTreesFile)
	return nil
}
