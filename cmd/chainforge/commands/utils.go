/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the chainforge commands. Provides configuration
loading, logging setup and the builders for reducers, term databases and sorters
used across all command implementations.
*/

package commands

import (
	"fmt"
	"strings"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/config"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/logging"
	"github.com/kleascm/chainforge/pkg/ranking"
	"github.com/kleascm/chainforge/pkg/resources"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/kleascm/chainforge/pkg/search"
	"github.com/kleascm/chainforge/pkg/termdb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from the config file, environment and bound flags
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SetupLogging configures the logging system
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.Logging.Level
	if cfg.General.Verbose {
		level = "debug"
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevel(level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		OutputDir: cfg.Logging.Dir,
		MaxFiles:  cfg.Logging.MaxFiles,
		MaxSize:   cfg.Logging.MaxSize,
		Timestamp: true,
		Colors:    cfg.Logging.Format == string(logging.LogFormatCustom) && cfg.Logging.Dir == "",
		Compress:  cfg.Logging.Compress,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// setup loads configuration and logging for a command
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// printBanner prints a command title
func printBanner(title string) {
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", len([]rune(title))+2))
	fmt.Println()
}

// loadReducer loads the relations and, unless ignored, the reducer
// A nil reducer means every other tree variable is an answer candidate
func loadReducer(cfg *config.Config, log logrus.FieldLogger) ([]core.Relation, *algebra.Reducer, error) {
	relations, err := resources.LoadRelationsCSV(cfg.Resources.RelationsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load relations: %w", err)
	}
	if cfg.Reducer.Ignore {
		log.Info("Reducer disabled, reasoning hops are unknown")
		return relations, nil, nil
	}

	reducer, err := resources.LoadReducerCSV(cfg.Resources.ReductionsFile, relations, cfg.Reducer.Strict)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reducer: %w", err)
	}
	reducer.SetLogger(log)
	reducer.SetRequireSameRelation(cfg.Reducer.RequireSameRelation)

	log.WithFields(logrus.Fields{
		"relations":  len(relations),
		"reductions": reducer.Size(),
	}).Info("Loaded reducer")
	return relations, reducer, nil
}

// relationMap loads the file-stem to relation type map
// Without a map file every relation type maps to itself
func relationMap(cfg *config.Config, relations []core.Relation) (map[string]core.RelationType, error) {
	if cfg.TermDB.RelationMapFile != "" {
		return resources.LoadRelationMapYAML(cfg.TermDB.RelationMapFile)
	}
	mapping := make(map[string]core.RelationType, len(relations))
	for _, rt := range resources.RelationTypes(relations) {
		mapping[string(rt)] = rt
	}
	return mapping, nil
}

// openTermDB opens the configured assertion source
// The returned function releases it
func openTermDB(cfg *config.Config, relations []core.Relation, log logrus.FieldLogger) (termdb.AssertionSource, func() error, error) {
	if cfg.TermDB.Path == "" {
		return nil, nil, fmt.Errorf("termdb.path is required")
	}

	switch cfg.TermDB.Kind {
	case "sqlite":
		store, err := termdb.OpenSQLiteStore(cfg.TermDB.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		mapping, err := relationMap(cfg, relations)
		if err != nil {
			return nil, nil, err
		}
		store, err := termdb.LoadCSVDir(cfg.TermDB.Path, mapping, log)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("assertions", store.Size()).Info("Loaded term database")
		return store, func() error { return nil }, nil
	}
}

// termFormatter returns the configured term formatter, or nil for none
func termFormatter(name string) search.TermFormatter {
	switch name {
	case "path":
		return termdb.PathFormatter{}
	case "lower":
		return termdb.LowerFormatter{}
	default:
		return nil
	}
}

// newSorter builds the configured candidate sorter
func newSorter(cfg *config.Config) (search.Sorter, error) {
	switch cfg.Sorter.Kind {
	case "random":
		return ranking.NewRandomSorter(sampling.DeriveRand(cfg.General.Seed, sampling.StreamSorter)), nil
	case "distance":
		aggregate, err := ranking.ParseAggregator(cfg.Sorter.Aggregator)
		if err != nil {
			return nil, err
		}
		return ranking.NewDistanceSorter(cfg.Sorter.DistanceTarget, ranking.BigramDistance, aggregate), nil
	default:
		return ranking.IntersectionSorter{}, nil
	}
}

// newBeamSearch wires term database instantiators, sorter and protocol
func newBeamSearch(cfg *config.Config, source termdb.AssertionSource, log logrus.FieldLogger) (*search.BeamSearch, error) {
	method, err := termdb.ParseMethod(cfg.TermDB.Method)
	if err != nil {
		return nil, err
	}
	protocol, err := search.ParseProtocol(cfg.BeamSearch.Protocol)
	if err != nil {
		return nil, err
	}
	sorter, err := newSorter(cfg)
	if err != nil {
		return nil, err
	}

	factual := termdb.NewInstantiator(source, search.VariantFactual, method)
	antiFactual := termdb.NewInstantiator(source, search.VariantAntiFactual, method)
	if formatter := termFormatter(cfg.TermDB.Formatter); formatter != nil {
		factual.SetFormatter(formatter, cfg.General.Language)
		antiFactual.SetFormatter(formatter, cfg.General.Language)
	}

	beam, err := search.NewBeamSearch(factual, antiFactual, sorter, protocol)
	if err != nil {
		return nil, err
	}
	beam.SetTopK(cfg.BeamSearch.TopK)
	beam.SetLogger(log)
	return beam, nil
}

// sampler builds a keep-probability sampler on its own random stream
func sampler(cfg *config.Config, keep float64, stream uint64) (*sampling.Sampler, error) {
	return sampling.NewSampler(keep, sampling.DeriveRand(cfg.General.Seed, stream))
}

// closeAll runs cleanup functions, logging failures
func closeAll(log logrus.FieldLogger, closers ...func() error) {
	for _, closer := range closers {
		if closer == nil {
			continue
		}
		if err := closer(); err != nil {
			log.Warnf("Cleanup failed: %v", err)
		}
	}
}
