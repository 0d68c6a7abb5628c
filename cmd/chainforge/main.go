/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for chainforge. Provides the generation
pipeline commands (generic trees, relational trees, instantiation forests), term
database management and log analysis, with configuration from file, environment
and flags.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/chainforge/cmd/chainforge/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	seed       int64

	// Logging configuration
	logDir    string
	logFormat string

	// Resources configuration
	rootDir       string
	treeSize      int
	compress      bool
	ignoreReducer bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "chainforge",
		Short: "Chainforge - multi-hop reasoning chain generator",
		Long: `Chainforge composes binary relations into poly-tree shaped reasoning chains.
It enumerates generic tree shapes, binds relation types to them, and instantiates
the resulting relational trees with factual and anti-factual terms from a term
database to produce instantiation forests for question answering samples.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (console only when empty)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 314159, "Seed for every sampling stage")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root-dir", "data", "Root directory for resources")
	rootCmd.PersistentFlags().IntVar(&treeSize, "size", 2, "Number of templates per tree")
	rootCmd.PersistentFlags().BoolVar(&compress, "compress", false, "Use zstd-compressed JSONL files")
	rootCmd.PersistentFlags().BoolVar(&ignoreReducer, "ignore-reducer", false, "Do not load reductions (reasoning hops become unknown)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("logging.dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("general.seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("resources.root_dir", rootCmd.PersistentFlags().Lookup("root-dir"))
	viper.BindPFlag("resources.tree_size", rootCmd.PersistentFlags().Lookup("size"))
	viper.BindPFlag("resources.compress", rootCmd.PersistentFlags().Lookup("compress"))
	viper.BindPFlag("reducer.ignore", rootCmd.PersistentFlags().Lookup("ignore-reducer"))

	// Add generic command
	genericCmd := &cobra.Command{
		Use:   "generic",
		Short: "Enumerate generic tree shapes",
		Long: `Enumerate every case-link assignment over the relation ids of a tree size and
keep the assignments that describe a poly-tree. Trees are written as JSONL.`,
		RunE: commands.RunGeneric,
	}
	genericCmd.Flags().Float64("prob", 1.0, "Probability of keeping each generic tree")
	viper.BindPFlag("sampling.generic_prob", genericCmd.Flags().Lookup("prob"))
	rootCmd.AddCommand(genericCmd)

	// Add relational command
	relationalCmd := &cobra.Command{
		Use:   "relational",
		Short: "Bind relation types to generic trees",
		Long: `Bind every sequence of relation types to every generic tree, sub-sample the
results by maximum reasoning hops and drop trees isomorphic to an earlier one.`,
		RunE: commands.RunRelational,
	}
	rootCmd.AddCommand(relationalCmd)

	// Add forest command
	forestCmd := &cobra.Command{
		Use:   "forest",
		Short: "Instantiate relational trees for QA samples",
		Long: `Pair every relational tree with every QA sample, search the term database for
factual and anti-factual instantiations and write one instantiation forest per sample.`,
		RunE: commands.RunForest,
	}
	forestCmd.Flags().String("protocol", "AF_POST_HOC", "Anti-factual protocol (AF_IN_LINE, AF_POST_HOC)")
	forestCmd.Flags().Int("top-k", 0, "Candidates kept per variable (0 = all)")
	forestCmd.Flags().String("sorter", "intersection", "Candidate sorter (intersection, random, distance)")
	forestCmd.Flags().String("termdb", "", "Term database path (CSV directory or SQLite file)")
	forestCmd.Flags().String("termdb-kind", "csv", "Term database kind (csv, sqlite)")
	forestCmd.Flags().StringSlice("qa-ids", []string{}, "Only generate forests for these QA sample ids")
	forestCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	viper.BindPFlag("beam_search.protocol", forestCmd.Flags().Lookup("protocol"))
	viper.BindPFlag("beam_search.top_k", forestCmd.Flags().Lookup("top-k"))
	viper.BindPFlag("sorter.kind", forestCmd.Flags().Lookup("sorter"))
	viper.BindPFlag("termdb.path", forestCmd.Flags().Lookup("termdb"))
	viper.BindPFlag("termdb.kind", forestCmd.Flags().Lookup("termdb-kind"))
	viper.BindPFlag("forest.qa_ids", forestCmd.Flags().Lookup("qa-ids"))
	viper.BindPFlag("forest.metrics_file", forestCmd.Flags().Lookup("metrics-file"))
	rootCmd.AddCommand(forestCmd)

	// Add termdb commands
	termdbCmd := &cobra.Command{
		Use:   "termdb",
		Short: "Manage the term database",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import assertion CSVs into a SQLite term database",
		Long: `Load a directory of headerless source,target CSV files, one per relation, and
import them into a SQLite term database. File stems are mapped to relation types
through the relation map file, or used as relation types directly.`,
		RunE: commands.RunTermDBImport,
	}
	importCmd.Flags().String("csv-dir", "", "Directory of assertion CSV files (required)")
	importCmd.Flags().String("db", "", "SQLite database path (required)")
	importCmd.Flags().String("relation-map", "", "YAML file mapping file stems to relation types")
	importCmd.MarkFlagRequired("csv-dir")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Summarise a SQLite term database",
		RunE:  commands.RunTermDBInfo,
	}
	infoCmd.Flags().String("db", "", "SQLite database path (required)")

	// Both subcommands write termdb.path, so bind when they run
	importCmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("termdb.csv_dir", cmd.Flags().Lookup("csv-dir"))
		viper.BindPFlag("termdb.path", cmd.Flags().Lookup("db"))
		viper.BindPFlag("termdb.relation_map_file", cmd.Flags().Lookup("relation-map"))
	}
	infoCmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("termdb.path", cmd.Flags().Lookup("db"))
	}

	termdbCmd.AddCommand(importCmd, infoCmd)
	rootCmd.AddCommand(termdbCmd)

	// Add logs command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "logs",
		Short: "Analyse chainforge log files",
		Long: `Rotate oversized log files and report statistics and event counts across the
log directory, including compressed rotations.`,
		RunE: commands.RunLogs,
	})

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
