/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for chainforge commands. Values come from defaults, an
optional config file, CHAINFORGE_ environment variables and bound command-line flags,
in increasing order of precedence. The result is validated before use.
*/

package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CHAINFORGE"

var validate = validator.New()

// Config is the complete chainforge configuration
type Config struct {
	Resources  ResourcesConfig  `mapstructure:"resources"`
	General    GeneralConfig    `mapstructure:"general"`
	Reducer    ReducerConfig    `mapstructure:"reducer"`
	BeamSearch BeamSearchConfig `mapstructure:"beam_search"`
	Sorter     SorterConfig     `mapstructure:"sorter"`
	Sampling   SamplingConfig   `mapstructure:"sampling"`
	TermDB     TermDBConfig     `mapstructure:"termdb"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ResourcesConfig locates input and output files
// Empty paths are derived from RootDir and TreeSize
type ResourcesConfig struct {
	RootDir             string `mapstructure:"root_dir" validate:"required"`
	TreeSize            int    `mapstructure:"tree_size" validate:"gte=1,lte=8"`
	GenericTreesFile    string `mapstructure:"generic_trees_file"`
	RelationsFile       string `mapstructure:"relations_file"`
	ReductionsFile      string `mapstructure:"reductions_file"`
	RelationalTreesFile string `mapstructure:"relational_trees_file"`
	QADataFile          string `mapstructure:"qa_data_file"`
	ForestDir           string `mapstructure:"forest_dir"`
	StatsDir            string `mapstructure:"stats_dir"`
	Compress            bool   `mapstructure:"compress"`
}

// GeneralConfig holds run-wide settings
type GeneralConfig struct {
	Seed     int64  `mapstructure:"seed"`
	Verbose  bool   `mapstructure:"verbose"`
	Language string `mapstructure:"language" validate:"required"`
}

// ReducerConfig controls reducer loading
type ReducerConfig struct {
	Ignore              bool `mapstructure:"ignore"`
	Strict              bool `mapstructure:"strict"`
	RequireSameRelation bool `mapstructure:"require_same_relation"`
}

// BeamSearchConfig controls the beam search
type BeamSearchConfig struct {
	Protocol string `mapstructure:"protocol" validate:"oneof=AF_IN_LINE AF_POST_HOC"`
	TopK     int    `mapstructure:"top_k" validate:"gte=0"`
}

// SorterConfig selects how candidate terms are ranked
type SorterConfig struct {
	Kind           string  `mapstructure:"kind" validate:"oneof=intersection random distance"`
	DistanceTarget float64 `mapstructure:"distance_target" validate:"gte=0,lte=1"`
	Aggregator     string  `mapstructure:"aggregator" validate:"oneof=sum mean max"`
}

// SamplingConfig holds keep probabilities for every sub-sampled stage
type SamplingConfig struct {
	GenericProb     float64         `mapstructure:"generic_prob" validate:"gte=0,lte=1"`
	PairingProb     float64         `mapstructure:"pairing_prob" validate:"gte=0,lte=1"`
	AntiFactualProb float64         `mapstructure:"anti_factual_prob" validate:"gte=0,lte=1"`
	RelationalProbs map[int]float64 `mapstructure:"relational_probs" validate:"dive,gte=0,lte=1"`
}

// TermDBConfig locates and configures the term database
type TermDBConfig struct {
	Kind            string `mapstructure:"kind" validate:"oneof=csv sqlite"`
	Path            string `mapstructure:"path"`
	RelationMapFile string `mapstructure:"relation_map_file"`
	Method          string `mapstructure:"method" validate:"oneof=SAME_RELATION ALL_RELATIONS OTHER_RELATIONS SAME_PARTNER"`
	Formatter       string `mapstructure:"formatter" validate:"oneof=path lower none"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format   string `mapstructure:"format" validate:"oneof=text json custom"`
	Dir      string `mapstructure:"dir"`
	MaxFiles int    `mapstructure:"max_files" validate:"gte=0"`
	MaxSize  int64  `mapstructure:"max_size" validate:"gte=0"`
	Compress bool   `mapstructure:"compress"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("resources.root_dir", "data")
	v.SetDefault("resources.tree_size", 2)
	v.SetDefault("resources.compress", false)

	v.SetDefault("general.seed", 314159)
	v.SetDefault("general.verbose", false)
	v.SetDefault("general.language", "en")

	v.SetDefault("reducer.ignore", false)
	v.SetDefault("reducer.strict", true)
	v.SetDefault("reducer.require_same_relation", false)

	v.SetDefault("beam_search.protocol", "AF_POST_HOC")
	v.SetDefault("beam_search.top_k", 0)

	v.SetDefault("sorter.kind", "intersection")
	v.SetDefault("sorter.distance_target", 0.0)
	v.SetDefault("sorter.aggregator", "sum")

	v.SetDefault("sampling.generic_prob", 1.0)
	v.SetDefault("sampling.pairing_prob", 1.0)
	v.SetDefault("sampling.anti_factual_prob", 1.0)

	v.SetDefault("termdb.kind", "csv")
	v.SetDefault("termdb.method", "SAME_RELATION")
	v.SetDefault("termdb.formatter", "none")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "custom")
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.max_files", 10)
	v.SetDefault("logging.max_size", 100*1024*1024)
	v.SetDefault("logging.compress", false)
}

// Load reads, derives and validates the configuration
// configFile may be empty
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Resources.derivePaths()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (r *ResourcesConfig) derivePaths() {
	size := strconv.Itoa(r.TreeSize) + ".jsonl"
	if r.Compress {
		size += ".zst"
	}
	defaults := []struct {
		path  *string
		value string
	}{
		{&r.GenericTreesFile, filepath.Join(r.RootDir, "trees", "generic_trees", size)},
		{&r.RelationsFile, filepath.Join(r.RootDir, "relations.csv")},
		{&r.ReductionsFile, filepath.Join(r.RootDir, "reductions.csv")},
		{&r.RelationalTreesFile, filepath.Join(r.RootDir, "trees", "relational_trees", size)},
		{&r.QADataFile, filepath.Join(r.RootDir, "qa.yaml")},
		{&r.ForestDir, filepath.Join(r.RootDir, "forest_"+strconv.Itoa(r.TreeSize))},
		{&r.StatsDir, filepath.Join(r.RootDir, "stats")},
	}
	for _, d := range defaults {
		if *d.path == "" {
			*d.path = d.value
		}
	}
}

// ForestFiles returns the family and data files for one QA sample
func (r *ResourcesConfig) ForestFiles(qaID string) (families, data string) {
	suffix := ".jsonl"
	if r.Compress {
		suffix += ".zst"
	}
	dir := filepath.Join(r.ForestDir, qaID)
	return filepath.Join(dir, "families"+suffix), filepath.Join(dir, "data"+suffix)
}
