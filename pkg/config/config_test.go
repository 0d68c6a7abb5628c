/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for configuration defaults, file and environment overrides,
derived paths and validation.
*/

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/chainforge/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults tests the default configuration
func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "AF_POST_HOC", cfg.BeamSearch.Protocol)
	assert.Equal(t, 2, cfg.Resources.TreeSize)
	assert.True(t, cfg.Reducer.Strict)
	assert.Equal(t, 1.0, cfg.Sampling.PairingProb)
	assert.Equal(t, "en", cfg.General.Language)
	assert.Equal(t, filepath.Join("data", "trees", "generic_trees", "2.jsonl"), cfg.Resources.GenericTreesFile)

	families, data := cfg.Resources.ForestFiles("q1")
	assert.Equal(t, filepath.Join("data", "forest_2", "q1", "families.jsonl"), families)
	assert.Equal(t, filepath.Join("data", "forest_2", "q1", "data.jsonl"), data)
}

// TestLoadFile tests config file values and environment precedence
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainforge.yaml")
	content := `
resources:
  root_dir: out
  tree_size: 3
  compress: true
beam_search:
  protocol: AF_IN_LINE
  top_k: 5
sampling:
  relational_probs:
    1: 0.5
    2: 0.25
termdb:
  kind: sqlite
  path: out/terms.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CHAINFORGE_BEAM_SEARCH_TOP_K", "7")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "AF_IN_LINE", cfg.BeamSearch.Protocol)
	assert.Equal(t, 7, cfg.BeamSearch.TopK)
	assert.Equal(t, map[int]float64{1: 0.5, 2: 0.25}, cfg.Sampling.RelationalProbs)
	assert.Equal(t, "sqlite", cfg.TermDB.Kind)
	assert.Equal(t, filepath.Join("out", "trees", "relational_trees", "3.jsonl.zst"), cfg.Resources.RelationalTreesFile)
}

// TestLoadInvalid tests validation failures
func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"protocol":    "beam_search:\n  protocol: AF_SOMETIMES\n",
		"probability": "sampling:\n  pairing_prob: 1.5\n",
		"sorter":      "sorter:\n  kind: alphabetical\n",
		"hop prob":    "sampling:\n  relational_probs:\n    1: -0.1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chainforge.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := config.Load(viper.New(), path)
			assert.Error(t, err)
		})
	}

	_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
