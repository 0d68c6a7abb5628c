/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter_test.go
Description: Tests for generation reporters: statistics tables, fan-out, log events
and Prometheus counters.
*/

package core_test

import (
	"testing"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay sends one tree with a single pairing and two attempts, one of them accepted
func replay(reporter core.Reporter) {
	data := record().WithResult("id-1", []core.VarID{"B"}, record().Mapping)
	reporter.OnTree(chain())
	reporter.OnPairing(record())
	reporter.OnAttempt(0, 1)
	reporter.OnAttempt(1, 1)
	reporter.OnInstantiation(data)
}

// TestStatsReporter tests the generation tables and merging
func TestStatsReporter(t *testing.T) {
	reporter := core.NewStatsReporter()
	replay(reporter)

	stats := reporter.Stats
	assert.Equal(t, 1, stats.Trees)
	assert.Equal(t, map[int]int{1: 1}, stats.Pairings)
	assert.Equal(t, map[int]map[int]int{0: {1: 1}, 1: {1: 1}}, stats.Attempts)
	assert.Equal(t, map[int]map[int]int{1: {1: 1}}, stats.Instantiations)

	total := core.NewGenerationStats()
	total.Merge(stats)
	total.Merge(stats)
	assert.Equal(t, 2, total.Trees)
	assert.Equal(t, map[int]int{1: 2}, total.Pairings)
	assert.Equal(t, map[int]map[int]int{0: {1: 2}, 1: {1: 2}}, total.Attempts)
	assert.Equal(t, 1, stats.Trees, "merge must not modify its argument")
}

// TestMultiReporter tests that every reporter receives every event
func TestMultiReporter(t *testing.T) {
	first, second := core.NewStatsReporter(), core.NewStatsReporter()
	replay(core.MultiReporter{first, second})
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, 1, second.Stats.Trees)

	// An empty reporter is a valid no-op
	replay(core.MultiReporter{})
}

// TestLoggerReporter tests the logged events and their levels
func TestLoggerReporter(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	replay(core.NewLoggerReporter(logger))

	entries := hook.AllEntries()
	require.Len(t, entries, 5)
	assert.Equal(t, "Processing relational tree", entries[0].Message)
	assert.Equal(t, "Pairing found", entries[1].Message)
	assert.Equal(t, "Attempting instantiation", entries[2].Message)

	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, "Instantiation accepted", last.Message)
	assert.Equal(t, core.InstantiationID("id-1"), last.Data["id"])
	assert.Equal(t, 1, last.Data["af_vars"])
}

// TestPrometheusReporter tests the exported counters
func TestPrometheusReporter(t *testing.T) {
	registry := prometheus.NewRegistry()
	reporter := core.NewPrometheusReporter(registry)
	replay(reporter)
	replay(reporter)

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	metrics := []string{
		"chainforge_trees_processed_total",
		"chainforge_pairings_total",
		"chainforge_instantiation_attempts_total",
		"chainforge_instantiations_total",
	}
	count, err = testutil.GatherAndCount(registry, metrics[2])
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(registry, metrics...)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// A nil registerer still yields working collectors
	unregistered := core.NewPrometheusReporter(nil)
	assert.NotPanics(t, func() { replay(unregistered) })
}
