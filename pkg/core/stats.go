/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: In-memory statistics for forest generation. Counts processed trees,
pairings per reasoning hop, and instantiation attempts and successes per
(anti-factual variable count, reasoning hop) cell.
*/

package core

// GenerationStats accumulates forest generation counters
type GenerationStats struct {
	Trees          int                 `json:"trees"`
	Pairings       map[int]int         `json:"pairings"`               // hops -> count
	Attempts       map[int]map[int]int `json:"instantiation_attempts"` // af vars -> hops -> count
	Instantiations map[int]map[int]int `json:"instantiations"`         // af vars -> hops -> count
}

// NewGenerationStats creates empty statistics
func NewGenerationStats() *GenerationStats {
	return &GenerationStats{
		Pairings:       make(map[int]int),
		Attempts:       make(map[int]map[int]int),
		Instantiations: make(map[int]map[int]int),
	}
}

// Merge adds other's counters into s
func (s *GenerationStats) Merge(other *GenerationStats) {
	s.Trees += other.Trees
	for hops, n := range other.Pairings {
		s.Pairings[hops] += n
	}
	mergeGrid(s.Attempts, other.Attempts)
	mergeGrid(s.Instantiations, other.Instantiations)
}

func mergeGrid(dst, src map[int]map[int]int) {
	for af, row := range src {
		for hops, n := range row {
			incGrid(dst, af, hops, n)
		}
	}
}

func incGrid(grid map[int]map[int]int, af, hops, n int) {
	row, ok := grid[af]
	if !ok {
		row = make(map[int]int)
		grid[af] = row
	}
	row[hops] += n
}

// StatsReporter is a Reporter that fills a GenerationStats
type StatsReporter struct {
	Stats *GenerationStats
}

// NewStatsReporter creates a StatsReporter with empty statistics
func NewStatsReporter() *StatsReporter {
	return &StatsReporter{Stats: NewGenerationStats()}
}

func (r *StatsReporter) OnTree(*RelationalTree) {
	r.Stats.Trees++
}

func (r *StatsReporter) OnPairing(data *InstantiationData) {
	r.Stats.Pairings[data.ReasoningHops]++
}

func (r *StatsReporter) OnAttempt(antiFactualVars, hops int) {
	incGrid(r.Stats.Attempts, antiFactualVars, hops, 1)
}

func (r *StatsReporter) OnInstantiation(data *InstantiationData) {
	incGrid(r.Stats.Instantiations, len(data.AntiFactualIDs), data.ReasoningHops, 1)
}
