/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sorter.go
Description: Candidate sorters for the beam search. Every sorter keeps only the terms
attested by all contributions of a collection; they differ in how the survivors are
ordered: lexicographically, randomly with an explicit generator, or by aggregated
distance to a target value.
*/

package ranking

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/search"
)

// intersection returns the terms present in every result
func intersection(results []core.TermSet) core.TermSet {
	if len(results) == 0 {
		return core.TermSet{}
	}
	common := make(core.TermSet, len(results[0]))
	for term := range results[0] {
		common[term] = struct{}{}
	}
	for _, result := range results[1:] {
		for term := range common {
			if !result.Has(term) {
				delete(common, term)
			}
		}
	}
	return common
}

// setCollection accumulates raw results for intersection-based sorters
type setCollection struct {
	results []core.TermSet
	order   func([]core.Term)
}

func (c *setCollection) Add(contribution search.Contribution) {
	c.results = append(c.results, contribution.Result)
}

func (c *setCollection) Sort() []core.Term {
	terms := intersection(c.results).Sorted()
	if c.order != nil {
		c.order(terms)
	}
	return terms
}

// IntersectionSorter orders surviving terms lexicographically
type IntersectionSorter struct{}

// NewCollection opens a collection
func (IntersectionSorter) NewCollection(search.Variant) search.Collection {
	return &setCollection{}
}

// RandomSorter shuffles surviving terms with its own generator
type RandomSorter struct {
	rng *rand.Rand
}

// NewRandomSorter creates a sorter drawing from rng
func NewRandomSorter(rng *rand.Rand) *RandomSorter {
	return &RandomSorter{rng: rng}
}

// NewCollection opens a collection
func (s *RandomSorter) NewCollection(search.Variant) search.Collection {
	return &setCollection{order: func(terms []core.Term) {
		s.rng.Shuffle(len(terms), func(i, j int) { terms[i], terms[j] = terms[j], terms[i] })
	}}
}

// DistanceFunc measures how far a candidate term is from the query context
// existing is the variable's current term, or empty
type DistanceFunc func(term core.Term, q search.Query, existing core.Term) float64

// Aggregator folds the per-contribution scores of a term
type Aggregator func(scores []float64) float64

// Sum adds the scores
func Sum(scores []float64) float64 {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total
}

// Mean averages the scores
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return Sum(scores) / float64(len(scores))
}

// Max returns the largest score
func Max(scores []float64) float64 {
	best := math.Inf(-1)
	for _, s := range scores {
		best = math.Max(best, s)
	}
	return best
}

// ParseAggregator resolves sum, mean or max
func ParseAggregator(name string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "max":
		return Max, nil
	}
	return nil, fmt.Errorf("unsupported distance aggregator %q", name)
}

// DistanceSorter ranks terms by how close their distance is to a target
type DistanceSorter struct {
	target    float64
	distance  DistanceFunc
	aggregate Aggregator
}

// NewDistanceSorter creates a distance sorter; a nil aggregator means Sum
func NewDistanceSorter(target float64, distance DistanceFunc, aggregate Aggregator) *DistanceSorter {
	if aggregate == nil {
		aggregate = Sum
	}
	return &DistanceSorter{target: target, distance: distance, aggregate: aggregate}
}

// NewCollection opens a collection
func (s *DistanceSorter) NewCollection(search.Variant) search.Collection {
	return &distanceCollection{sorter: s, scores: make(map[core.Term][]float64)}
}

type distanceCollection struct {
	sorter *DistanceSorter
	scores map[core.Term][]float64
	count  int
}

func (c *distanceCollection) Add(contribution search.Contribution) {
	c.count++
	for term := range contribution.Result {
		d := c.sorter.distance(term, contribution.Query, contribution.ExistingTerm)
		c.scores[term] = append(c.scores[term], math.Abs(c.sorter.target-d))
	}
}

func (c *distanceCollection) Sort() []core.Term {
	if c.count == 0 {
		return nil
	}
	queue := NewTermQueue(len(c.scores))
	for term, scores := range c.scores {
		// Terms missing from any contribution are dropped
		if len(scores) != c.count {
			continue
		}
		queue.Put(ScoredTerm{Term: term, Score: c.sorter.aggregate(scores)})
	}
	return queue.Drain()
}
