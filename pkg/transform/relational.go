/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: relational.go
Description: Relational transform. Binds one relation type to each template position
of a generic tree, optionally sub-samples trees by the deepest reasoning chain they
support, and enumerates every binding of a relation set over a collection of generic
trees while dropping isomorphic duplicates.
*/

package transform

import (
	"fmt"
	"iter"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/sirupsen/logrus"
)

// RelationalTransform turns generic trees into relational trees
type RelationalTransform struct {
	reducer     *algebra.Reducer
	hopSamplers map[int]*sampling.Sampler
	logger      logrus.FieldLogger
}

// NewRelationalTransform creates a transform
// A nil reducer disables hop-based sampling
func NewRelationalTransform(reducer *algebra.Reducer) *RelationalTransform {
	return &RelationalTransform{
		reducer:     reducer,
		hopSamplers: make(map[int]*sampling.Sampler),
		logger:      logrus.StandardLogger(),
	}
}

// SetLogger sets the logger
func (t *RelationalTransform) SetLogger(logger logrus.FieldLogger) {
	t.logger = logger
}

// SetHopSampler sets the sampler applied to trees whose maximum hop count is hops
// Trees without a sampler for their hop count are always kept
func (t *RelationalTransform) SetHopSampler(hops int, sampler *sampling.Sampler) {
	t.hopSamplers[hops] = sampler
}

// Bind assigns types[i] to the i-th template of tree
func Bind(tree *core.GenericTree, types []core.RelationType) (*core.RelationalTree, error) {
	if len(tree.Templates) != len(types) {
		return nil, fmt.Errorf("tree has %d templates but %d relations were given", len(tree.Templates), len(types))
	}
	result := &core.RelationalTree{Templates: make([]core.RelationalTemplate, len(types))}
	for i, template := range tree.Templates {
		result.Templates[i] = core.RelationalTemplate{
			Source: template.Source,
			Type:   types[i],
			Target: template.Target,
		}
	}
	return result, nil
}

// Apply binds types to tree and applies hop-based sampling
// Returns nil when the tree is sampled out
func (t *RelationalTransform) Apply(tree *core.GenericTree, types []core.RelationType) (*core.RelationalTree, error) {
	result, err := Bind(tree, types)
	if err != nil {
		return nil, err
	}
	if t.reducer == nil {
		return result, nil
	}

	maxHops, err := t.reducer.MaxHops(result)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reasoning hops for %s: %w", result, err)
	}
	if sampler, ok := t.hopSamplers[maxHops]; ok && !sampler.Keep() {
		t.logger.WithFields(logrus.Fields{"tree": result.String(), "max_hops": maxHops}).Debug("Tree sampled out")
		return nil, nil
	}
	return result, nil
}

// Generate binds every sequence of len(tree) relation types (with repetition)
// to every generic tree and yields the trees that are not isomorphic to an
// earlier tree using the same set of relation types
func (t *RelationalTransform) Generate(trees []*core.GenericTree, types []core.RelationType) iter.Seq2[*core.RelationalTree, error] {
	return func(yield func(*core.RelationalTree, error) bool) {
		if len(trees) == 0 || len(types) == 0 {
			return
		}
		size := len(trees[0].Templates)
		for _, tree := range trees {
			if len(tree.Templates) != size {
				yield(nil, fmt.Errorf("generic trees must share one size, got %d and %d", size, len(tree.Templates)))
				return
			}
		}

		dedup := NewDeduplicator()
		for binding := range product(types, size) {
			for _, tree := range trees {
				result, err := t.Apply(tree, binding)
				if err != nil {
					yield(nil, err)
					return
				}
				if result == nil || !dedup.Add(result) {
					continue
				}
				if !yield(result, nil) {
					return
				}
			}
		}
	}
}

// product yields every length-n sequence over items, last position fastest
func product[T any](items []T, n int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		digits := make([]int, n)
		for {
			current := make([]T, n)
			for i, d := range digits {
				current[i] = items[d]
			}
			if !yield(current) {
				return
			}
			k := n - 1
			for k >= 0 {
				digits[k]++
				if digits[k] < len(items) {
					break
				}
				digits[k] = 0
				k--
			}
			if k < 0 {
				return
			}
		}
	}
}
