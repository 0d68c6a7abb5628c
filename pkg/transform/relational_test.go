/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: relational_test.go
Description: Tests for relation binding, hop-based sampling, isomorphism and the
deduplicated enumeration of relational trees.
*/

package transform_test

import (
	"testing"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/kleascm/chainforge/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rtree(templates ...core.RelationalTemplate) *core.RelationalTree {
	return &core.RelationalTree{Templates: templates}
}

func rt(source, relation, target string) core.RelationalTemplate {
	return core.RelationalTemplate{Source: core.VarID(source), Type: core.RelationType(relation), Target: core.VarID(target)}
}

func genericPairs(t *testing.T) []*core.GenericTree {
	t.Helper()
	var trees []*core.GenericTree
	for tree, err := range transform.NewGenericTreeBuilder().GenerateGenericTrees(2, nil) {
		require.NoError(t, err)
		trees = append(trees, tree)
	}
	require.Len(t, trees, 4)
	return trees
}

// TestBind tests positional binding and the length check
func TestBind(t *testing.T) {
	tree := &core.GenericTree{Templates: []core.GenericTemplate{
		{Source: "V0", RelationID: "R0", Target: "V1"},
		{Source: "V1", RelationID: "R1", Target: "V3"},
	}}

	bound, err := transform.Bind(tree, []core.RelationType{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, rtree(rt("V0", "x", "V1"), rt("V1", "y", "V3")), bound)

	_, err = transform.Bind(tree, []core.RelationType{"x"})
	assert.Error(t, err)
}

// TestIsomorphic tests renaming, direction and label sensitivity
func TestIsomorphic(t *testing.T) {
	chain := rtree(rt("A", "x", "B"), rt("B", "y", "C"))

	assert.True(t, transform.Isomorphic(chain, rtree(rt("Q", "y", "R"), rt("P", "x", "Q"))))
	assert.False(t, transform.Isomorphic(chain, rtree(rt("A", "y", "B"), rt("B", "x", "C"))))
	assert.False(t, transform.Isomorphic(chain, rtree(rt("A", "x", "B"), rt("C", "y", "B"))))
	assert.False(t, transform.Isomorphic(chain, rtree(rt("A", "x", "B"))))

	converging := rtree(rt("A", "x", "B"), rt("C", "y", "B"))
	assert.True(t, transform.Isomorphic(converging, rtree(rt("C", "y", "B"), rt("A", "x", "B"))))
}

// TestDeduplicator tests grouping by relation type set
func TestDeduplicator(t *testing.T) {
	dedup := transform.NewDeduplicator()
	assert.True(t, dedup.Add(rtree(rt("A", "x", "B"), rt("B", "y", "C"))))
	assert.False(t, dedup.Add(rtree(rt("P", "x", "Q"), rt("Q", "y", "R"))))
	assert.True(t, dedup.Add(rtree(rt("A", "x", "B"), rt("B", "x", "C"))))
}

// TestGenerateRelationalTrees tests enumeration with deduplication
func TestGenerateRelationalTrees(t *testing.T) {
	trees := genericPairs(t)
	transformer := transform.NewRelationalTransform(nil)

	var results []*core.RelationalTree
	for tree, err := range transformer.Generate(trees, []core.RelationType{"x", "y"}) {
		require.NoError(t, err)
		require.NoError(t, tree.Validate())
		results = append(results, tree)
	}
	// Three shapes per single type, four ordered shapes for the mixed pair
	assert.Len(t, results, 10)

	for i := range results {
		for j := i + 1; j < len(results); j++ {
			assert.False(t, transform.Isomorphic(results[i], results[j]), "%s vs %s", results[i], results[j])
		}
	}
}

// TestApplyHopSampling tests that trees are sampled by their maximum hop count
func TestApplyHopSampling(t *testing.T) {
	reducer := algebra.NewReducer([]core.RelationType{"x", "y"})
	require.NoError(t, reducer.Register(
		algebra.CaseLink{Type1: "x", Type2: "y", Case: algebra.CaseOne},
		algebra.Reduction{Type: "x", Order: algebra.OrderMaintain},
		true,
	))
	drop, err := sampling.NewSampler(0, nil)
	require.NoError(t, err)

	transformer := transform.NewRelationalTransform(reducer)
	transformer.SetHopSampler(1, drop)

	chain := &core.GenericTree{Templates: []core.GenericTemplate{
		{Source: "V0", RelationID: "R0", Target: "V1"},
		{Source: "V1", RelationID: "R1", Target: "V3"},
	}}

	tree, err := transformer.Apply(chain, []core.RelationType{"x", "y"})
	require.NoError(t, err)
	assert.Nil(t, tree, "two-hop capable tree should be dropped")

	tree, err = transformer.Apply(chain, []core.RelationType{"y", "x"})
	require.NoError(t, err)
	assert.NotNil(t, tree)
}
