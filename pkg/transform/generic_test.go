/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: generic_test.go
Description: Tests for the generic tree builder and the case-link enumeration.
*/

package transform_test

import (
	"testing"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(r1, r2 string, c algebra.Case) algebra.GenericCaseLink {
	return algebra.GenericCaseLink{R1: core.RelationID(r1), R2: core.RelationID(r2), Case: c}
}

// TestBuildSingleLink tests that one non-zero link over two relations builds a tree
func TestBuildSingleLink(t *testing.T) {
	builder := transform.NewGenericTreeBuilder()

	tests := []struct {
		c    algebra.Case
		want []core.GenericTemplate
	}{
		{algebra.CaseOne, []core.GenericTemplate{{Source: "V0", RelationID: "R0", Target: "V1"}, {Source: "V1", RelationID: "R1", Target: "V3"}}},
		{algebra.CaseTwo, []core.GenericTemplate{{Source: "V0", RelationID: "R0", Target: "V1"}, {Source: "V2", RelationID: "R1", Target: "V1"}}},
		{algebra.CaseThree, []core.GenericTemplate{{Source: "V0", RelationID: "R0", Target: "V1"}, {Source: "V0", RelationID: "R1", Target: "V3"}}},
		{algebra.CaseFour, []core.GenericTemplate{{Source: "V0", RelationID: "R0", Target: "V1"}, {Source: "V2", RelationID: "R1", Target: "V0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.c.String(), func(t *testing.T) {
			tree, err := builder.Build([]algebra.GenericCaseLink{link("R0", "R1", tt.c)})
			require.NoError(t, err)
			require.NotNil(t, tree)
			assert.Equal(t, tt.want, tree.Templates)
		})
	}
}

// TestBuildRejectsDisconnected tests that a lone ZERO link is not a tree
func TestBuildRejectsDisconnected(t *testing.T) {
	tree, err := transform.NewGenericTreeBuilder().Build([]algebra.GenericCaseLink{link("R0", "R1", algebra.CaseZero)})
	require.NoError(t, err)
	assert.Nil(t, tree)
}

// TestBuildRejectsSecondParent tests that linking one endpoint twice yields no tree
func TestBuildRejectsSecondParent(t *testing.T) {
	tree, err := transform.NewGenericTreeBuilder().Build([]algebra.GenericCaseLink{
		link("R0", "R1", algebra.CaseOne),
		link("R2", "R1", algebra.CaseThree),
	})
	require.NoError(t, err)
	assert.Nil(t, tree)
}

// TestBuildRejectsCycle tests that merged endpoints forming parallel edges are rejected
func TestBuildRejectsCycle(t *testing.T) {
	tree, err := transform.NewGenericTreeBuilder().Build([]algebra.GenericCaseLink{
		link("R0", "R1", algebra.CaseOne),
		link("R0", "R2", algebra.CaseThree),
		link("R1", "R2", algebra.CaseFour),
	})
	require.NoError(t, err)
	assert.Nil(t, tree)
}

// TestBuildRejectsParentCycle tests that a parent loop is rejected instead of looping
func TestBuildRejectsParentCycle(t *testing.T) {
	tree, err := transform.NewGenericTreeBuilder().Build([]algebra.GenericCaseLink{
		link("R0", "R1", algebra.CaseOne),
		link("R1", "R0", algebra.CaseFour),
	})
	require.NoError(t, err)
	assert.Nil(t, tree)
}

// TestBuildUnsupportedCase tests that an invalid case value is an error
func TestBuildUnsupportedCase(t *testing.T) {
	_, err := transform.NewGenericTreeBuilder().Build([]algebra.GenericCaseLink{link("R0", "R1", algebra.Case(7))})
	assert.ErrorIs(t, err, algebra.ErrUnsupportedCase)
}

// TestEnumerateCaseLinks tests the size of the enumeration and its ordering
func TestEnumerateCaseLinks(t *testing.T) {
	var lists [][]algebra.GenericCaseLink
	for links := range transform.EnumerateCaseLinks(3) {
		lists = append(lists, links)
	}
	require.Len(t, lists, 125)
	assert.Equal(t, []algebra.GenericCaseLink{
		link("R0", "R1", algebra.CaseZero),
		link("R0", "R2", algebra.CaseZero),
		link("R1", "R2", algebra.CaseZero),
	}, lists[0])
	assert.Equal(t, algebra.CaseOne, lists[1][2].Case)
	assert.Equal(t, algebra.CaseFour, lists[124][0].Case)
}

// TestGenerateGenericTrees checks that every generated tree is a poly-tree
func TestGenerateGenericTrees(t *testing.T) {
	builder := transform.NewGenericTreeBuilder()

	var pairs []*core.GenericTree
	for tree, err := range builder.GenerateGenericTrees(2, nil) {
		require.NoError(t, err)
		pairs = append(pairs, tree)
	}
	assert.Len(t, pairs, 4)

	count := 0
	for tree, err := range builder.GenerateGenericTrees(3, nil) {
		require.NoError(t, err)
		require.Len(t, tree.Templates, 3)
		edges := make([][2]core.VarID, len(tree.Templates))
		for i, template := range tree.Templates {
			edges[i] = [2]core.VarID{template.Source, template.Target}
		}
		assert.True(t, core.IsPolyTree(edges))
		count++
	}
	assert.Positive(t, count)

	var single []*core.GenericTree
	for tree, err := range builder.GenerateGenericTrees(1, nil) {
		require.NoError(t, err)
		single = append(single, tree)
	}
	require.Len(t, single, 1)
	assert.Equal(t, []core.RelationID{"R0"}, single[0].RelationIDs())
}
