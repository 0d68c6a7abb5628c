/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: beam_test.go
Description: Tests for the beam search over small in-memory knowledge bases, covering
factual chains, distinctness, both anti-factual protocols and seed validation.
*/

package search_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/ranking"
	"github.com/kleascm/chainforge/pkg/search"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knowledge maps a relation type to its (source, target) assertions
type knowledge map[core.RelationType][][2]core.Term

func (k knowledge) factual() search.Instantiator {
	return search.InstantiatorFunc(func(_ context.Context, q search.Query) (core.TermSet, error) {
		result := core.TermSet{}
		for _, pair := range k[q.Template.Type] {
			if q.QueriesSource() && pair[1] == q.PartnerTerm {
				result[pair[0]] = struct{}{}
			}
			if !q.QueriesSource() && pair[0] == q.PartnerTerm {
				result[pair[1]] = struct{}{}
			}
		}
		return result, nil
	})
}

// antiFactual returns every endpoint of the relation on the queried side minus the factual answers
func (k knowledge) antiFactual() search.Instantiator {
	factual := k.factual()
	return search.InstantiatorFunc(func(ctx context.Context, q search.Query) (core.TermSet, error) {
		exclude, _ := factual.Query(ctx, q)
		result := core.TermSet{}
		for _, pair := range k[q.Template.Type] {
			candidate := pair[1]
			if q.QueriesSource() {
				candidate = pair[0]
			}
			if !exclude.Has(candidate) {
				result[candidate] = struct{}{}
			}
		}
		return result, nil
	})
}

func newSearch(t *testing.T, kb knowledge, protocol search.Protocol) *search.BeamSearch {
	t.Helper()
	beam, err := search.NewBeamSearch(kb.factual(), kb.antiFactual(), ranking.IntersectionSorter{}, protocol)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	beam.SetLogger(logger)
	return beam
}

func keys(mappings []core.Mapping) []string {
	result := make([]string, len(mappings))
	for i, mapping := range mappings {
		result[i] = mapping.Key()
	}
	sort.Strings(result)
	return result
}

func chainTree() *core.RelationalTree {
	return &core.RelationalTree{Templates: []core.RelationalTemplate{
		{Source: "A", Type: "r1", Target: "B"},
		{Source: "B", Type: "r2", Target: "C"},
	}}
}

var chainKnowledge = knowledge{
	"r1": {{"cat", "feline"}, {"dog", "canine"}},
	"r2": {{"feline", "mammal"}, {"canine", "mammal"}},
}

// TestBeamSearchChain checks the seeded chain scenario
func TestBeamSearchChain(t *testing.T) {
	beam := newSearch(t, chainKnowledge, search.ProtocolInLine)
	seed := core.Mapping{"A": "cat", "C": "mammal"}

	mappings, err := beam.Collect(context.Background(), chainTree(), nil, seed)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, core.Mapping{"A": "cat", "B": "feline", "C": "mammal"}, mappings[0])

	// The seed is not modified
	assert.Len(t, seed, 2)

	empty := knowledge{"r1": {}, "r2": chainKnowledge["r2"]}
	mappings, err = newSearch(t, empty, search.ProtocolInLine).Collect(context.Background(), chainTree(), nil, seed)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

// TestBeamSearchSingleSeed checks expansion through several frontier levels
func TestBeamSearchSingleSeed(t *testing.T) {
	beam := newSearch(t, chainKnowledge, search.ProtocolInLine)

	mappings, err := beam.Collect(context.Background(), chainTree(), nil, core.Mapping{"C": "mammal"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A=cat;B=feline;C=mammal;",
		"A=dog;B=canine;C=mammal;",
	}, keys(mappings))

	for _, mapping := range mappings {
		assert.True(t, mapping.Distinct())
		assert.Len(t, mapping, 3)
	}
}

// TestBeamSearchDistinct checks that repeated terms are never yielded
func TestBeamSearchDistinct(t *testing.T) {
	kb := knowledge{"r1": {{"cat", "cat"}, {"cat", "feline"}}}
	tree := &core.RelationalTree{Templates: []core.RelationalTemplate{{Source: "A", Type: "r1", Target: "B"}}}

	mappings, err := newSearch(t, kb, search.ProtocolInLine).Collect(context.Background(), tree, nil, core.Mapping{"A": "cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A=cat;B=feline;"}, keys(mappings))
}

// TestBeamSearchProtocolsAgreeWithoutAntiFactual checks both protocols on a factual search
func TestBeamSearchProtocolsAgreeWithoutAntiFactual(t *testing.T) {
	seed := core.Mapping{"C": "mammal"}

	inline, err := newSearch(t, chainKnowledge, search.ProtocolInLine).Collect(context.Background(), chainTree(), nil, seed)
	require.NoError(t, err)
	postHoc, err := newSearch(t, chainKnowledge, search.ProtocolPostHoc).Collect(context.Background(), chainTree(), nil, seed)
	require.NoError(t, err)

	assert.NotEmpty(t, inline)
	assert.Equal(t, keys(inline), keys(postHoc))
}

// TestBeamSearchAntiFactual checks anti-factual substitution under both protocols
func TestBeamSearchAntiFactual(t *testing.T) {
	tree := &core.RelationalTree{Templates: []core.RelationalTemplate{{Source: "A", Type: "r1", Target: "B"}}}
	seed := core.Mapping{"A": "cat"}

	for _, protocol := range []search.Protocol{search.ProtocolInLine, search.ProtocolPostHoc} {
		t.Run(protocol.String(), func(t *testing.T) {
			mappings, err := newSearch(t, chainKnowledge, protocol).Collect(context.Background(), tree, []core.VarID{"B"}, seed)
			require.NoError(t, err)
			assert.Equal(t, []string{"A=cat;B=canine;"}, keys(mappings))
		})
	}
}

// TestBeamSearchPostHocDistinct checks that anti-factual substitutes colliding
// with another variable's term are dropped
func TestBeamSearchPostHocDistinct(t *testing.T) {
	kb := knowledge{
		"r1": {{"cat", "feline"}, {"dog", "pet"}, {"dog", "hound"}},
		"r2": {{"cat", "pet"}},
	}
	tree := &core.RelationalTree{Templates: []core.RelationalTemplate{
		{Source: "A", Type: "r1", Target: "B"},
		{Source: "A", Type: "r2", Target: "C"},
	}}

	mappings, err := newSearch(t, kb, search.ProtocolPostHoc).Collect(context.Background(), tree, []core.VarID{"B"}, core.Mapping{"A": "cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A=cat;B=hound;C=pet;"}, keys(mappings))
}

// TestBeamSearchCancelled checks that a cancelled context stops the search
func TestBeamSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, protocol := range []search.Protocol{search.ProtocolInLine, search.ProtocolPostHoc} {
		t.Run(protocol.String(), func(t *testing.T) {
			_, err := newSearch(t, chainKnowledge, protocol).Collect(ctx, chainTree(), nil, core.Mapping{"A": "cat"})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

// TestBeamSearchTopK checks candidate truncation
func TestBeamSearchTopK(t *testing.T) {
	kb := knowledge{"r1": {{"cat", "kitty"}, {"cat", "feline"}}}
	tree := &core.RelationalTree{Templates: []core.RelationalTemplate{{Source: "A", Type: "r1", Target: "B"}}}
	beam := newSearch(t, kb, search.ProtocolInLine)

	mappings, err := beam.Collect(context.Background(), tree, nil, core.Mapping{"A": "cat"})
	require.NoError(t, err)
	assert.Len(t, mappings, 2)

	beam.SetTopK(1)
	mappings, err = beam.Collect(context.Background(), tree, nil, core.Mapping{"A": "cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A=cat;B=feline;"}, keys(mappings))
}

// TestBeamSearchInstantiatorFailure checks that query errors prune instead of failing
func TestBeamSearchInstantiatorFailure(t *testing.T) {
	failing := search.InstantiatorFunc(func(context.Context, search.Query) (core.TermSet, error) {
		return nil, errors.New("backend unavailable")
	})
	beam, err := search.NewBeamSearch(failing, failing, ranking.IntersectionSorter{}, search.ProtocolInLine)
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	beam.SetLogger(logger)

	mappings, err := beam.Collect(context.Background(), chainTree(), nil, core.Mapping{"A": "cat"})
	require.NoError(t, err)
	assert.Empty(t, mappings)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

// TestBeamSearchInvalidInput tests precondition failures
func TestBeamSearchInvalidInput(t *testing.T) {
	beam := newSearch(t, chainKnowledge, search.ProtocolInLine)
	ctx := context.Background()

	tests := []struct {
		name        string
		antiFactual []core.VarID
		seed        core.Mapping
	}{
		{"empty seed", nil, core.Mapping{}},
		{"unknown seed variable", nil, core.Mapping{"Z": "cat"}},
		{"repeated seed terms", nil, core.Mapping{"A": "cat", "C": "cat"}},
		{"unknown anti-factual variable", []core.VarID{"Z"}, core.Mapping{"A": "cat"}},
		{"seeded anti-factual variable", []core.VarID{"A"}, core.Mapping{"A": "cat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := beam.Collect(ctx, chainTree(), tt.antiFactual, tt.seed)
			assert.ErrorIs(t, err, search.ErrInvalidSeed)
		})
	}

	cyclic := &core.RelationalTree{Templates: []core.RelationalTemplate{
		{Source: "A", Type: "r1", Target: "B"},
		{Source: "B", Type: "r2", Target: "A"},
	}}
	_, err := beam.Collect(ctx, cyclic, nil, core.Mapping{"A": "cat"})
	assert.ErrorIs(t, err, core.ErrNotPolyTree)
}

// TestBeamSearchProtocol tests protocol parsing and construction
func TestBeamSearchProtocol(t *testing.T) {
	protocol, err := search.ParseProtocol("af_post_hoc")
	require.NoError(t, err)
	assert.Equal(t, search.ProtocolPostHoc, protocol)

	_, err = search.ParseProtocol("AF_LATER")
	assert.ErrorIs(t, err, search.ErrUnsupportedProtocol)

	_, err = search.NewBeamSearch(chainKnowledge.factual(), chainKnowledge.antiFactual(), ranking.IntersectionSorter{}, search.Protocol(7))
	assert.ErrorIs(t, err, search.ErrUnsupportedProtocol)

	_, err = search.NewBeamSearch(nil, chainKnowledge.antiFactual(), ranking.IntersectionSorter{}, search.ProtocolInLine)
	assert.Error(t, err)
}
