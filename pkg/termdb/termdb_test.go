/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: termdb_test.go
Description: Tests for the term database stores, the CSV loader, the SQLite backend,
the instantiator's factual and anti-factual methods and the term formatters.
*/

package termdb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/search"
	"github.com/kleascm/chainforge/pkg/termdb"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *termdb.MemoryStore {
	store := termdb.NewMemoryStore()
	store.Add("IsA",
		termdb.Assertion{Source: "cat", Target: "feline"},
		termdb.Assertion{Source: "dog", Target: "canine"},
		termdb.Assertion{Source: "lion", Target: "feline"},
	)
	store.Add("AtLocation",
		termdb.Assertion{Source: "cat", Target: "house"},
		termdb.Assertion{Source: "fish", Target: "sea"},
	)
	return store
}

func query(source, rt, target string, queryID string, partner string) search.Query {
	return search.Query{
		Template:    core.RelationalTemplate{Source: core.VarID(source), Type: core.RelationType(rt), Target: core.VarID(target)},
		QueryID:     core.VarID(queryID),
		PartnerTerm: core.Term(partner),
	}
}

// TestMemoryStore tests side lookups and relation listing
func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := sampleStore()
	assert.Equal(t, 5, store.Size())

	types, err := store.RelationTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.RelationType{"AtLocation", "IsA"}, types)

	terms, err := store.Terms(ctx, "IsA", termdb.SideSource, "feline")
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"cat", "lion"}, terms.Sorted())

	terms, err = store.Terms(ctx, "IsA", termdb.SideTarget, "")
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"canine", "feline"}, terms.Sorted())

	terms, err = store.Terms(ctx, "Unknown", termdb.SideTarget, "")
	require.NoError(t, err)
	assert.Empty(t, terms)
}

// TestInstantiatorFactual tests both query directions
func TestInstantiatorFactual(t *testing.T) {
	ctx := context.Background()
	instantiator := termdb.NewInstantiator(sampleStore(), search.VariantFactual, termdb.MethodSameRelation)

	result, err := instantiator.Query(ctx, query("A", "IsA", "B", "B", "cat"))
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"feline"}, result.Sorted())

	result, err = instantiator.Query(ctx, query("A", "IsA", "B", "A", "feline"))
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"cat", "lion"}, result.Sorted())
}

// TestInstantiatorAntiFactual covers every candidate pool
func TestInstantiatorAntiFactual(t *testing.T) {
	ctx := context.Background()
	q := query("A", "IsA", "B", "A", "feline")

	tests := []struct {
		method termdb.Method
		want   []core.Term
	}{
		{termdb.MethodSameRelation, []core.Term{"dog"}},
		{termdb.MethodAllRelations, []core.Term{"dog", "fish"}},
		{termdb.MethodOtherRelations, []core.Term{"fish"}},
		{termdb.MethodSamePartner, nil},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			instantiator := termdb.NewInstantiator(sampleStore(), search.VariantAntiFactual, tt.method)
			result, err := instantiator.Query(ctx, q)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, result)
				return
			}
			assert.Equal(t, tt.want, result.Sorted())
		})
	}

	// Terms asserted against the partner under another relation are kept
	store := sampleStore()
	store.Add("AtLocation", termdb.Assertion{Source: "mouse", Target: "feline"})
	instantiator := termdb.NewInstantiator(store, search.VariantAntiFactual, termdb.MethodSamePartner)
	result, err := instantiator.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"mouse"}, result.Sorted())
}

// TestInstantiatorFormatter checks partner formatting before lookup
func TestInstantiatorFormatter(t *testing.T) {
	store := termdb.NewMemoryStore()
	store.Add("IsA", termdb.Assertion{Source: "/c/en/house_cat", Target: "/c/en/feline"})

	instantiator := termdb.NewInstantiator(store, search.VariantFactual, termdb.MethodSameRelation)
	instantiator.SetFormatter(termdb.PathFormatter{}, "en")

	result, err := instantiator.Query(context.Background(), query("A", "IsA", "B", "B", "House Cat"))
	require.NoError(t, err)
	assert.Equal(t, []core.Term{"/c/en/feline"}, result.Sorted())

	_, err = instantiator.Query(context.Background(), query("A", "IsA", "B", "B", "/c/fr/chat"))
	assert.ErrorIs(t, err, termdb.ErrLanguageMismatch)
}

// TestFormatters tests path and lowercase formatting
func TestFormatters(t *testing.T) {
	formatted, err := termdb.PathFormatter{}.Format("Ice Cream", "en")
	require.NoError(t, err)
	assert.Equal(t, core.Term("/c/en/ice_cream"), formatted)

	again, err := termdb.PathFormatter{}.Format(formatted, "en")
	require.NoError(t, err)
	assert.Equal(t, formatted, again)

	lower, err := termdb.LowerFormatter{}.Format("  Ice Cream ", "en")
	require.NoError(t, err)
	assert.Equal(t, core.Term("ice cream"), lower)

	_, err = termdb.ParseMethod("nearby")
	assert.Error(t, err)
	method, err := termdb.ParseMethod("other_relations")
	require.NoError(t, err)
	assert.Equal(t, termdb.MethodOtherRelations, method)
}

// TestLoadCSVDir tests directory loading with a relation map
func TestLoadCSVDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "is_a.csv"), []byte("cat,feline\ndog,canine\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "at_location.csv"), []byte("fish,sea\n"), 0644))

	logger, _ := test.NewNullLogger()
	relationMap := map[string]core.RelationType{"is_a": "IsA", "at_location": "AtLocation"}
	store, err := termdb.LoadCSVDir(dir, relationMap, logger)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Size())

	delete(relationMap, "at_location")
	_, err = termdb.LoadCSVDir(dir, relationMap, logger)
	assert.ErrorIs(t, err, termdb.ErrUnmappedRelation)
}

// TestSQLiteStore tests import and lookups against the SQLite backend
func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	store, err := termdb.OpenSQLiteStore(filepath.Join(t.TempDir(), "terms.db"), logger)
	require.NoError(t, err)
	defer store.Close()

	inserted, err := store.Import(ctx, sampleStore())
	require.NoError(t, err)
	assert.Equal(t, int64(5), inserted)

	// Re-importing adds nothing
	inserted, err = store.Import(ctx, sampleStore())
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)

	types, err := store.RelationTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.RelationType{"AtLocation", "IsA"}, types)

	assertions, err := store.Assertions(ctx, "AtLocation")
	require.NoError(t, err)
	assert.Equal(t, []termdb.Assertion{{Source: "cat", Target: "house"}, {Source: "fish", Target: "sea"}}, assertions)

	// Both backends answer instantiator queries identically
	q := query("A", "IsA", "B", "A", "feline")
	for _, method := range []termdb.Method{termdb.MethodSameRelation, termdb.MethodAllRelations, termdb.MethodOtherRelations} {
		fromMemory, err := termdb.NewInstantiator(sampleStore(), search.VariantAntiFactual, method).Query(ctx, q)
		require.NoError(t, err)
		fromSQLite, err := termdb.NewInstantiator(store, search.VariantAntiFactual, method).Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, fromMemory.Sorted(), fromSQLite.Sorted(), method.String())
	}
}
