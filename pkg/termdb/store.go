/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Assertion storage for term databases. An assertion is a (source, target)
pair under a relation type. Stores answer side lookups: every term on one side of the
assertions whose other side equals a partner term.
*/

package termdb

import (
	"context"
	"sort"

	"github.com/kleascm/chainforge/pkg/core"
)

// Assertion is a single (source, target) fact of some relation type
type Assertion struct {
	Source core.Term
	Target core.Term
}

// Side selects a column of the assertion table
type Side int

const (
	SideSource Side = iota
	SideTarget
)

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideSource {
		return SideTarget
	}
	return SideSource
}

// String returns the column name
func (s Side) String() string {
	if s == SideSource {
		return "source"
	}
	return "target"
}

// AssertionSource is a read-only view of a term database
// Unknown relation types behave as empty relations
type AssertionSource interface {
	// RelationTypes returns the stored relation types in sorted order
	RelationTypes(ctx context.Context) ([]core.RelationType, error)
	// Assertions returns every assertion of a relation type
	Assertions(ctx context.Context, rt core.RelationType) ([]Assertion, error)
	// Terms returns the terms on side of the assertions of rt whose opposite side
	// equals partner; an empty partner matches every assertion
	Terms(ctx context.Context, rt core.RelationType, side Side, partner core.Term) (core.TermSet, error)
}

// MemoryStore keeps assertions in memory, indexed by relation type
type MemoryStore struct {
	assertions map[core.RelationType][]Assertion
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assertions: make(map[core.RelationType][]Assertion)}
}

// Add appends assertions to a relation type
func (m *MemoryStore) Add(rt core.RelationType, assertions ...Assertion) {
	m.assertions[rt] = append(m.assertions[rt], assertions...)
}

// Size returns the total number of stored assertions
func (m *MemoryStore) Size() int {
	total := 0
	for _, assertions := range m.assertions {
		total += len(assertions)
	}
	return total
}

// RelationTypes returns the stored relation types in sorted order
func (m *MemoryStore) RelationTypes(context.Context) ([]core.RelationType, error) {
	types := make([]core.RelationType, 0, len(m.assertions))
	for rt := range m.assertions {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

// Assertions returns a copy of the assertions of rt
func (m *MemoryStore) Assertions(_ context.Context, rt core.RelationType) ([]Assertion, error) {
	return append([]Assertion(nil), m.assertions[rt]...), nil
}

// Terms scans the assertions of rt
func (m *MemoryStore) Terms(_ context.Context, rt core.RelationType, side Side, partner core.Term) (core.TermSet, error) {
	result := core.TermSet{}
	for _, assertion := range m.assertions[rt] {
		own, other := assertion.Source, assertion.Target
		if side == SideTarget {
			own, other = other, own
		}
		if partner == "" || other == partner {
			result[own] = struct{}{}
		}
	}
	return result, nil
}
