/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the chainforge generator. Defines relations, variables,
templates and the three tree flavours (generic, relational, concrete) that flow through
the generation pipeline, together with the mapping type produced by the search.
*/

package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotPolyTree is returned when a tree's variable graph is not connected and acyclic
var ErrNotPolyTree = errors.New("tree is not a poly-tree")

// RelationType names a binary relation kind (e.g. "IsA", "PartOf")
type RelationType string

// RelationID is a placeholder relation identifier used by generic trees
type RelationID string

// VarID identifies a variable inside a tree
type VarID string

// Term is a concrete value a variable can be bound to
type Term string

// Label keys an answer choice of a QA sample
type Label string

// Relation describes a relation type together with its surface information
type Relation struct {
	Type        RelationType `json:"type" yaml:"type"`               // Relation type key
	Description string       `json:"description" yaml:"description"` // Human readable description
	SurfaceForm string       `json:"surface_form" yaml:"surface_form"`
}

// Variable is a named slot that may carry a term
// An empty Term means the variable is still free
type Variable struct {
	ID   VarID `json:"id" yaml:"id"`
	Term Term  `json:"term,omitempty" yaml:"term,omitempty"`
}

// Assigned reports whether the variable carries a term
func (v Variable) Assigned() bool {
	return v.Term != ""
}

// GenericTemplate links two variables through a placeholder relation id
type GenericTemplate struct {
	Source     VarID      `json:"source"`
	RelationID RelationID `json:"relation_id"`
	Target     VarID      `json:"target"`
}

// RelationalTemplate links two variables through a concrete relation type
// This is the unit the reducer and the beam search operate on
type RelationalTemplate struct {
	Source VarID        `json:"source"`
	Type   RelationType `json:"relation_type"`
	Target VarID        `json:"target"`
}

// Has reports whether id is one of the template's endpoints
func (t RelationalTemplate) Has(id VarID) bool {
	return t.Source == id || t.Target == id
}

// Other returns the endpoint opposite to id
func (t RelationalTemplate) Other(id VarID) (VarID, bool) {
	switch id {
	case t.Source:
		return t.Target, true
	case t.Target:
		return t.Source, true
	}
	return "", false
}

// String renders the template as (source, type, target)
func (t RelationalTemplate) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Source, t.Type, t.Target)
}

// Template is a fully concrete template with relation details and variable terms
type Template struct {
	Source   Variable `json:"source" yaml:"source"`
	Relation Relation `json:"relation" yaml:"relation"`
	Target   Variable `json:"target" yaml:"target"`
}

// GenericTree is a tree of generic templates
type GenericTree struct {
	Templates []GenericTemplate `json:"templates"`
}

// RelationIDs returns the relation ids in template order
func (t *GenericTree) RelationIDs() []RelationID {
	ids := make([]RelationID, len(t.Templates))
	for i, template := range t.Templates {
		ids[i] = template.RelationID
	}
	return ids
}

// String renders the tree as a comma separated list of (source, relation id, target)
func (t *GenericTree) String() string {
	parts := make([]string, len(t.Templates))
	for i, template := range t.Templates {
		parts[i] = fmt.Sprintf("(%s, %s, %s)", template.Source, template.RelationID, template.Target)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RelationalTree is a tree of relational templates
type RelationalTree struct {
	Templates []RelationalTemplate `json:"templates"`
}

// VariableIDs returns the sorted unique variable ids of the tree
func (t *RelationalTree) VariableIDs() []VarID {
	seen := make(map[VarID]struct{}, 2*len(t.Templates))
	for _, template := range t.Templates {
		seen[template.Source] = struct{}{}
		seen[template.Target] = struct{}{}
	}
	ids := make([]VarID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasVariable reports whether any template mentions id
func (t *RelationalTree) HasVariable(id VarID) bool {
	for _, template := range t.Templates {
		if template.Has(id) {
			return true
		}
	}
	return false
}

// Contains reports whether the tree holds the given template
func (t *RelationalTree) Contains(template RelationalTemplate) bool {
	for _, candidate := range t.Templates {
		if candidate == template {
			return true
		}
	}
	return false
}

// RelationTypes returns the sorted set of relation types used by the tree
func (t *RelationalTree) RelationTypes() []RelationType {
	seen := make(map[RelationType]struct{})
	for _, template := range t.Templates {
		seen[template.Type] = struct{}{}
	}
	types := make([]RelationType, 0, len(seen))
	for rt := range seen {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate checks that the variable multigraph is a poly-tree
// Self-loops and parallel edges count as cycles
func (t *RelationalTree) Validate() error {
	if len(t.Templates) == 0 {
		return fmt.Errorf("empty tree: %w", ErrNotPolyTree)
	}
	edges := make([][2]VarID, len(t.Templates))
	for i, template := range t.Templates {
		edges[i] = [2]VarID{template.Source, template.Target}
	}
	if !IsPolyTree(edges) {
		return fmt.Errorf("templates %v: %w", t.Templates, ErrNotPolyTree)
	}
	return nil
}

// String renders the tree as a comma separated list of templates
func (t *RelationalTree) String() string {
	parts := make([]string, len(t.Templates))
	for i, template := range t.Templates {
		parts[i] = template.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Tree is a fully instantiated tree with its pairing template
type Tree struct {
	Templates []Template `json:"templates"`
	Pairing   Template   `json:"pairing"`
}

// Mapping binds variable ids to terms
type Mapping map[VarID]Term

// Clone returns an independent copy of the mapping
func (m Mapping) Clone() Mapping {
	clone := make(Mapping, len(m))
	for id, term := range m {
		clone[id] = term
	}
	return clone
}

// Distinct reports whether all bound terms are pairwise different
func (m Mapping) Distinct() bool {
	seen := make(map[Term]struct{}, len(m))
	for _, term := range m {
		if _, dup := seen[term]; dup {
			return false
		}
		seen[term] = struct{}{}
	}
	return true
}

// Key renders the mapping in a stable form, useful for set comparisons
func (m Mapping) Key() string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('=')
		b.WriteString(string(m[VarID(id)]))
		b.WriteByte(';')
	}
	return b.String()
}

// TermSet is an unordered set of terms
type TermSet map[Term]struct{}

// NewTermSet builds a set from the given terms
func NewTermSet(terms ...Term) TermSet {
	set := make(TermSet, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	return set
}

// Has reports membership
func (s TermSet) Has(term Term) bool {
	_, ok := s[term]
	return ok
}

// Sorted returns the set's terms in lexicographic order
func (s TermSet) Sorted() []Term {
	terms := make([]Term, 0, len(s))
	for term := range s {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })
	return terms
}
