/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instantiator.go
Description: Contracts between the beam search and its collaborators. Instantiators
answer term queries against a knowledge source, formatters normalise raw terms, and
sorters rank the candidate terms gathered for one frontier variable.
*/

package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
)

// Variant selects factual or anti-factual instantiation
type Variant int

const (
	VariantFactual Variant = iota
	VariantAntiFactual
)

// String returns the variant name
func (v Variant) String() string {
	switch v {
	case VariantFactual:
		return "FACTUAL"
	case VariantAntiFactual:
		return "ANTI_FACTUAL"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant accepts FACTUAL or ANTI_FACTUAL in any letter case
func ParseVariant(s string) (Variant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FACTUAL":
		return VariantFactual, nil
	case "ANTI_FACTUAL":
		return VariantAntiFactual, nil
	}
	return 0, fmt.Errorf("unsupported instantiator variant %q", s)
}

// Query asks which terms may fill QueryID given the term of the template's other endpoint
type Query struct {
	Template    core.RelationalTemplate
	QueryID     core.VarID
	PartnerTerm core.Term
}

// QueriesSource reports whether the queried variable is the template's source
func (q Query) QueriesSource() bool {
	return q.Template.Source == q.QueryID
}

// Instantiator answers term queries
// Implementations must be pure with respect to the query; an empty set is a normal answer
type Instantiator interface {
	Query(ctx context.Context, q Query) (core.TermSet, error)
}

// InstantiatorFunc adapts a function to the Instantiator interface
type InstantiatorFunc func(ctx context.Context, q Query) (core.TermSet, error)

// Query calls f
func (f InstantiatorFunc) Query(ctx context.Context, q Query) (core.TermSet, error) {
	return f(ctx, q)
}

// TermFormatter normalises raw terms into the form an instantiator expects
// Formatting must be deterministic and idempotent
type TermFormatter interface {
	Format(term core.Term, language string) (core.Term, error)
}

// Contribution is one query result added to a ranking collection
type Contribution struct {
	Result       core.TermSet
	Query        Query
	ExistingTerm core.Term // current term of the queried variable, if any
}

// Collection accumulates the contributions for one frontier variable
type Collection interface {
	// Add records one query result
	Add(c Contribution)
	// Sort returns the terms attested by every contribution, best first
	Sort() []core.Term
}

// Sorter opens ranking collections
type Sorter interface {
	NewCollection(variant Variant) Collection
}
