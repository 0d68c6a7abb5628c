/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instantiator.go
Description: Term database instantiator. Factual queries return the terms asserted
against the partner term under the template's relation. Anti-factual queries draw from
a method-specific candidate pool and remove every factual answer.
*/

package termdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/search"
)

// Method selects the candidate pool of anti-factual queries
type Method int

const (
	// MethodSameRelation draws from the queried side of the template's relation
	MethodSameRelation Method = iota
	// MethodAllRelations draws from the queried side of every relation
	MethodAllRelations
	// MethodOtherRelations draws from the queried side of every other relation
	MethodOtherRelations
	// MethodSamePartner draws from terms asserted against the partner under any relation
	MethodSamePartner
)

var methodNames = [...]string{"SAME_RELATION", "ALL_RELATIONS", "OTHER_RELATIONS", "SAME_PARTNER"}

// String returns the method name
func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod accepts a method name in any letter case
func ParseMethod(s string) (Method, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, candidate := range methodNames {
		if candidate == name {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported anti-factual method %q", s)
}

// Instantiator answers search queries from an assertion source
type Instantiator struct {
	source    AssertionSource
	variant   search.Variant
	method    Method
	formatter search.TermFormatter
	language  string
}

// NewInstantiator creates an instantiator; method only affects anti-factual queries
func NewInstantiator(source AssertionSource, variant search.Variant, method Method) *Instantiator {
	return &Instantiator{source: source, variant: variant, method: method}
}

// SetFormatter formats partner terms for language before every lookup
func (i *Instantiator) SetFormatter(formatter search.TermFormatter, language string) {
	i.formatter = formatter
	i.language = language
}

// Query implements search.Instantiator
func (i *Instantiator) Query(ctx context.Context, q search.Query) (core.TermSet, error) {
	if i.formatter != nil {
		partner, err := i.formatter.Format(q.PartnerTerm, i.language)
		if err != nil {
			return nil, err
		}
		q.PartnerTerm = partner
	}

	switch i.variant {
	case search.VariantFactual:
		return i.factual(ctx, q)
	case search.VariantAntiFactual:
		return i.antiFactual(ctx, q)
	default:
		return nil, fmt.Errorf("unsupported instantiator variant %s", i.variant)
	}
}

func querySide(q search.Query) Side {
	if q.QueriesSource() {
		return SideSource
	}
	return SideTarget
}

func (i *Instantiator) factual(ctx context.Context, q search.Query) (core.TermSet, error) {
	return i.source.Terms(ctx, q.Template.Type, querySide(q), q.PartnerTerm)
}

func (i *Instantiator) antiFactual(ctx context.Context, q search.Query) (core.TermSet, error) {
	exclude, err := i.factual(ctx, q)
	if err != nil {
		return nil, err
	}
	side := querySide(q)

	var types []core.RelationType
	partner := core.Term("")
	switch i.method {
	case MethodSameRelation:
		types = []core.RelationType{q.Template.Type}
	case MethodAllRelations, MethodOtherRelations, MethodSamePartner:
		all, err := i.source.RelationTypes(ctx)
		if err != nil {
			return nil, err
		}
		for _, rt := range all {
			if i.method == MethodOtherRelations && rt == q.Template.Type {
				continue
			}
			types = append(types, rt)
		}
		if i.method == MethodSamePartner {
			partner = q.PartnerTerm
		}
	default:
		return nil, fmt.Errorf("unsupported anti-factual method %s", i.method)
	}

	result := core.TermSet{}
	for _, rt := range types {
		terms, err := i.source.Terms(ctx, rt, side, partner)
		if err != nil {
			return nil, err
		}
		for term := range terms {
			if !exclude.Has(term) {
				result[term] = struct{}{}
			}
		}
	}
	return result, nil
}
