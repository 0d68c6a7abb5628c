/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: case.go
Description: Case algebra for composing binary relations. A Case classifies how two
templates share a variable, a CaseLink pairs two relation types with a Case, and a
Reduction names the relation that a chained pair collapses into.
*/

package algebra

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
)

var (
	// ErrCircularTemplates is returned when two templates cannot be classified
	// because one is self-referential or they share both endpoints
	ErrCircularTemplates = errors.New("circular template links")
	// ErrUnsupportedCase is returned for values outside ZERO..FOUR
	ErrUnsupportedCase = errors.New("unsupported case")
)

// Case classifies which endpoints two templates share
//
//	ZERO:  no shared variable
//	ONE:   first target is second source   (A -> B, B -> C)
//	TWO:   both targets are shared         (A -> B, C -> B)
//	THREE: both sources are shared         (B -> A, B -> C)
//	FOUR:  first source is second target   (B -> A, C -> B)
type Case int

const (
	CaseZero Case = iota
	CaseOne
	CaseTwo
	CaseThree
	CaseFour
)

var caseNames = [...]string{"ZERO", "ONE", "TWO", "THREE", "FOUR"}

// String returns the case name
func (c Case) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Case(%d)", int(c))
	}
	return caseNames[c]
}

// Valid reports whether c is one of the five defined cases
func (c Case) Valid() bool {
	return c >= CaseZero && c <= CaseFour
}

// Equivalent returns the case obtained by swapping the two templates
// ONE and FOUR swap, the others are symmetric
func (c Case) Equivalent() Case {
	switch c {
	case CaseOne:
		return CaseFour
	case CaseFour:
		return CaseOne
	default:
		return c
	}
}

// ParseCase accepts a case name (any letter case) or its numeral
func ParseCase(s string) (Case, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		c := Case(n)
		if !c.Valid() {
			return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedCase)
		}
		return c, nil
	}
	name := strings.ToUpper(strings.TrimPrefix(s, "Case."))
	for i, candidate := range caseNames {
		if candidate == name {
			return Case(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedCase)
}

// GenericCaseLink links two relation ids of a generic tree
type GenericCaseLink struct {
	R1   core.RelationID `json:"r1"`
	R2   core.RelationID `json:"r2"`
	Case Case            `json:"case"`
}

// CaseLink links two relation types
type CaseLink struct {
	Type1 core.RelationType
	Type2 core.RelationType
	Case  Case
}

// Equivalent returns the same link seen from the other template
func (l CaseLink) Equivalent() CaseLink {
	return CaseLink{Type1: l.Type2, Type2: l.Type1, Case: l.Case.Equivalent()}
}

// String renders the link as (type1, type2, case)
func (l CaseLink) String() string {
	return fmt.Sprintf("(%s, %s, %s)", l.Type1, l.Type2, l.Case)
}

// CaseLinkFromTemplates classifies how t1 and t2 share a variable
// Shares are tested target-source, target-target, source-source, source-target
func CaseLinkFromTemplates(t1, t2 core.RelationalTemplate) (CaseLink, error) {
	if t1.Source == t1.Target || t2.Source == t2.Target {
		return CaseLink{}, fmt.Errorf("self-referential template in %s, %s: %w", t1, t2, ErrCircularTemplates)
	}

	shares := 0
	for _, a := range [2]core.VarID{t1.Source, t1.Target} {
		for _, b := range [2]core.VarID{t2.Source, t2.Target} {
			if a == b {
				shares++
			}
		}
	}
	if shares > 1 {
		return CaseLink{}, fmt.Errorf("templates %s, %s share both endpoints: %w", t1, t2, ErrCircularTemplates)
	}

	link := CaseLink{Type1: t1.Type, Type2: t2.Type}
	switch {
	case t1.Target == t2.Source:
		link.Case = CaseOne
	case t1.Target == t2.Target:
		link.Case = CaseTwo
	case t1.Source == t2.Source:
		link.Case = CaseThree
	case t1.Source == t2.Target:
		link.Case = CaseFour
	default:
		link.Case = CaseZero
	}
	return link, nil
}

// Order tells whether a reduced template keeps or flips its outer endpoints
type Order int

const (
	OrderMaintain Order = iota
	OrderReverse
)

// String returns the order name
func (o Order) String() string {
	switch o {
	case OrderMaintain:
		return "MAINTAIN"
	case OrderReverse:
		return "REVERSE"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Inverse flips the order
func (o Order) Inverse() Order {
	if o == OrderMaintain {
		return OrderReverse
	}
	return OrderMaintain
}

// ParseOrder accepts MAINTAIN or REVERSE in any letter case, or 0/1
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "ReductionOrder.")) {
	case "MAINTAIN", "0":
		return OrderMaintain, nil
	case "REVERSE", "1":
		return OrderReverse, nil
	}
	return 0, fmt.Errorf("unsupported reduction order %q", s)
}

// Reduction names the relation a case link collapses into
type Reduction struct {
	Type  core.RelationType
	Order Order
}

// Inverse keeps the type and flips the order
func (r Reduction) Inverse() Reduction {
	return Reduction{Type: r.Type, Order: r.Order.Inverse()}
}
