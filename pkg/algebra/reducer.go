/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reducer.go
Description: Reducer for chained relations. Stores one reduction per case-link
equivalence class, reduces pairs of templates into a single template spanning their
outer endpoints, and searches a tree for every variable transitively reachable from a
pairing variable together with the number of reductions needed to reach it.
*/

package algebra

import (
	"errors"
	"fmt"
	"iter"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateCaseLink is returned by strict registration of a known case link
	ErrDuplicateCaseLink = errors.New("case link already registered")
	// ErrPairingNotInTree is returned when an answer search starts from a template
	// or variable that is not part of the tree
	ErrPairingNotInTree = errors.New("pairing not in tree")
)

// AnswerHop is a reachable answer variable and the reductions needed to reach it
type AnswerHop struct {
	ID   core.VarID
	Hops int
}

// Reducer holds the known relation types and the registered reductions
type Reducer struct {
	relations    map[core.RelationType]struct{}
	permutations map[CaseLink]Reduction

	// requireSameRelation only continues answer searches through reduced
	// templates that keep the pairing template's relation type
	requireSameRelation bool

	logger logrus.FieldLogger
}

// NewReducer creates a reducer over the given relation types
// Reductions into types outside this set are pruned
func NewReducer(types []core.RelationType) *Reducer {
	relations := make(map[core.RelationType]struct{}, len(types))
	for _, rt := range types {
		relations[rt] = struct{}{}
	}
	return &Reducer{
		relations:    relations,
		permutations: make(map[CaseLink]Reduction),
		logger:       logrus.StandardLogger(),
	}
}

// SetLogger sets the logger used for registration diagnostics
func (r *Reducer) SetLogger(logger logrus.FieldLogger) {
	r.logger = logger
}

// SetRequireSameRelation restricts answer searches to reductions that keep the
// pairing template's relation type
func (r *Reducer) SetRequireSameRelation(require bool) {
	r.requireSameRelation = require
}

// Size returns the number of stored reductions
func (r *Reducer) Size() int {
	return len(r.permutations)
}

// Register stores a reduction for a case link
// If the link or its equivalent is already known the call is a no-op,
// or fails with ErrDuplicateCaseLink when strict is set
func (r *Reducer) Register(link CaseLink, reduction Reduction, strict bool) error {
	if !link.Case.Valid() {
		return fmt.Errorf("register %s: %w", link, ErrUnsupportedCase)
	}
	_, exact := r.permutations[link]
	_, equivalent := r.permutations[link.Equivalent()]
	if exact || equivalent {
		if strict {
			return fmt.Errorf("register %s: %w", link, ErrDuplicateCaseLink)
		}
		r.logger.WithFields(logrus.Fields{"case_link": link.String()}).Debug("Ignoring duplicate case link")
		return nil
	}
	r.permutations[link] = reduction
	return nil
}

// ReduceCaseLink looks up the reduction for a link
// The equivalent link's reduction is returned inverted
func (r *Reducer) ReduceCaseLink(link CaseLink) (Reduction, bool) {
	if reduction, ok := r.permutations[link]; ok {
		return reduction, true
	}
	if reduction, ok := r.permutations[link.Equivalent()]; ok {
		return reduction.Inverse(), true
	}
	return Reduction{}, false
}

// ReduceTemplates collapses two linked templates into one spanning their outer endpoints
// ok is false when the templates share nothing, no reduction is registered,
// or the reduction names an unknown relation type
func (r *Reducer) ReduceTemplates(t1, t2 core.RelationalTemplate) (core.RelationalTemplate, bool, error) {
	link, err := CaseLinkFromTemplates(t1, t2)
	if err != nil {
		return core.RelationalTemplate{}, false, err
	}

	var first, second core.VarID
	switch link.Case {
	case CaseZero:
		return core.RelationalTemplate{}, false, nil
	case CaseOne:
		first, second = t1.Source, t2.Target
	case CaseTwo:
		first, second = t1.Source, t2.Source
	case CaseThree:
		first, second = t1.Target, t2.Target
	case CaseFour:
		first, second = t1.Target, t2.Source
	default:
		return core.RelationalTemplate{}, false, fmt.Errorf("reduce %s: %w", link, ErrUnsupportedCase)
	}

	reduction, ok := r.ReduceCaseLink(link)
	if !ok {
		return core.RelationalTemplate{}, false, nil
	}
	if _, known := r.relations[reduction.Type]; !known {
		return core.RelationalTemplate{}, false, nil
	}
	if reduction.Order == OrderReverse {
		first, second = second, first
	}
	return core.RelationalTemplate{Source: first, Type: reduction.Type, Target: second}, true, nil
}

// answerState is one node of the answer search
type answerState struct {
	templates []core.RelationalTemplate
	pairing   core.RelationalTemplate
	hops      int
}

// ValidAnswerIDs lazily yields every variable reachable from pairingID through
// the pairing template, directly (0 hops) or through chains of reductions.
// Every reduction order is explored, so a variable may be yielded several times
// at different hop counts.
func (r *Reducer) ValidAnswerIDs(tree *core.RelationalTree, pairing core.RelationalTemplate, pairingID core.VarID) iter.Seq2[AnswerHop, error] {
	return func(yield func(AnswerHop, error) bool) {
		if !tree.Contains(pairing) {
			yield(AnswerHop{}, fmt.Errorf("template %s: %w", pairing, ErrPairingNotInTree))
			return
		}
		if !pairing.Has(pairingID) {
			yield(AnswerHop{}, fmt.Errorf("variable %s not in %s: %w", pairingID, pairing, ErrPairingNotInTree))
			return
		}

		stack := []answerState{{templates: tree.Templates, pairing: pairing}}
		for len(stack) > 0 {
			state := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			answer, _ := state.pairing.Other(pairingID)
			if !yield(AnswerHop{ID: answer, Hops: state.hops}, nil) {
				return
			}

			children, err := r.expand(state, pairingID)
			if err != nil {
				yield(AnswerHop{}, err)
				return
			}
			// Push in reverse so children are visited in template order
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
}

// expand reduces every other template of the state against its pairing template
func (r *Reducer) expand(state answerState, pairingID core.VarID) ([]answerState, error) {
	var children []answerState
	for _, template := range state.templates {
		if template == state.pairing {
			continue
		}
		reduced, ok, err := r.ReduceTemplates(template, state.pairing)
		if err != nil {
			return nil, fmt.Errorf("reduce %s with %s: %w", template, state.pairing, err)
		}
		if !ok || !reduced.Has(pairingID) {
			continue
		}
		if r.requireSameRelation && reduced.Type != state.pairing.Type {
			continue
		}

		remaining := make([]core.RelationalTemplate, 0, len(state.templates)-1)
		for _, t := range state.templates {
			if t != template && t != state.pairing {
				remaining = append(remaining, t)
			}
		}
		remaining = append(remaining, reduced)
		children = append(children, answerState{templates: remaining, pairing: reduced, hops: state.hops + 1})
	}
	return children, nil
}

// CollectAnswers drains ValidAnswerIDs into a slice
func (r *Reducer) CollectAnswers(tree *core.RelationalTree, pairing core.RelationalTemplate, pairingID core.VarID) ([]AnswerHop, error) {
	var answers []AnswerHop
	for answer, err := range r.ValidAnswerIDs(tree, pairing, pairingID) {
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

// MaxHops returns the largest hop count reachable from any template endpoint
func (r *Reducer) MaxHops(tree *core.RelationalTree) (int, error) {
	best := 0
	for _, template := range tree.Templates {
		for _, id := range [2]core.VarID{template.Source, template.Target} {
			for answer, err := range r.ValidAnswerIDs(tree, template, id) {
				if err != nil {
					return 0, err
				}
				if answer.Hops > best {
					best = answer.Hops
				}
			}
		}
	}
	return best, nil
}
