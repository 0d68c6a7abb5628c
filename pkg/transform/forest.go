/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: forest.go
Description: Forest transform. Pairs the templates of relational trees with the
pairing templates of a QA sample, picks answer variables reachable from each pairing,
enumerates anti-factual variable sets and runs the beam search for every combination.
Accepted mappings become instantiation records grouped into one family per tree.
*/

package transform

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/kleascm/chainforge/pkg/search"
	"github.com/sirupsen/logrus"
)

// ForestTransform instantiates relational trees for QA samples
type ForestTransform struct {
	reducer   *algebra.Reducer
	search    *search.BeamSearch
	formatter search.TermFormatter
	language  string

	pairingSampler     *sampling.Sampler
	antiFactualSampler *sampling.Sampler

	reporter core.Reporter
	newID    func() core.InstantiationID
	logger   logrus.FieldLogger
}

// NewForestTransform creates a forest transform
// Without a reducer every other tree variable is an answer candidate with unknown hops
func NewForestTransform(reducer *algebra.Reducer, beam *search.BeamSearch) *ForestTransform {
	return &ForestTransform{
		reducer:  reducer,
		search:   beam,
		reporter: core.MultiReporter{},
		newID:    func() core.InstantiationID { return core.InstantiationID(uuid.NewString()) },
		logger:   logrus.StandardLogger(),
	}
}

// SetFormatter formats seed terms for language before searching
func (f *ForestTransform) SetFormatter(formatter search.TermFormatter, language string) {
	f.formatter = formatter
	f.language = language
}

// SetPairingSampler sub-samples pairings
func (f *ForestTransform) SetPairingSampler(sampler *sampling.Sampler) {
	f.pairingSampler = sampler
}

// SetAntiFactualSampler sub-samples anti-factual variable sets
func (f *ForestTransform) SetAntiFactualSampler(sampler *sampling.Sampler) {
	f.antiFactualSampler = sampler
}

// SetReporter sets the reporter notified of generation progress
func (f *ForestTransform) SetReporter(reporter core.Reporter) {
	f.reporter = reporter
}

// SetLogger sets the logger
func (f *ForestTransform) SetLogger(logger logrus.FieldLogger) {
	f.logger = logger
}

// Transform instantiates every tree and collects the results into a forest
// Trees without any accepted instantiation get no family
func (f *ForestTransform) Transform(ctx context.Context, trees []*core.RelationalTree, qa *core.QAData) (*core.InstantiationForest, error) {
	forest := core.NewInstantiationForest()
	for _, tree := range trees {
		var family *core.InstantiationFamily
		for data, err := range f.Instantiations(ctx, tree, qa) {
			if err != nil {
				return nil, err
			}
			if family == nil {
				family = forest.AddFamily(*tree)
			}
			family.Add(data.ID)
			forest.AddData(data)
		}
	}
	return forest, nil
}

// Instantiations lazily yields every accepted instantiation of tree for qa
func (f *ForestTransform) Instantiations(ctx context.Context, tree *core.RelationalTree, qa *core.QAData) iter.Seq2[*core.InstantiationData, error] {
	return func(yield func(*core.InstantiationData, error) bool) {
		if err := qa.Validate(); err != nil {
			yield(nil, err)
			return
		}
		f.reporter.OnTree(tree)

		for pairing, err := range sampling.Filter2(f.pairings(tree, qa), f.pairingSampler) {
			if err != nil {
				yield(nil, err)
				return
			}
			f.reporter.OnPairing(pairing)

			for antiFactual := range sampling.Filter(antiFactualSets(tree, pairing), f.antiFactualSampler) {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return
				}
				f.reporter.OnAttempt(len(antiFactual), pairing.ReasoningHops)

				for data, err := range f.instantiate(ctx, tree, pairing, antiFactual, qa) {
					if err != nil {
						yield(nil, err)
						return
					}
					f.reporter.OnInstantiation(data)
					if !yield(data, nil) {
						return
					}
				}
			}
		}
	}
}

// pairings yields one record per (tree template, QA template, fixed endpoint, answer)
func (f *ForestTransform) pairings(tree *core.RelationalTree, qa *core.QAData) iter.Seq2[*core.InstantiationData, error] {
	return func(yield func(*core.InstantiationData, error) bool) {
		for _, template := range tree.Templates {
			for _, qaTemplate := range qa.PairingTemplates {
				if qaTemplate.Relation.Type != template.Type {
					continue
				}
				var fixed []core.Pairing
				if qaTemplate.Source.Assigned() {
					fixed = append(fixed, core.Pairing{VarID: template.Source, Term: qaTemplate.Source.Term})
				}
				if qaTemplate.Target.Assigned() {
					fixed = append(fixed, core.Pairing{VarID: template.Target, Term: qaTemplate.Target.Term})
				}

				for _, pairing := range fixed {
					for answer, err := range f.answers(tree, template, pairing.VarID) {
						if err != nil {
							yield(nil, err)
							return
						}
						data := &core.InstantiationData{
							PairingTemplate: template,
							Pairing:         pairing,
							QATemplate:      qaTemplate,
							AnswerID:        answer.ID,
							ReasoningHops:   answer.Hops,
						}
						if !yield(data, nil) {
							return
						}
					}
				}
			}
		}
	}
}

// answers yields the answer candidates for a pairing variable
func (f *ForestTransform) answers(tree *core.RelationalTree, template core.RelationalTemplate, pairingID core.VarID) iter.Seq2[algebra.AnswerHop, error] {
	if f.reducer != nil {
		return f.reducer.ValidAnswerIDs(tree, template, pairingID)
	}
	return func(yield func(algebra.AnswerHop, error) bool) {
		for _, id := range tree.VariableIDs() {
			if id == pairingID {
				continue
			}
			if !yield(algebra.AnswerHop{ID: id, Hops: -1}, nil) {
				return
			}
		}
	}
}

// antiFactualSets yields every subset of the variables other than the pairing and
// answer variables, by increasing size and lexicographically within a size
func antiFactualSets(tree *core.RelationalTree, data *core.InstantiationData) iter.Seq[[]core.VarID] {
	return func(yield func([]core.VarID) bool) {
		var options []core.VarID
		for _, id := range tree.VariableIDs() {
			if id != data.Pairing.VarID && id != data.AnswerID {
				options = append(options, id)
			}
		}
		for k := 0; k <= len(options); k++ {
			for combination := range combinations(options, k) {
				if !yield(combination) {
					return
				}
			}
		}
	}
}

// combinations yields the k-subsets of items in lexicographic index order
func combinations[T any](items []T, k int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		n := len(items)
		if k > n {
			return
		}
		indices := make([]int, k)
		for i := range indices {
			indices[i] = i
		}
		for {
			combination := make([]T, k)
			for i, index := range indices {
				combination[i] = items[index]
			}
			if !yield(combination) {
				return
			}

			i := k - 1
			for i >= 0 && indices[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			indices[i]++
			for j := i + 1; j < k; j++ {
				indices[j] = indices[j-1] + 1
			}
		}
	}
}

// instantiate runs the beam search for one pairing and anti-factual set
// In-line searches are seeded with every answer choice, post-hoc ones with the correct answer only
func (f *ForestTransform) instantiate(ctx context.Context, tree *core.RelationalTree, pairing *core.InstantiationData, antiFactual []core.VarID, qa *core.QAData) iter.Seq2[*core.InstantiationData, error] {
	return func(yield func(*core.InstantiationData, error) bool) {
		var choices []core.Term
		switch f.search.Protocol() {
		case search.ProtocolInLine:
			for _, label := range qa.Labels() {
				choices = append(choices, qa.AnswerChoices[label])
			}
		case search.ProtocolPostHoc:
			choices = []core.Term{qa.AnswerChoices[qa.CorrectAnswerLabel]}
		default:
			yield(nil, fmt.Errorf("%s: %w", f.search.Protocol(), search.ErrUnsupportedProtocol))
			return
		}

		pairingTerm, err := f.format(pairing.Pairing.Term)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, choice := range choices {
			answerTerm, err := f.format(choice)
			if err != nil {
				yield(nil, err)
				return
			}
			seed := core.Mapping{pairing.AnswerID: answerTerm, pairing.Pairing.VarID: pairingTerm}
			if !seed.Distinct() {
				f.logger.WithFields(logrus.Fields{"answer": answerTerm, "pairing": pairingTerm}).Debug("Skipping seed with repeated terms")
				continue
			}

			for mapping, err := range f.search.Search(ctx, tree, antiFactual, seed) {
				if err != nil {
					yield(nil, fmt.Errorf("beam search on %s: %w", tree, err))
					return
				}
				if !yield(pairing.WithResult(f.newID(), antiFactual, mapping), nil) {
					return
				}
			}
		}
	}
}

func (f *ForestTransform) format(term core.Term) (core.Term, error) {
	if f.formatter == nil {
		return term, nil
	}
	formatted, err := f.formatter.Format(term, f.language)
	if err != nil {
		return "", fmt.Errorf("failed to format %q: %w", term, err)
	}
	return formatted, nil
}
