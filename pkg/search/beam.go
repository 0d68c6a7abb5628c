/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: beam.go
Description: Beam search over term assignments for a relational tree. Starting from a
seed mapping, the search repeatedly fixes every variable adjacent to the already fixed
ones, ranking candidate terms per variable and expanding the Cartesian product of the
candidate lists depth-first. Complete mappings are re-validated edge by edge before
being yielded. Anti-factual variables are instantiated either in line with the factual
ones or in a second pass over each complete factual mapping.
*/

package search

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
)

var (
	// ErrFrontierConflict is returned when two templates constrain the same
	// frontier variable through the same fixed partner
	ErrFrontierConflict = errors.New("frontier conflict")
	// ErrUnsupportedProtocol is returned for unknown protocol values
	ErrUnsupportedProtocol = errors.New("unsupported beam search protocol")
	// ErrInvalidSeed is returned when the seed or anti-factual ids do not fit the tree
	ErrInvalidSeed = errors.New("invalid seed")
)

// Protocol selects how anti-factual variables are instantiated
type Protocol int

const (
	// ProtocolInLine instantiates anti-factual variables during the main search
	ProtocolInLine Protocol = iota
	// ProtocolPostHoc instantiates them after a complete factual mapping is found
	ProtocolPostHoc
)

// String returns the protocol name
func (p Protocol) String() string {
	switch p {
	case ProtocolInLine:
		return "AF_IN_LINE"
	case ProtocolPostHoc:
		return "AF_POST_HOC"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol accepts AF_IN_LINE or AF_POST_HOC in any letter case
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AF_IN_LINE":
		return ProtocolInLine, nil
	case "AF_POST_HOC":
		return ProtocolPostHoc, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedProtocol)
}

// BeamSearch instantiates relational trees with terms
type BeamSearch struct {
	factual     Instantiator
	antiFactual Instantiator
	sorter      Sorter
	protocol    Protocol
	topK        int

	logger logrus.FieldLogger
}

// NewBeamSearch creates a beam search
// topK defaults to 0, which keeps every ranked candidate
func NewBeamSearch(factual, antiFactual Instantiator, sorter Sorter, protocol Protocol) (*BeamSearch, error) {
	if factual == nil || antiFactual == nil {
		return nil, fmt.Errorf("beam search requires factual and anti-factual instantiators")
	}
	if sorter == nil {
		return nil, fmt.Errorf("beam search requires a sorter")
	}
	switch protocol {
	case ProtocolInLine, ProtocolPostHoc:
	default:
		return nil, fmt.Errorf("%s: %w", protocol, ErrUnsupportedProtocol)
	}
	return &BeamSearch{
		factual:     factual,
		antiFactual: antiFactual,
		sorter:      sorter,
		protocol:    protocol,
		logger:      logrus.StandardLogger(),
	}, nil
}

// SetTopK limits every candidate list to the k best terms; k <= 0 disables the limit
func (b *BeamSearch) SetTopK(k int) {
	b.topK = k
}

// SetLogger sets the logger
func (b *BeamSearch) SetLogger(logger logrus.FieldLogger) {
	b.logger = logger
}

// Protocol returns the configured protocol
func (b *BeamSearch) Protocol() Protocol {
	return b.protocol
}

// Search lazily yields every complete, valid mapping extending seed in which the
// variables in antiFactual are instantiated anti-factually. Every yielded mapping
// covers all tree variables with pairwise-distinct terms. A precondition failure
// or a structural conflict is yielded once as an error, ending the sequence.
func (b *BeamSearch) Search(ctx context.Context, tree *core.RelationalTree, antiFactual []core.VarID, seed core.Mapping) iter.Seq2[core.Mapping, error] {
	return func(yield func(core.Mapping, error) bool) {
		afSet, err := validateSearch(tree, antiFactual, seed)
		if err != nil {
			yield(nil, err)
			return
		}

		switch b.protocol {
		case ProtocolInLine:
			for mapping, err := range b.walk(ctx, tree, afSet, true, seed) {
				if !yield(mapping, err) || err != nil {
					return
				}
			}
		case ProtocolPostHoc:
			for base, err := range b.walk(ctx, tree, afSet, false, seed) {
				if err != nil {
					yield(nil, err)
					return
				}
				for mapping := range b.postHoc(ctx, tree, afSet, base) {
					if !yield(mapping, nil) {
						return
					}
				}
			}
		default:
			yield(nil, fmt.Errorf("%s: %w", b.protocol, ErrUnsupportedProtocol))
		}
	}
}

// Collect drains Search into a slice
func (b *BeamSearch) Collect(ctx context.Context, tree *core.RelationalTree, antiFactual []core.VarID, seed core.Mapping) ([]core.Mapping, error) {
	var mappings []core.Mapping
	for mapping, err := range b.Search(ctx, tree, antiFactual, seed) {
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	return mappings, nil
}

func validateSearch(tree *core.RelationalTree, antiFactual []core.VarID, seed core.Mapping) (map[core.VarID]bool, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty seed mapping: %w", ErrInvalidSeed)
	}
	for id := range seed {
		if !tree.HasVariable(id) {
			return nil, fmt.Errorf("seed variable %s not in tree: %w", id, ErrInvalidSeed)
		}
	}
	if !seed.Distinct() {
		return nil, fmt.Errorf("seed terms repeat: %w", ErrInvalidSeed)
	}

	afSet := make(map[core.VarID]bool, len(antiFactual))
	for _, id := range antiFactual {
		if !tree.HasVariable(id) {
			return nil, fmt.Errorf("anti-factual variable %s not in tree: %w", id, ErrInvalidSeed)
		}
		if _, seeded := seed[id]; seeded {
			return nil, fmt.Errorf("anti-factual variable %s is seeded: %w", id, ErrInvalidSeed)
		}
		afSet[id] = true
	}
	return afSet, nil
}

// frame is one node of the depth-first expansion
type frame struct {
	mapping core.Mapping
	order   map[core.VarID]int // search depth at which each variable was fixed
	depth   int                // depth assigned to variables fixed by children

	expanded   bool
	keys       []core.VarID
	candidates [][]core.Term
	digits     []int
	exhausted  bool
}

// next returns the next child mapping of the Cartesian product
func (f *frame) next() (core.Mapping, bool) {
	if f.exhausted {
		return nil, false
	}
	child := f.mapping.Clone()
	for i, key := range f.keys {
		child[key] = f.candidates[i][f.digits[i]]
	}

	k := len(f.digits) - 1
	for k >= 0 {
		f.digits[k]++
		if f.digits[k] < len(f.candidates[k]) {
			break
		}
		f.digits[k] = 0
		k--
	}
	if k < 0 {
		f.exhausted = true
	}
	return child, true
}

// walk runs the depth-first product expansion from seed
// inline marks whether anti-factual variables are honoured during the walk
func (b *BeamSearch) walk(ctx context.Context, tree *core.RelationalTree, afSet map[core.VarID]bool, inline bool, seed core.Mapping) iter.Seq2[core.Mapping, error] {
	return func(yield func(core.Mapping, error) bool) {
		root := &frame{mapping: seed.Clone(), order: make(map[core.VarID]int, len(seed)), depth: 1}
		for id := range seed {
			root.order[id] = 0
		}

		stack := []*frame{root}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			top := stack[len(stack)-1]

			if !top.expanded {
				top.expanded = true
				frontier, err := frontierTemplates(tree, top.mapping)
				if err != nil {
					yield(nil, err)
					return
				}
				if len(frontier) == 0 {
					stack = stack[:len(stack)-1]
					if top.mapping.Distinct() && b.validMapping(ctx, tree, afSet, inline, top) {
						if !yield(top.mapping, nil) {
							return
						}
					}
					continue
				}
				if !b.rankFrontier(ctx, top, frontier, afSet, inline) {
					stack = stack[:len(stack)-1]
					continue
				}
			}

			child, ok := top.next()
			if !ok {
				stack = stack[:len(stack)-1]
				continue
			}
			if !child.Distinct() {
				continue
			}
			order := make(map[core.VarID]int, len(top.order)+len(top.keys))
			for id, depth := range top.order {
				order[id] = depth
			}
			for _, key := range top.keys {
				order[key] = top.depth
			}
			stack = append(stack, &frame{mapping: child, order: order, depth: top.depth + 1})
		}
	}
}

// frontierTemplates maps every unfixed variable adjacent to a fixed one to the
// templates constraining it, keyed by fixed partner
func frontierTemplates(tree *core.RelationalTree, mapping core.Mapping) (map[core.VarID]map[core.VarID]core.RelationalTemplate, error) {
	frontier := make(map[core.VarID]map[core.VarID]core.RelationalTemplate)
	for _, template := range tree.Templates {
		for _, pair := range [2][2]core.VarID{{template.Source, template.Target}, {template.Target, template.Source}} {
			partner, test := pair[0], pair[1]
			_, partnerFixed := mapping[partner]
			_, testFixed := mapping[test]
			if !partnerFixed || testFixed {
				continue
			}
			byPartner, ok := frontier[test]
			if !ok {
				byPartner = make(map[core.VarID]core.RelationalTemplate)
				frontier[test] = byPartner
			}
			if existing, dup := byPartner[partner]; dup {
				return nil, fmt.Errorf("variable %s constrained by %s and %s through %s: %w", test, existing, template, partner, ErrFrontierConflict)
			}
			byPartner[partner] = template
		}
	}
	return frontier, nil
}

// rankFrontier fills the frame's candidate lists
// Returns false when some frontier variable has no candidates
func (b *BeamSearch) rankFrontier(ctx context.Context, f *frame, frontier map[core.VarID]map[core.VarID]core.RelationalTemplate, afSet map[core.VarID]bool, inline bool) bool {
	f.keys = sortedKeys(frontier)
	f.candidates = make([][]core.Term, len(f.keys))
	f.digits = make([]int, len(f.keys))

	for i, id := range f.keys {
		instantiator, variant := b.factual, VariantFactual
		if inline && afSet[id] {
			instantiator, variant = b.antiFactual, VariantAntiFactual
		}

		collection := b.sorter.NewCollection(variant)
		for _, partner := range sortedKeys(frontier[id]) {
			q := Query{Template: frontier[id][partner], QueryID: id, PartnerTerm: f.mapping[partner]}
			collection.Add(Contribution{Result: b.query(ctx, instantiator, q), Query: q})
		}

		terms := b.truncate(collection.Sort())
		if len(terms) == 0 {
			b.logger.WithFields(logrus.Fields{"variable": id, "variant": variant.String()}).Debug("No candidates for frontier variable")
			return false
		}
		f.candidates[i] = terms
	}
	return true
}

// validMapping checks every edge of a complete mapping against the factual instantiator
// The later-fixed endpoint decides whether the edge must hold; ties are resolved by
// requiring both endpoints to agree on being anti-factual
func (b *BeamSearch) validMapping(ctx context.Context, tree *core.RelationalTree, afSet map[core.VarID]bool, inline bool, f *frame) bool {
	for _, template := range tree.Templates {
		q := Query{Template: template, QueryID: template.Source, PartnerTerm: f.mapping[template.Target]}
		result, err := b.factual.Query(ctx, q)
		if err != nil {
			b.logger.WithFields(logrus.Fields{"template": template.String()}).Warnf("Factual validation query failed: %v", err)
			return false
		}
		factual := result.Has(f.mapping[template.Source])

		sourceOrder, targetOrder := f.order[template.Source], f.order[template.Target]
		switch {
		case sourceOrder != targetOrder:
			later := template.Source
			if targetOrder > sourceOrder {
				later = template.Target
			}
			wantFactual := !(inline && afSet[later])
			if factual != wantFactual {
				return false
			}
		case inline:
			sourceAF, targetAF := afSet[template.Source], afSet[template.Target]
			if sourceAF != targetAF {
				return false
			}
			if factual == sourceAF {
				return false
			}
		default:
			if !factual {
				return false
			}
		}
	}
	return true
}

// postHoc replaces the anti-factual variables of a complete factual mapping
func (b *BeamSearch) postHoc(ctx context.Context, tree *core.RelationalTree, afSet map[core.VarID]bool, base core.Mapping) iter.Seq[core.Mapping] {
	return func(yield func(core.Mapping) bool) {
		keys := sortedKeys(afSet)
		if len(keys) == 0 {
			yield(base)
			return
		}

		f := &frame{mapping: base, keys: keys, candidates: make([][]core.Term, len(keys)), digits: make([]int, len(keys))}
		for i, id := range keys {
			collection := b.sorter.NewCollection(VariantAntiFactual)
			for _, template := range tree.Templates {
				partner, ok := template.Other(id)
				if !ok {
					continue
				}
				q := Query{Template: template, QueryID: id, PartnerTerm: base[partner]}
				collection.Add(Contribution{Result: b.query(ctx, b.antiFactual, q), Query: q, ExistingTerm: base[id]})
			}
			terms := b.truncate(collection.Sort())
			if len(terms) == 0 {
				return
			}
			f.candidates[i] = terms
		}

		for {
			mapping, ok := f.next()
			if !ok {
				return
			}
			if mapping.Distinct() && !yield(mapping) {
				return
			}
		}
	}
}

// query runs one instantiator query; failures prune like an empty answer
func (b *BeamSearch) query(ctx context.Context, instantiator Instantiator, q Query) core.TermSet {
	result, err := instantiator.Query(ctx, q)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"template": q.Template.String(),
			"query":    q.QueryID,
			"partner":  q.PartnerTerm,
		}).Warnf("Instantiator query failed: %v", err)
		return nil
	}
	return result
}

func (b *BeamSearch) truncate(terms []core.Term) []core.Term {
	if b.topK > 0 && b.topK < len(terms) {
		return terms[:b.topK]
	}
	return terms
}

func sortedKeys[V any](m map[core.VarID]V) []core.VarID {
	keys := make([]core.VarID, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
