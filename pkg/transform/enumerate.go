/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enumerate.go
Description: Exhaustive enumeration of generic trees. Every unordered pair of the
relation ids R0..R(n-1) is assigned every case, the resulting case-link lists are
optionally sub-sampled, and the lists that build a valid poly-tree are yielded.
*/

package transform

import (
	"fmt"
	"iter"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/sampling"
)

var allCases = []algebra.Case{algebra.CaseZero, algebra.CaseOne, algebra.CaseTwo, algebra.CaseThree, algebra.CaseFour}

// RelationIDs returns the placeholder ids R0..R(size-1)
func RelationIDs(size int) []core.RelationID {
	ids := make([]core.RelationID, size)
	for i := range ids {
		ids[i] = core.RelationID(fmt.Sprintf("R%d", i))
	}
	return ids
}

// EnumerateCaseLinks yields every assignment of a case to every unordered pair
// of R0..R(size-1). The first pair's case varies slowest.
func EnumerateCaseLinks(size int) iter.Seq[[]algebra.GenericCaseLink] {
	return func(yield func([]algebra.GenericCaseLink) bool) {
		ids := RelationIDs(size)
		var pairs [][2]core.RelationID
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				pairs = append(pairs, [2]core.RelationID{ids[i], ids[j]})
			}
		}

		digits := make([]int, len(pairs))
		for {
			links := make([]algebra.GenericCaseLink, len(pairs))
			for k, pair := range pairs {
				links[k] = algebra.GenericCaseLink{R1: pair[0], R2: pair[1], Case: allCases[digits[k]]}
			}
			if !yield(links) {
				return
			}

			// Advance the odometer, last pair fastest
			k := len(digits) - 1
			for k >= 0 {
				digits[k]++
				if digits[k] < len(allCases) {
					break
				}
				digits[k] = 0
				k--
			}
			if k < 0 {
				return
			}
		}
	}
}

// GenerateGenericTrees yields every valid generic tree with size templates
// Case-link lists are sub-sampled by sampler before building
func (b *GenericTreeBuilder) GenerateGenericTrees(size int, sampler *sampling.Sampler) iter.Seq2[*core.GenericTree, error] {
	return func(yield func(*core.GenericTree, error) bool) {
		if size < 1 {
			yield(nil, fmt.Errorf("tree size must be positive, got %d", size))
			return
		}
		if size == 1 {
			// A single relation has no pairs to link
			yield(&core.GenericTree{Templates: []core.GenericTemplate{{Source: "V0", RelationID: "R0", Target: "V1"}}}, nil)
			return
		}

		for links := range sampling.Filter(EnumerateCaseLinks(size), sampler) {
			tree, err := b.Build(links)
			if err != nil {
				yield(nil, err)
				return
			}
			if tree != nil && !yield(tree, nil) {
				return
			}
		}
	}
}
