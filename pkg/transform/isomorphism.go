/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: isomorphism.go
Description: Isomorphism test for relational trees viewed as directed multigraphs
whose edges are labelled with relation types. Two trees are duplicates when a vertex
bijection maps every ordered vertex pair onto a pair with the same edge count and the
same set of relation types. Uses backtracking with degree-signature pruning.
*/

package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
)

// labelledDigraph is a dense view of a relational tree
type labelledDigraph struct {
	size   int
	labels [][]string // labels[u][v] summarises the edges u -> v
	in     []int
	out    []int
}

func newLabelledDigraph(tree *core.RelationalTree) *labelledDigraph {
	ids := tree.VariableIDs()
	index := make(map[core.VarID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	types := make([][][]string, len(ids))
	for i := range types {
		types[i] = make([][]string, len(ids))
	}
	g := &labelledDigraph{
		size: len(ids),
		in:   make([]int, len(ids)),
		out:  make([]int, len(ids)),
	}
	for _, template := range tree.Templates {
		u, v := index[template.Source], index[template.Target]
		types[u][v] = append(types[u][v], string(template.Type))
		g.out[u]++
		g.in[v]++
	}

	g.labels = make([][]string, len(ids))
	for u := range types {
		g.labels[u] = make([]string, len(ids))
		for v, edgeTypes := range types[u] {
			if len(edgeTypes) == 0 {
				continue
			}
			set := make(map[string]struct{}, len(edgeTypes))
			for _, rt := range edgeTypes {
				set[rt] = struct{}{}
			}
			unique := make([]string, 0, len(set))
			for rt := range set {
				unique = append(unique, rt)
			}
			sort.Strings(unique)
			g.labels[u][v] = fmt.Sprintf("%d:%s", len(edgeTypes), strings.Join(unique, ","))
		}
	}
	return g
}

// Isomorphic reports whether two relational trees are the same labelled digraph
// up to renaming of variables
func Isomorphic(a, b *core.RelationalTree) bool {
	if len(a.Templates) != len(b.Templates) {
		return false
	}
	ga, gb := newLabelledDigraph(a), newLabelledDigraph(b)
	if ga.size != gb.size {
		return false
	}

	mapping := make([]int, ga.size)
	used := make([]bool, gb.size)

	var match func(u int) bool
	match = func(u int) bool {
		if u == ga.size {
			return true
		}
		for v := 0; v < gb.size; v++ {
			if used[v] || ga.in[u] != gb.in[v] || ga.out[u] != gb.out[v] {
				continue
			}
			if ga.labels[u][u] != gb.labels[v][v] {
				continue
			}
			consistent := true
			for w := 0; w < u && consistent; w++ {
				x := mapping[w]
				consistent = ga.labels[u][w] == gb.labels[v][x] && ga.labels[w][u] == gb.labels[x][v]
			}
			if !consistent {
				continue
			}
			mapping[u] = v
			used[v] = true
			if match(u + 1) {
				return true
			}
			used[v] = false
		}
		return false
	}
	return match(0)
}

// groupKey identifies the set of relation types a tree uses
func groupKey(tree *core.RelationalTree) string {
	types := tree.RelationTypes()
	parts := make([]string, len(types))
	for i, rt := range types {
		parts[i] = string(rt)
	}
	return strings.Join(parts, "\x1f")
}

// Deduplicator keeps the first tree of every isomorphism class, grouped by
// the set of relation types in use
type Deduplicator struct {
	groups map[string][]*core.RelationalTree
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{groups: make(map[string][]*core.RelationalTree)}
}

// Add records tree and reports whether it is new
func (d *Deduplicator) Add(tree *core.RelationalTree) bool {
	key := groupKey(tree)
	for _, unique := range d.groups[key] {
		if Isomorphic(tree, unique) {
			return false
		}
	}
	d.groups[key] = append(d.groups[key], tree)
	return true
}
