/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: polytree.go
Description: Poly-tree check for undirected multigraphs given as edge lists. Uses a
disjoint-set forest with iterative find, path compression and union by rank so that
cycle detection and connectivity are answered in a single pass over the edges.
*/

package core

// IsPolyTree reports whether the undirected multigraph described by edges is
// connected and acyclic. Self-loops and parallel edges are cycles.
func IsPolyTree[T comparable](edges [][2]T) bool {
	if len(edges) == 0 {
		return false
	}

	parent := make(map[T]T, 2*len(edges))
	rank := make(map[T]int, 2*len(edges))
	for _, edge := range edges {
		for _, v := range edge {
			if _, ok := parent[v]; !ok {
				parent[v] = v
			}
		}
	}

	find := func(u T) T {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}
		return u
	}

	for _, edge := range edges {
		rootU, rootV := find(edge[0]), find(edge[1])
		if rootU == rootV {
			// Both endpoints already connected: this edge closes a cycle
			return false
		}
		switch {
		case rank[rootU] < rank[rootV]:
			parent[rootU] = rootV
		case rank[rootU] > rank[rootV]:
			parent[rootV] = rootU
		default:
			parent[rootV] = rootU
			rank[rootU]++
		}
	}

	// Acyclic with |E| = |V| - 1 means a single component
	return len(edges) == len(parent)-1
}
