/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: generic.go
Description: Generic tree builder. Turns a sequence of generic case links into a
generic tree by creating one template per relation id, merging linked endpoints in an
integer-indexed arena, and keeping only configurations whose merged variable graph is a
poly-tree. Cyclic configurations are rejected even when a semantically equivalent
acyclic tree exists; enumeration reaches that tree through another link sequence.
*/

package transform

import (
	"errors"
	"fmt"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
)

var (
	errConflictingParent = errors.New("variable already has a parent")
	errParentCycle       = errors.New("parent assignment closes a cycle")
)

const noParent = -1

// variableArena stores every template endpoint as an index with a parent pointer
type variableArena struct {
	parent []int
}

func (a *variableArena) add() int {
	a.parent = append(a.parent, noParent)
	return len(a.parent) - 1
}

// find returns the representative of i, compressing the path on the way
func (a *variableArena) find(i int) int {
	root := i
	for a.parent[root] != noParent {
		root = a.parent[root]
	}
	for a.parent[i] != noParent && a.parent[i] != root {
		next := a.parent[i]
		a.parent[i] = root
		i = next
	}
	return root
}

// link makes main the parent of linked
func (a *variableArena) link(main, linked int) error {
	if a.parent[linked] != noParent {
		return errConflictingParent
	}
	if a.find(main) == linked {
		return errParentCycle
	}
	a.parent[linked] = main
	return nil
}

type arenaTemplate struct {
	relation       core.RelationID
	source, target int
}

// GenericTreeBuilder builds generic trees from case links
type GenericTreeBuilder struct {
	logger logrus.FieldLogger
}

// NewGenericTreeBuilder creates a builder logging to the standard logger
func NewGenericTreeBuilder() *GenericTreeBuilder {
	return &GenericTreeBuilder{logger: logrus.StandardLogger()}
}

// SetLogger sets the logger used for rejection diagnostics
func (b *GenericTreeBuilder) SetLogger(logger logrus.FieldLogger) {
	b.logger = logger
}

// Build returns the generic tree described by links, or nil when the links do
// not describe a poly-tree. An unsupported case value is an error.
func (b *GenericTreeBuilder) Build(links []algebra.GenericCaseLink) (*core.GenericTree, error) {
	arena := &variableArena{}
	var templates []arenaTemplate
	index := make(map[core.RelationID]int)

	templateFor := func(id core.RelationID) int {
		if i, ok := index[id]; ok {
			return i
		}
		templates = append(templates, arenaTemplate{relation: id, source: arena.add(), target: arena.add()})
		index[id] = len(templates) - 1
		return len(templates) - 1
	}

	// Create templates first so variable names follow first appearance
	for _, link := range links {
		templateFor(link.R1)
		templateFor(link.R2)
	}

	for _, link := range links {
		main, linked := templates[index[link.R1]], templates[index[link.R2]]
		var mainVar, linkedVar int
		switch link.Case {
		case algebra.CaseZero:
			continue
		case algebra.CaseOne:
			mainVar, linkedVar = main.target, linked.source
		case algebra.CaseTwo:
			mainVar, linkedVar = main.target, linked.target
		case algebra.CaseThree:
			mainVar, linkedVar = main.source, linked.source
		case algebra.CaseFour:
			mainVar, linkedVar = main.source, linked.target
		default:
			return nil, fmt.Errorf("link %s-%s: %w", link.R1, link.R2, algebra.ErrUnsupportedCase)
		}
		if err := arena.link(mainVar, linkedVar); err != nil {
			b.logger.WithFields(logrus.Fields{
				"r1":   link.R1,
				"r2":   link.R2,
				"case": link.Case.String(),
			}).Debugf("Rejecting case links: %v", err)
			return nil, nil
		}
	}

	edges := make([][2]int, len(templates))
	for i, template := range templates {
		edges[i] = [2]int{arena.find(template.source), arena.find(template.target)}
	}
	if !core.IsPolyTree(edges) {
		b.logger.WithFields(logrus.Fields{"links": len(links)}).Debug("Rejecting case links: not a poly-tree")
		return nil, nil
	}

	tree := &core.GenericTree{Templates: make([]core.GenericTemplate, len(templates))}
	for i, template := range templates {
		tree.Templates[i] = core.GenericTemplate{
			Source:     variableName(edges[i][0]),
			RelationID: template.relation,
			Target:     variableName(edges[i][1]),
		}
	}
	return tree, nil
}

func variableName(i int) core.VarID {
	return core.VarID(fmt.Sprintf("V%d", i))
}
