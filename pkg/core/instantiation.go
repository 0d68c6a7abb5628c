/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instantiation.go
Description: Instantiation records and QA samples. An InstantiationData captures one
accepted search result: which tree template was paired with which QA template, which
variable answers the question, how many reasoning hops separate them, which variables
were instantiated anti-factually, and the full variable mapping.
*/

package core

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidQAData is returned when a QA sample cannot be used for pairing
var ErrInvalidQAData = errors.New("invalid QA data")

// InstantiationID identifies an InstantiationData record
type InstantiationID string

// Pairing fixes a tree variable to a term taken from a QA sample
type Pairing struct {
	VarID VarID `json:"var_id"`
	Term  Term  `json:"term"`
}

// InstantiationData holds everything needed to turn a relational tree into a concrete tree
type InstantiationData struct {
	ID              InstantiationID    `json:"id"`
	PairingTemplate RelationalTemplate `json:"pairing_template"` // Template of the tree paired with the QA sample
	Pairing         Pairing            `json:"pairing"`          // Fixed variable and its term
	QATemplate      Template           `json:"qa_template"`      // QA pairing template it was matched to
	AnswerID        VarID              `json:"answer_id"`        // Variable carrying the answer choice
	ReasoningHops   int                `json:"reasoning_hops"`   // Hops between pairing and answer, -1 if unknown
	AntiFactualIDs  []VarID            `json:"anti_factual_ids"` // Variables instantiated anti-factually
	Mapping         Mapping            `json:"mapping"`          // Full variable to term assignment
}

// WithResult returns a copy of the data carrying a search result
// The receiver is never modified
func (d *InstantiationData) WithResult(id InstantiationID, antiFactualIDs []VarID, mapping Mapping) *InstantiationData {
	clone := *d
	clone.ID = id
	clone.AntiFactualIDs = append([]VarID(nil), antiFactualIDs...)
	clone.Mapping = mapping.Clone()
	return &clone
}

// MappingDistance counts variables whose terms differ between two records
// Answer and pairing variables are skipped unless explicitly counted
func (d *InstantiationData) MappingDistance(other *InstantiationData, countAnswer, countPairing bool) int {
	skip := make(map[VarID]struct{})
	if !countAnswer {
		skip[d.AnswerID] = struct{}{}
		skip[other.AnswerID] = struct{}{}
	}
	if !countPairing {
		skip[d.Pairing.VarID] = struct{}{}
		skip[other.Pairing.VarID] = struct{}{}
	}

	count := 0
	for id, term := range d.Mapping {
		if _, skipped := skip[id]; skipped {
			continue
		}
		if other.Mapping[id] != term {
			count++
		}
	}
	return count
}

// Instantiate builds the concrete tree described by this record
// The pairing template takes the relation of the QA template it was matched to
func (d *InstantiationData) Instantiate(tree *RelationalTree, relations map[RelationType]Relation) (*Tree, error) {
	result := &Tree{Templates: make([]Template, 0, len(tree.Templates))}
	found := false

	for _, template := range tree.Templates {
		relation, ok := relations[template.Type]
		if !ok {
			return nil, fmt.Errorf("unknown relation type %q", template.Type)
		}
		concrete := Template{
			Source:   Variable{ID: template.Source, Term: d.Mapping[template.Source]},
			Relation: relation,
			Target:   Variable{ID: template.Target, Term: d.Mapping[template.Target]},
		}
		if template == d.PairingTemplate {
			concrete.Relation = d.QATemplate.Relation
			result.Pairing = concrete
			found = true
		}
		result.Templates = append(result.Templates, concrete)
	}

	if !found {
		return nil, fmt.Errorf("pairing template %s not found in tree", d.PairingTemplate)
	}
	return result, nil
}

// InstantiationFamily groups the records produced for a single relational tree
type InstantiationFamily struct {
	Tree    RelationalTree    `json:"tree"`
	DataIDs []InstantiationID `json:"data_ids"`
}

// Add appends a record id to the family
func (f *InstantiationFamily) Add(id InstantiationID) {
	f.DataIDs = append(f.DataIDs, id)
}

// QAData is a single QA sample used to seed instantiation
type QAData struct {
	ID                 string         `json:"id" yaml:"id"`
	Question           string         `json:"question" yaml:"question"`
	CorrectAnswerLabel Label          `json:"correct_answer_label" yaml:"correct_answer_label"`
	AnswerChoices      map[Label]Term `json:"answer_choices" yaml:"answer_choices"`
	PairingTemplates   []Template     `json:"pairing_templates" yaml:"pairing_templates"`
}

// Validate checks that each pairing template has exactly one free variable
// and that the correct answer label names one of the choices
func (q *QAData) Validate() error {
	for i, template := range q.PairingTemplates {
		if template.Source.Assigned() == template.Target.Assigned() {
			return fmt.Errorf("sample %s pairing template %d must have one free variable: %w", q.ID, i, ErrInvalidQAData)
		}
	}
	if _, ok := q.AnswerChoices[q.CorrectAnswerLabel]; !ok {
		return fmt.Errorf("sample %s correct label %q is not an answer choice: %w", q.ID, q.CorrectAnswerLabel, ErrInvalidQAData)
	}
	return nil
}

// Labels returns the answer labels in sorted order
func (q *QAData) Labels() []Label {
	labels := make([]Label, 0, len(q.AnswerChoices))
	for label := range q.AnswerChoices {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
