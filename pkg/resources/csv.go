/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: csv.go
Description: CSV loaders for relation descriptions and reducer tables. Both files
carry a header row; columns are matched by name.
*/

package resources

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/chainforge/pkg/algebra"
	"github.com/kleascm/chainforge/pkg/core"
)

// readRecords reads a headed CSV file into one map per row
func readRecords(path string, required ...string) ([]map[string]string, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		record := make(map[string]string, len(header))
		for i, column := range header {
			record[column] = strings.TrimSpace(row[i])
		}
		records = append(records, record)
	}

	for _, column := range required {
		for i, record := range records {
			if _, ok := record[column]; !ok {
				return nil, fmt.Errorf("%s row %d: missing column %q", path, i+1, column)
			}
		}
	}
	return records, nil
}

// LoadRelationsCSV loads relations from a type,description,surface_form file
// The type column may also be named type_
func LoadRelationsCSV(path string) ([]core.Relation, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	relations := make([]core.Relation, 0, len(records))
	for i, record := range records {
		rt, ok := record["type"]
		if !ok {
			rt, ok = record["type_"]
		}
		if !ok || rt == "" {
			return nil, fmt.Errorf("%s row %d: missing relation type", path, i+1)
		}
		relations = append(relations, core.Relation{
			Type:        core.RelationType(rt),
			Description: record["description"],
			SurfaceForm: record["surface_form"],
		})
	}
	return relations, nil
}

// RelationTypes returns the types of relations in order
func RelationTypes(relations []core.Relation) []core.RelationType {
	types := make([]core.RelationType, len(relations))
	for i, relation := range relations {
		types[i] = relation.Type
	}
	return types
}

// RelationMap indexes relations by type
func RelationMap(relations []core.Relation) map[core.RelationType]core.Relation {
	index := make(map[core.RelationType]core.Relation, len(relations))
	for _, relation := range relations {
		index[relation.Type] = relation
	}
	return index
}

// LoadReducerCSV builds a reducer over relations from a
// relation1,relation2,case,reduction_type,reduction_order file
// With strict set, a case link registered twice is an error
func LoadReducerCSV(path string, relations []core.Relation, strict bool) (*algebra.Reducer, error) {
	records, err := readRecords(path, "relation1", "relation2", "case", "reduction_type", "reduction_order")
	if err != nil {
		return nil, err
	}

	reducer := algebra.NewReducer(RelationTypes(relations))
	for i, record := range records {
		c, err := algebra.ParseCase(record["case"])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		order, err := algebra.ParseOrder(record["reduction_order"])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		link := algebra.CaseLink{
			Type1: core.RelationType(record["relation1"]),
			Type2: core.RelationType(record["relation2"]),
			Case:  c,
		}
		reduction := algebra.Reduction{Type: core.RelationType(record["reduction_type"]), Order: order}
		if err := reducer.Register(link, reduction, strict); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
	}
	return reducer, nil
}
