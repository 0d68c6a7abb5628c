/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: forest.go
Description: Persistence of instantiation forests as a pair of JSON Lines files: one
family per line, and one instantiation record per line in family order.
*/

package resources

import (
	"fmt"
	"iter"
	"slices"

	"github.com/kleascm/chainforge/pkg/core"
)

// WriteForest writes the families and records of forest
func WriteForest(familiesPath, dataPath string, forest *core.InstantiationForest) error {
	if _, err := WriteJSONL(familiesPath, slices.Values(forest.Families)); err != nil {
		return err
	}

	var data iter.Seq[*core.InstantiationData] = func(yield func(*core.InstantiationData) bool) {
		for _, family := range forest.Families {
			for _, id := range family.DataIDs {
				if record := forest.Get(id); record != nil && !yield(record) {
					return
				}
			}
		}
	}
	_, err := WriteJSONL(dataPath, data)
	return err
}

// ReadForest reads a forest written by WriteForest
func ReadForest(familiesPath, dataPath string) (*core.InstantiationForest, error) {
	forest := core.NewInstantiationForest()

	families, err := LoadJSONL[*core.InstantiationFamily](familiesPath)
	if err != nil {
		return nil, err
	}
	forest.Families = families

	for record, err := range ReadJSONL[*core.InstantiationData](dataPath) {
		if err != nil {
			return nil, err
		}
		forest.AddData(record)
	}

	for _, family := range forest.Families {
		for _, id := range family.DataIDs {
			if forest.Get(id) == nil {
				return nil, fmt.Errorf("family references unknown instantiation %s", id)
			}
		}
	}
	return forest, nil
}
