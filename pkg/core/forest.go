/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: forest.go
Description: Instantiation forest storage. Keeps every family (one per relational tree
with at least one accepted instantiation) alongside an id-indexed map of instantiation
records, and reports composition statistics for the generated forest.
*/

package core

// InstantiationForest manages the families and records produced for a QA sample
// Not safe for concurrent use; a forest is filled by a single generation run
type InstantiationForest struct {
	Families []*InstantiationFamily                 `json:"families"`
	Data     map[InstantiationID]*InstantiationData `json:"data"`
}

// NewInstantiationForest creates an empty forest
func NewInstantiationForest() *InstantiationForest {
	return &InstantiationForest{
		Data: make(map[InstantiationID]*InstantiationData),
	}
}

// AddFamily registers a new family for the given tree and returns it
func (f *InstantiationForest) AddFamily(tree RelationalTree) *InstantiationFamily {
	family := &InstantiationFamily{Tree: tree}
	f.Families = append(f.Families, family)
	return family
}

// AddData stores a record by id
// Records with an id already present are ignored
func (f *InstantiationForest) AddData(data *InstantiationData) {
	if _, exists := f.Data[data.ID]; exists {
		return
	}
	f.Data[data.ID] = data
}

// Get retrieves a record by id
// Returns nil if the record doesn't exist
func (f *InstantiationForest) Get(id InstantiationID) *InstantiationData {
	return f.Data[id]
}

// FamilyData resolves the records of a family
func (f *InstantiationForest) FamilyData(family *InstantiationFamily) map[InstantiationID]*InstantiationData {
	records := make(map[InstantiationID]*InstantiationData, len(family.DataIDs))
	for _, id := range family.DataIDs {
		if data, ok := f.Data[id]; ok {
			records[id] = data
		}
	}
	return records
}

// Size returns the number of stored records
func (f *InstantiationForest) Size() int {
	return len(f.Data)
}

// GetStats returns forest statistics
// Provides information about forest composition
func (f *InstantiationForest) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})
	stats["families"] = len(f.Families)
	stats["instantiations"] = len(f.Data)

	// Distribution over reasoning hops and anti-factual variable counts
	hopCount := make(map[int]int)
	afCount := make(map[int]int)
	for _, data := range f.Data {
		hopCount[data.ReasoningHops]++
		afCount[len(data.AntiFactualIDs)]++
	}
	stats["hop_distribution"] = hopCount
	stats["anti_factual_distribution"] = afCount

	if len(f.Families) > 0 {
		stats["avg_family_size"] = float64(len(f.Data)) / float64(len(f.Families))
	}

	return stats
}
