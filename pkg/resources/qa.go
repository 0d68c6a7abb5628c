/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: qa.go
Description: YAML loaders for QA samples and term database relation maps.
*/

package resources

import (
	"fmt"
	"io"

	"github.com/kleascm/chainforge/pkg/core"
	"gopkg.in/yaml.v3"
)

func decodeYAML(path string, out interface{}) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadQADataYAML loads a list of QA samples and validates each one
func LoadQADataYAML(path string) ([]*core.QAData, error) {
	var samples []*core.QAData
	if err := decodeYAML(path, &samples); err != nil {
		return nil, err
	}
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return samples, nil
}

// LoadRelationMapYAML loads a mapping from term database relation names to relation types
func LoadRelationMapYAML(path string) (map[string]core.RelationType, error) {
	relationMap := make(map[string]core.RelationType)
	if err := decodeYAML(path, &relationMap); err != nil {
		return nil, err
	}
	return relationMap, nil
}
