/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: csv.go
Description: Loads a directory of two-column assertion files into a MemoryStore. Each
file holds the assertions of one relation; its file stem is mapped to a relation type
through a relation map.
*/

package termdb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
)

// ErrUnmappedRelation is returned for an assertion file whose stem has no relation type
var ErrUnmappedRelation = errors.New("no relation type mapped for file")

// LoadCSVDir walks dir and loads every regular file as headerless source,target rows
func LoadCSVDir(dir string, relationMap map[string]core.RelationType, logger logrus.FieldLogger) (*MemoryStore, error) {
	store := NewMemoryStore()
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		rt, ok := relationMap[stem]
		if !ok {
			return fmt.Errorf("%s: %w", path, ErrUnmappedRelation)
		}

		count, err := loadCSVFile(store, rt, path)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"file":          path,
			"relation_type": rt,
			"assertions":    count,
		}).Debug("Loaded assertion file")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load term database from %s: %w", dir, err)
	}
	return store, nil
}

func loadCSVFile(store *MemoryStore, rt core.RelationType, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open assertion file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read %s: %w", path, err)
		}
		store.Add(rt, Assertion{Source: core.Term(record[0]), Target: core.Term(record[1])})
		count++
	}
}
