/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: jsonl.go
Description: JSON Lines persistence for trees and instantiation records.
*/

package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// WriteJSONL writes one JSON document per line and returns the number written
func WriteJSONL[T any](path string, items iter.Seq[T]) (count int, err error) {
	w, err := Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := w.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	encoder := json.NewEncoder(w)
	for item := range items {
		if err := encoder.Encode(item); err != nil {
			return count, fmt.Errorf("failed to write %s line %d: %w", path, count+1, err)
		}
		count++
	}
	return count, nil
}

// ReadJSONL lazily decodes one document per line
func ReadJSONL[T any](path string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		r, err := Open(path)
		if err != nil {
			yield(zero, err)
			return
		}
		defer r.Close()

		decoder := json.NewDecoder(r)
		for line := 1; ; line++ {
			var item T
			err := decoder.Decode(&item)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(zero, fmt.Errorf("failed to read %s line %d: %w", path, line, err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// LoadJSONL reads every document of path
func LoadJSONL[T any](path string) ([]T, error) {
	var items []T
	for item, err := range ReadJSONL[T](path) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
