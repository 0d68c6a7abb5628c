/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filter_test.go
Description: Tests for samplers and deterministic random streams.
*/

package sampling_test

import (
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/kleascm/chainforge/pkg/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// TestNewSamplerBounds tests probability validation
func TestNewSamplerBounds(t *testing.T) {
	_, err := sampling.NewSampler(-0.1, nil)
	assert.ErrorIs(t, err, sampling.ErrInvalidProbability)
	_, err = sampling.NewSampler(1.5, nil)
	assert.ErrorIs(t, err, sampling.ErrInvalidProbability)

	s, err := sampling.NewSampler(0.5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Probability())
}

// TestFilterExtremes tests that 0 and 1 keep nothing and everything
func TestFilterExtremes(t *testing.T) {
	none, err := sampling.NewSampler(0, sampling.NewRand(7))
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(sampling.Filter(numbers(20), none)))

	all, err := sampling.NewSampler(1, sampling.NewRand(7))
	require.NoError(t, err)
	assert.Len(t, slices.Collect(sampling.Filter(numbers(20), all)), 20)

	assert.Len(t, slices.Collect(sampling.Filter(numbers(5), nil)), 5)
}

// TestFilterDeterministic tests that equal seeds keep equal items
func TestFilterDeterministic(t *testing.T) {
	first, err := sampling.NewSampler(0.5, sampling.DeriveRand(42, sampling.StreamPairing))
	require.NoError(t, err)
	second, err := sampling.NewSampler(0.5, sampling.DeriveRand(42, sampling.StreamPairing))
	require.NoError(t, err)

	a := slices.Collect(sampling.Filter(numbers(200), first))
	b := slices.Collect(sampling.Filter(numbers(200), second))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	assert.Less(t, len(a), 200)
}

// TestFilter2PassesErrors tests that errors are forwarded regardless of sampling
func TestFilter2PassesErrors(t *testing.T) {
	boom := errors.New("boom")
	seq := func(yield func(int, error) bool) {
		if !yield(1, nil) {
			return
		}
		yield(0, boom)
	}
	none, err := sampling.NewSampler(0, nil)
	require.NoError(t, err)

	var errs []error
	for _, err := range sampling.Filter2(seq, none) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}
