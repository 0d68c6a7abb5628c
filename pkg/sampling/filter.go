/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filter.go
Description: Probabilistic sub-sampling of lazy sequences. A Sampler keeps each item
with a fixed probability using its own random stream, and Filter wraps a sequence so
that only kept items reach the consumer.
*/

package sampling

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"
)

// ErrInvalidProbability is returned for probabilities outside [0, 1]
var ErrInvalidProbability = errors.New("probability must be in [0, 1]")

// Sampler keeps items with a fixed probability
type Sampler struct {
	keep float64
	rng  *rand.Rand
}

// NewSampler creates a sampler that keeps items with probability keep
func NewSampler(keep float64, rng *rand.Rand) (*Sampler, error) {
	if keep < 0 || keep > 1 {
		return nil, fmt.Errorf("keep probability %v: %w", keep, ErrInvalidProbability)
	}
	if rng == nil {
		rng = NewRand(0)
	}
	return &Sampler{keep: keep, rng: rng}, nil
}

// KeepAll returns a sampler that keeps every item
func KeepAll() *Sampler {
	return &Sampler{keep: 1}
}

// Probability returns the keep probability
func (s *Sampler) Probability() float64 {
	return s.keep
}

// Keep draws a decision for one item
// Probabilities of exactly 0 or 1 never consume randomness
func (s *Sampler) Keep() bool {
	switch {
	case s == nil || s.keep >= 1:
		return true
	case s.keep <= 0:
		return false
	default:
		return s.rng.Float64() < s.keep
	}
}

// Filter yields the items of seq that the sampler keeps
// A nil sampler keeps everything
func Filter[T any](seq iter.Seq[T], s *Sampler) iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range seq {
			if s.Keep() && !yield(item) {
				return
			}
		}
	}
}

// Filter2 is Filter for sequences carrying errors
// Errors are always passed through
func Filter2[T any](seq iter.Seq2[T, error], s *Sampler) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			if s.Keep() && !yield(item, nil) {
				return
			}
		}
	}
}
