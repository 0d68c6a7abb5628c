/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rng.go
Description: Deterministic random number streams. Every random decision in chainforge
draws from an explicit *rand.Rand created here; components that need independent
streams derive them from the configured seed and a stream identifier.
*/

package sampling

import "math/rand"

// defaultSeed replaces a zero seed so that defaults stay reproducible
const defaultSeed int64 = 1

// Stream identifiers for the generation stages
const (
	StreamGeneric uint64 = iota + 1
	StreamRelational
	StreamPairing
	StreamAntiFactual
	StreamSorter
)

// NewRand returns a deterministic generator for seed
// A zero seed uses defaultSeed
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// DeriveRand returns an independent generator for one stream of a seed
func DeriveRand(seed int64, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(mixSeed(seed, stream)))
}

// mixSeed applies a SplitMix64 finalizer to the seed and stream
func mixSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}
