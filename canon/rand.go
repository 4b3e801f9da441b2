// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canon

import "encoding/binary"

// lcgMultiplier and lcgIncrement are the Numerical-Recipes LCG constants
// used for all engine-internal pseudo-randomness. Any other choice would
// still be "deterministic," but every implementation must agree on the
// same constants to produce bit-identical event streams.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// SeedFromRunID derives the engine's deterministic seed from a run_id:
// the first 32 bits of blake3(run_id), big-endian.
func SeedFromRunID(runID string) uint32 {
	sum := digestBytes(runID)
	return binary.BigEndian.Uint32(sum[:4])
}

// Rand is a minimal linear-congruential generator. It is not suitable
// for anything security-sensitive; it exists solely so that the engine
// can produce reproducible "randomness" derived only from run_id.
type Rand struct {
	state uint32
}

// NewRand constructs a Rand seeded from seed.
func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Next advances the generator and returns the next 32-bit value.
func (r *Rand) Next() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Uint64 combines two successive Next() calls into a 64-bit value.
func (r *Rand) Uint64() uint64 {
	hi := uint64(r.Next())
	lo := uint64(r.Next())
	return hi<<32 | lo
}

func digestBytes(s string) [32]byte {
	return blake3Sum([]byte(s))
}
