// Package random supplies the seeds and generators behind dice rolls.
//
// Seeds come from crypto/rand; every evaluation then owns a math/rand
// generator built from its seed, so a recorded seed replays a roll exactly.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// SeedOrNew returns seed when provided, otherwise a fresh one.
func SeedOrNew(seed int64, provided bool) (int64, error) {
	if provided {
		return seed, nil
	}
	return NewSeed()
}

// NewRand returns a generator that is not safe for concurrent use.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
