package selector

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Rand is the randomness a session draws from. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns a PCG generator. Seed 0 draws the seed from crypto/rand.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.Uint64()
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Chance returns true with probability p.
func Chance(r Rand, p float64) bool {
	return r.Float64() < p
}

// Pick returns a uniformly chosen element of items. items must not be empty.
func Pick[T any](r Rand, items []T) T {
	return items[r.IntN(len(items))]
}
