package randutil

import (
	crand "crypto/rand"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences. Tests use this to replay
// exact deals.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewCrypto returns a *rand.Rand backed by a ChaCha8 stream seeded from the
// operating system CSPRNG. Hands are shuffled with a fresh one of these so a
// client that logs every state cannot predict future deals.
func NewCrypto() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// No safe way to shuffle without OS entropy.
		panic("randutil: crypto/rand unavailable: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
