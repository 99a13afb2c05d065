package playlist

import (
	"math/rand"

	"github.com/stwalsh4118/rerun/internal/models"
)

const lcgModulus = 233280

// seededShuffle returns a deterministic permutation of members for the
// given seed string. The generator is a small linear congruential PRNG
// ((seed*9301 + 49297) mod 233280) keyed by a 32-bit string hash; both are
// kept exactly as published so saved orderings reproduce byte for byte
// across implementations. The input slice is not modified.
func seededShuffle(members []*models.BucketMember, seed string) []*models.BucketMember {
	out := make([]*models.BucketMember, len(members))
	copy(out, members)

	gen := newLCG(hashSeed(seed))
	for i := len(out) - 1; i > 0; i-- {
		j := int(gen.next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// randomShuffle returns a non-deterministic permutation of members.
// The input slice is not modified.
func randomShuffle(members []*models.BucketMember) []*models.BucketMember {
	out := make([]*models.BucketMember, len(members))
	copy(out, members)

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// hashSeed folds a string into a signed 32-bit hash, h = h*31 + c with
// wrapping overflow.
func hashSeed(s string) int32 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + int32(c)
	}
	return h
}

// lcg is the seeded generator behind deterministic shuffles. Values are
// kept below the modulus, so next() always lands in [0, 1).
type lcg struct {
	state int64
}

func newLCG(seed int32) *lcg {
	s := int64(seed)
	if s < 0 {
		s = -s
	}
	return &lcg{state: s % lcgModulus}
}

func (g *lcg) next() float64 {
	g.state = (g.state*9301 + 49297) % lcgModulus
	return float64(g.state) / lcgModulus
}
