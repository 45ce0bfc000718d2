// Package wichmannhill implements the Wichmann-Hill pseudo-random generator
// and a numeric scrambler built on it.
//
// The generator combines three multiplicative congruential lanes, each
// computed with Schrage's decomposition so intermediate products stay
// small. Its output is deterministic for a given seed and has no security
// value.
package wichmannhill

import (
	"github.com/RowanDark/codecs/internal/codecerr"
)

type lane struct {
	mult, quot, rem, mod int64
}

// s' = (mult*(s mod quot) - rem*floor(s/quot)) mod mod
var lanes = [3]lane{
	{mult: 171, quot: 177, rem: 2, mod: 30269},
	{mult: 172, quot: 176, rem: 35, mod: 30307},
	{mult: 170, quot: 178, rem: 63, mod: 30323},
}

var ordinals = [3]string{"first", "second", "third"}

// Generator is a Wichmann-Hill source of floats in [0,1).
// It is not safe for concurrent use.
type Generator struct {
	s [3]int64
}

// NewGenerator returns a generator seeded with 1, 1, 1.
func NewGenerator() *Generator {
	return &Generator{s: [3]int64{1, 1, 1}}
}

// Seed replaces the generator state. Every seed must be positive.
func (g *Generator) Seed(s1, s2, s3 int) error {
	seeds := [3]int{s1, s2, s3}
	if err := checkSeeds(seeds); err != nil {
		return err
	}
	for i, s := range seeds {
		g.s[i] = int64(s)
	}
	return nil
}

func checkSeeds(seeds [3]int) error {
	for i, s := range seeds {
		if s < 1 {
			return codecerr.New(codecerr.InvalidArgument, "wichmannhill.Seed",
				"%s seed must be a positive integer, got %d", ordinals[i], s)
		}
	}
	return nil
}

// State returns the current lane values.
func (g *Generator) State() (s1, s2, s3 int) {
	return int(g.s[0]), int(g.s[1]), int(g.s[2])
}

// Next advances all three lanes and returns the fractional part of the sum
// of the lanes scaled by their moduli.
func (g *Generator) Next() float64 {
	var r float64
	for i, l := range lanes {
		s := g.s[i]
		next := (l.mult*(s%l.quot) - l.rem*(s/l.quot)) % l.mod
		if next < 0 {
			next += l.mod
		}
		g.s[i] = next
		r += float64(next) / float64(l.mod)
	}
	return r - float64(int64(r))
}
