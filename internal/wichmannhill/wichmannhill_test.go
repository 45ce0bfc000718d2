package wichmannhill

import (
	"errors"
	"math"
	"testing"

	"github.com/RowanDark/codecs/internal/codecerr"
)

func TestGeneratorSequences(t *testing.T) {
	tests := []struct {
		seed [3]int
		want []float64
	}{
		{
			seed: [3]int{1, 1, 1},
			want: []float64{
				0.01693091, 0.89525391, 0.11149102, 0.93952680, 0.12822986,
				0.17800399, 0.29982708, 0.34971841, 0.05928746, 0.82197931,
				0.88139716, 0.16007288, 0.64780522, 0.48791600, 0.31410325,
			},
		},
		{
			seed: [3]int{1, 2, 3},
			want: []float64{
				0.03381877, 0.77754189, 0.05273525, 0.74462407, 0.49036219,
				0.98285437, 0.80915099, 0.71338138, 0.80102091, 0.98958603,
				0.91685632, 0.46664672, 0.67019946, 0.92749661, 0.84314959,
			},
		},
		{
			seed: [3]int{1, 150503156, 10},
			want: []float64{
				0.08230170, 0.03811720, 0.52868174, 0.29623892, 0.46701796,
				0.78095718, 0.34553792, 0.63176220, 0.93348221, 0.83601751,
				0.22793339, 0.19849637, 0.06926428, 0.12384706, 0.33956381,
			},
		},
	}

	for _, tt := range tests {
		g := NewGenerator()
		if err := g.Seed(tt.seed[0], tt.seed[1], tt.seed[2]); err != nil {
			t.Fatalf("seed %v: %v", tt.seed, err)
		}
		for i, want := range tt.want {
			got := g.Next()
			if math.Abs(got-want) > 1e-8 {
				t.Fatalf("seed %v step %d: expected %.8f, got %.8f", tt.seed, i, want, got)
			}
			if got < 0 || got >= 1 {
				t.Fatalf("seed %v step %d: %v outside [0,1)", tt.seed, i, got)
			}
		}
	}
}

func TestDefaultGeneratorMatchesOnes(t *testing.T) {
	a := NewGenerator()
	b := NewGenerator()
	if err := b.Seed(1, 1, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i := 0; i < 50; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("default generator diverged at step %d", i)
		}
	}
}

func TestSeedValidation(t *testing.T) {
	tests := []struct {
		name string
		seed [3]int
	}{
		{"zero first", [3]int{0, 1, 1}},
		{"negative second", [3]int{1, -5, 1}},
		{"zero third", [3]int{1, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator()
			err := g.Seed(tt.seed[0], tt.seed[1], tt.seed[2])
			if !errors.Is(err, codecerr.ErrInvalidArgument) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if s1, s2, s3 := g.State(); s1 != 1 || s2 != 1 || s3 != 1 {
				t.Fatalf("state changed on failed seed: %d %d %d", s1, s2, s3)
			}
		})
	}
	if _, err := NewCoder(1, 1, -1); !errors.Is(err, codecerr.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument from NewCoder, got %v", err)
	}
}

func TestCoderScalar(t *testing.T) {
	enc, _ := NewCoder(1, 1, 1)
	got := enc.Encode(10)
	if math.Abs(got-590.6009566839366) > 1e-9 {
		t.Fatalf("expected 590.6009566839366, got %v", got)
	}

	dec, _ := NewCoder(1, 1, 1)
	if back := dec.Decode(got); math.Abs(back-10) > 1e-9 {
		t.Fatalf("expected 10 back, got %v", back)
	}
}

func TestCoderRoundTripSlices(t *testing.T) {
	values := []float64{0, 1, -1, 3.14159, 1e9, -2.5e-7, 42}
	enc, _ := NewCoder(7, 11, 13)
	dec, _ := NewCoder(7, 11, 13)

	got := dec.DecodeSlice(enc.EncodeSlice(values))
	for i := range values {
		if math.Abs(got[i]-values[i]) > 1e-9*math.Max(1, math.Abs(values[i])) {
			t.Fatalf("index %d: expected %v, got %v", i, values[i], got[i])
		}
	}
}

func TestCoderContinuesAcrossCalls(t *testing.T) {
	whole, _ := NewCoder(3, 5, 7)
	all := whole.EncodeSlice([]float64{1, 2, 3, 4})

	parts, _ := NewCoder(3, 5, 7)
	first := parts.EncodeSlice([]float64{1, 2})
	second := parts.EncodeSlice([]float64{3, 4})
	got := append(first, second...)
	for i := range all {
		if got[i] != all[i] {
			t.Fatalf("index %d: expected %v, got %v", i, all[i], got[i])
		}
	}

	if err := parts.Seed(3, 5, 7); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if v := parts.Encode(1); v != all[0] {
		t.Fatalf("expected reseed to restart sequence")
	}
}

func TestCoderValueTypes(t *testing.T) {
	tests := []struct {
		name  string
		input any
		slice bool
	}{
		{"int", 5, false},
		{"float", 2.5, false},
		{"uint8", uint8(9), false},
		{"float slice", []float64{1, 2}, true},
		{"int slice", []int{1, 2, 3}, true},
		{"mixed any slice", []any{1, 2.5, int64(3)}, true},
		{"empty slice", []any{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := NewCoder(1, 1, 1)
			out, err := c.EncodeValue(tt.input)
			if err != nil {
				t.Fatalf("encode value: %v", err)
			}
			_, isSlice := out.([]float64)
			if isSlice != tt.slice {
				t.Fatalf("expected slice=%v, got %T", tt.slice, out)
			}
			d, _ := NewCoder(1, 1, 1)
			if _, err := d.DecodeValue(out); err != nil {
				t.Fatalf("decode value: %v", err)
			}
		})
	}
}

func TestCoderRejectsNonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"bool", true},
		{"string", "12"},
		{"bytes", []byte{1, 2}},
		{"map", map[string]int{"a": 1}},
		{"nil", nil},
		{"bool in sequence", []any{1, true}},
		{"string in sequence", []any{1.0, 2.0, "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := NewCoder(1, 1, 1)
			if _, err := c.EncodeValue(tt.input); !errors.Is(err, codecerr.ErrTypeMismatch) {
				t.Fatalf("encode: expected TypeMismatch, got %v", err)
			}
			if _, err := c.DecodeValue(tt.input); !errors.Is(err, codecerr.ErrTypeMismatch) {
				t.Fatalf("decode: expected TypeMismatch, got %v", err)
			}
			if s1, s2, s3 := c.Generator().State(); s1 != 1 || s2 != 1 || s3 != 1 {
				t.Fatalf("generator advanced on rejected input")
			}
		})
	}
}
