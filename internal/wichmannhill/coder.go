package wichmannhill

import (
	"github.com/RowanDark/codecs/internal/codecerr"
)

// Epsilon keeps the divisor away from zero when the generator yields 0.
const Epsilon = 1e-6

// Coder scrambles numbers by dividing them by successive generator outputs
// and unscrambles them by multiplying. Generator state carries over between
// calls; reseed to start a fresh message.
type Coder struct {
	gen *Generator
}

// NewCoder returns a Coder whose generator is seeded with s1, s2, s3.
func NewCoder(s1, s2, s3 int) (*Coder, error) {
	g := NewGenerator()
	if err := g.Seed(s1, s2, s3); err != nil {
		return nil, err
	}
	return &Coder{gen: g}, nil
}

// Seed reseeds the underlying generator.
func (c *Coder) Seed(s1, s2, s3 int) error {
	return c.gen.Seed(s1, s2, s3)
}

// Generator exposes the underlying generator.
func (c *Coder) Generator() *Generator {
	return c.gen
}

// Encode scrambles a single value.
func (c *Coder) Encode(v float64) float64 {
	return v / (c.gen.Next() + Epsilon)
}

// Decode unscrambles a single value.
func (c *Coder) Decode(v float64) float64 {
	return v * (c.gen.Next() + Epsilon)
}

// EncodeSlice scrambles values in order, one draw per element.
func (c *Coder) EncodeSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = c.Encode(v)
	}
	return out
}

// DecodeSlice unscrambles values in order, one draw per element.
func (c *Coder) DecodeSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = c.Decode(v)
	}
	return out
}

// EncodeValue accepts any Go integer or float, or a slice of them, and
// returns a float64 or []float64. Booleans, strings and byte slices are
// rejected with codecerr.TypeMismatch.
func (c *Coder) EncodeValue(v any) (any, error) {
	return c.apply(v, c.Encode, "wichmannhill.EncodeValue")
}

// DecodeValue is the inverse of EncodeValue.
func (c *Coder) DecodeValue(v any) (any, error) {
	return c.apply(v, c.Decode, "wichmannhill.DecodeValue")
}

func (c *Coder) apply(v any, fn func(float64) float64, op string) (any, error) {
	if f, ok := toFloat(v); ok {
		return fn(f), nil
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, codecerr.New(codecerr.TypeMismatch, op,
			"expected a number or a sequence of numbers, got %T", v)
	}
	// validate first so a bad element leaves the generator untouched
	values := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, codecerr.New(codecerr.TypeMismatch, op,
				"expected a number at position %d in the sequence, got %T", i, item)
		}
		values[i] = f
	}
	for i, f := range values {
		values[i] = fn(f)
	}
	return values, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toSlice widens the supported slice types to []any. []byte is deliberately
// absent: byte buffers are not numeric sequences.
func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []float64:
		return widen(s), true
	case []float32:
		return widen(s), true
	case []int:
		return widen(s), true
	case []int32:
		return widen(s), true
	case []int64:
		return widen(s), true
	case []uint16:
		return widen(s), true
	case []uint32:
		return widen(s), true
	case []uint64:
		return widen(s), true
	default:
		return nil, false
	}
}

func widen[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
