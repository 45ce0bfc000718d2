package cipher

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/codecs/internal/codecerr"
	"github.com/RowanDark/codecs/internal/vigenere"
	"github.com/RowanDark/codecs/internal/wichmannhill"
)

// Vigenère Operations

// VigenereEncodeOp scrambles the input with a password keystream. With a
// codec parameter the input is read as UTF-8 text and converted to that
// codec before scrambling.
type VigenereEncodeOp struct {
	BaseOperation
}

func (op *VigenereEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return executeOnce(ctx, op, input, params)
}

func (op *VigenereEncodeOp) NewStage(params map[string]interface{}) (Stage, error) {
	coder, codec, hasCodec, err := newVigenere(op.Name(), params)
	if err != nil {
		return nil, err
	}
	return StageFunc(func(ctx context.Context, input []byte) ([]byte, error) {
		if hasCodec {
			return coder.Encode(string(input), codec)
		}
		return coder.EncodeBytes(input)
	}), nil
}

// VigenereDecodeOp reverses VigenereEncodeOp.
type VigenereDecodeOp struct {
	BaseOperation
}

func (op *VigenereDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return executeOnce(ctx, op, input, params)
}

func (op *VigenereDecodeOp) NewStage(params map[string]interface{}) (Stage, error) {
	coder, codec, hasCodec, err := newVigenere(op.Name(), params)
	if err != nil {
		return nil, err
	}
	return StageFunc(func(ctx context.Context, input []byte) ([]byte, error) {
		if hasCodec {
			text, err := coder.Decode(input, codec)
			if err != nil {
				return nil, err
			}
			return []byte(text), nil
		}
		return coder.DecodeBytes(input)
	}), nil
}

func newVigenere(op string, params map[string]interface{}) (*vigenere.Coder, string, bool, error) {
	password, ok, err := bytesParam(op, params, ParamPassword)
	if err != nil {
		return nil, "", false, err
	}
	if !ok {
		return nil, "", false, codecerr.New(codecerr.NotInitialized, op, "parameter %q is required", ParamPassword)
	}
	coder, err := vigenere.New(password)
	if err != nil {
		return nil, "", false, err
	}
	codec, hasCodec, err := stringParam(op, params, ParamCodec)
	if err != nil {
		return nil, "", false, err
	}
	return coder, codec, hasCodec, nil
}

// Wichmann-Hill Operations
//
// The input is a list of decimal numbers separated by whitespace, commas or
// semicolons; the output has one number per line.

// WichmannHillEncodeOp divides each number by the next generator draw.
type WichmannHillEncodeOp struct {
	BaseOperation
}

func (op *WichmannHillEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return executeOnce(ctx, op, input, params)
}

func (op *WichmannHillEncodeOp) NewStage(params map[string]interface{}) (Stage, error) {
	coder, err := newWichmannHill(op.Name(), params)
	if err != nil {
		return nil, err
	}
	return numberStage(op.Name(), coder.EncodeSlice), nil
}

// WichmannHillDecodeOp multiplies each number by the next generator draw.
type WichmannHillDecodeOp struct {
	BaseOperation
}

func (op *WichmannHillDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return executeOnce(ctx, op, input, params)
}

func (op *WichmannHillDecodeOp) NewStage(params map[string]interface{}) (Stage, error) {
	coder, err := newWichmannHill(op.Name(), params)
	if err != nil {
		return nil, err
	}
	return numberStage(op.Name(), coder.DecodeSlice), nil
}

func newWichmannHill(op string, params map[string]interface{}) (*wichmannhill.Coder, error) {
	seed, err := seedParam(op, params)
	if err != nil {
		return nil, err
	}
	return wichmannhill.NewCoder(seed[0], seed[1], seed[2])
}

func numberStage(op string, fn func([]float64) []float64) Stage {
	return StageFunc(func(ctx context.Context, input []byte) ([]byte, error) {
		values, err := ParseNumbers(input)
		if err != nil {
			return nil, codecerr.Wrap(codecerr.TypeMismatch, op, err)
		}
		return FormatNumbers(fn(values)), nil
	})
}

// ParseNumbers reads decimal numbers separated by whitespace, commas or
// semicolons.
func ParseNumbers(input []byte) ([]float64, error) {
	fields := strings.FieldsFunc(string(input), isSeparator)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value at position %d is not a number: %q", i, f)
		}
		values[i] = v
	}
	return values, nil
}

// FormatNumbers writes one number per line in the shortest form that parses
// back to the same float64.
func FormatNumbers(values []float64) []byte {
	var buf bytes.Buffer
	for i, v := range values {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return buf.Bytes()
}

func executeOnce(ctx context.Context, op StatefulOperation, input []byte, params map[string]interface{}) ([]byte, error) {
	stage, err := op.NewStage(params)
	if err != nil {
		return nil, err
	}
	return stage.Apply(ctx, input)
}
