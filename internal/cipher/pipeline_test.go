package cipher

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/RowanDark/codecs/internal/codecerr"
)

func TestPipelineExecution(t *testing.T) {
	tests := []struct {
		name       string
		operations []OperationConfig
		input      string
		expected   string
	}{
		{
			name: "single operation",
			operations: []OperationConfig{
				{Name: "hex_encode"},
			},
			input:    "hi",
			expected: "6869",
		},
		{
			name: "xor then hex",
			operations: []OperationConfig{
				{Name: "xor_encode"},
				{Name: "hex_encode"},
			},
			input:    "hi",
			expected: "9796",
		},
		{
			name: "encode then decode",
			operations: []OperationConfig{
				{Name: "cobs_encode"},
				{Name: "cobs_decode"},
			},
			input:    "a\x00b",
			expected: "a\x00b",
		},
		{
			name: "vigenere then armor",
			operations: []OperationConfig{
				{Name: "vigenere_encode", Parameters: map[string]interface{}{ParamPassword: "key"}},
				{Name: "hex_encode"},
			},
			input:    "hello",
			expected: "d3cae5d7d4",
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{
				Operations: tt.operations,
				Reversible: true,
			}

			result, err := pipeline.Execute(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("pipeline execution failed: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestPipelineReverse(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "xor_encode"},
			{Name: "vigenere_encode", Parameters: map[string]interface{}{ParamPassword: "s3cret"}},
			{Name: "wh_encode"},
		},
		Reversible: true,
	}

	reversed, err := pipeline.Reverse()
	if err != nil {
		t.Fatalf("failed to reverse pipeline: %v", err)
	}

	want := []string{"wh_decode", "vigenere_decode", "xor_decode"}
	for i, name := range want {
		if reversed.Operations[i].Name != name {
			t.Errorf("step %d: expected %s, got %s", i, name, reversed.Operations[i].Name)
		}
	}
	if reversed.Operations[1].Parameters[ParamPassword] != "s3cret" {
		t.Errorf("parameters were not carried over to the reversed step")
	}
}

func TestPipelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "xor_encode"},
			{Name: "vigenere_encode", Parameters: map[string]interface{}{ParamPassword: []byte{0x00, 0x80, 0xff}}},
			{Name: "cobs_frame"},
			{Name: "base64_encode"},
		},
		Reversible: true,
	}
	input := []byte("zero \x00 bytes \x00\x00 survive")

	encoded, err := pipeline.Execute(ctx, input)
	if err != nil {
		t.Fatalf("forward pipeline failed: %v", err)
	}
	reversed, err := pipeline.Reverse()
	if err != nil {
		t.Fatalf("failed to reverse pipeline: %v", err)
	}
	decoded, err := reversed.Execute(ctx, encoded)
	if err != nil {
		t.Fatalf("reverse pipeline failed: %v", err)
	}
	if !bytes.Equal(decoded, input) {
		t.Fatalf("expected %q, got %q", input, decoded)
	}
}

func TestPipelineNotReversible(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "hex_encode"}},
		Reversible: false,
	}
	if _, err := pipeline.Reverse(); err == nil {
		t.Fatal("expected error for pipeline marked irreversible")
	}
}

func TestPipelineValidation(t *testing.T) {
	tests := []struct {
		name       string
		operations []OperationConfig
		wantErr    bool
		wantKind   error
	}{
		{
			name:       "valid pipeline",
			operations: []OperationConfig{{Name: "hex_encode"}, {Name: "hex_decode"}},
		},
		{
			name:       "unknown operation",
			operations: []OperationConfig{{Name: "nonexistent"}},
			wantErr:    true,
			wantKind:   ErrUnknownOperation,
		},
		{
			name:       "missing password",
			operations: []OperationConfig{{Name: "vigenere_encode"}},
			wantErr:    true,
			wantKind:   codecerr.ErrNotInitialized,
		},
		{
			name: "bad seed",
			operations: []OperationConfig{
				{Name: "wh_encode", Parameters: map[string]interface{}{ParamSeed: "0,0,0"}},
			},
			wantErr:  true,
			wantKind: codecerr.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{Operations: tt.operations}
			err := pipeline.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantKind != nil && !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestPipelineStepError(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "hex_encode"},
			{Name: "cobs_decode"},
			{Name: "hex_decode"},
		},
	}
	_, err := pipeline.Execute(context.Background(), []byte("zz"))
	if err == nil {
		t.Fatal("expected hex_decode of non-hex text to fail")
	}
	if !strings.Contains(err.Error(), "hex_decode failed at step 2") {
		t.Fatalf("error does not name the failing step: %v", err)
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}
	if _, err := pipeline.Execute(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSessionKeepsKeystreamPosition(t *testing.T) {
	ctx := context.Background()
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "vigenere_encode", Parameters: map[string]interface{}{ParamPassword: "key"}},
		},
	}

	session, err := pipeline.NewSession()
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	var chunked []byte
	for _, chunk := range []string{"he", "l", "lo"} {
		out, err := session.Process(ctx, []byte(chunk))
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		chunked = append(chunked, out...)
	}
	if hex.EncodeToString(chunked) != "d3cae5d7d4" {
		t.Fatalf("chunked output %x differs from the single-shot vector", chunked)
	}

	// Execute always starts from the beginning of the password.
	fresh, _ := pipeline.Execute(ctx, []byte("llo"))
	if bytes.Equal(fresh, chunked[2:]) {
		t.Fatal("Execute should not share keystream position with a session")
	}

	if err := session.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	out, _ := session.Process(ctx, []byte("hello"))
	if hex.EncodeToString(out) != "d3cae5d7d4" {
		t.Fatalf("expected reset session to restart the keystream, got %x", out)
	}
}

func TestSessionWichmannHillContinuation(t *testing.T) {
	ctx := context.Background()
	params := map[string]interface{}{ParamSeed: []int{1, 2, 3}}
	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "wh_encode", Parameters: params}}}

	whole, err := pipeline.Execute(ctx, []byte("10 20 30"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	session, _ := pipeline.NewSession()
	first, _ := session.Process(ctx, []byte("10"))
	rest, _ := session.Process(ctx, []byte("20 30"))
	joined := string(first) + "\n" + string(rest)
	if joined != string(whole) {
		t.Fatalf("expected %q, got %q", whole, joined)
	}
}

func TestPipelineWithTextCodec(t *testing.T) {
	pipeline := Pipeline{
		Operations: []OperationConfig{
			{Name: "xor_encode"},
			{Name: "vigenere_encode", Parameters: map[string]interface{}{ParamPassword: "k", ParamCodec: "utf_16_le"}},
			{Name: "hex_encode"},
		},
		Reversible: true,
	}

	text := pipeline.WithTextCodec("utf-8")
	if text.Operations[0].Parameters[ParamCodec] != "utf-8" {
		t.Errorf("xor_encode should pick up the default codec, got %v", text.Operations[0].Parameters)
	}
	if text.Operations[1].Parameters[ParamCodec] != "utf_16_le" {
		t.Errorf("explicit codec was overridden: %v", text.Operations[1].Parameters)
	}
	if text.Operations[2].Parameters != nil {
		t.Errorf("hex_encode takes no codec, got %v", text.Operations[2].Parameters)
	}
	if pipeline.Operations[0].Parameters != nil {
		t.Error("WithTextCodec must not modify the receiver")
	}
	if !text.Reversible {
		t.Error("Reversible flag was dropped")
	}
}
