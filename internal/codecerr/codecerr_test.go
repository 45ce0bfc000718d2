package codecerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := New(MalformedInput, "cobs.Decode", "zero byte at offset %d", 3)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected %v to match ErrMalformedInput", err)
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("did not expect %v to match ErrTypeMismatch", err)
	}

	wrapped := fmt.Errorf("operation cobs_decode failed at step 0: %w", err)
	if !errors.Is(wrapped, ErrMalformedInput) {
		t.Fatalf("expected wrapped error to match ErrMalformedInput")
	}
	if got := KindOf(wrapped); got != MalformedInput {
		t.Fatalf("expected kind %v, got %v", MalformedInput, got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	if Wrap(InvalidEncoding, "op", nil) != nil {
		t.Fatal("wrapping nil should yield nil")
	}
	err := Wrap(InvalidEncoding, "textcodec.Decode", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable")
	}
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected kind to match")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"op and msg", New(InvalidArgument, "keystream.SetContent", "empty sequence"), "keystream.SetContent: invalid argument: empty sequence"},
		{"no op", &Error{Kind: NotInitialized, Msg: "password not set"}, "not initialized: password not set"},
		{"bare kind", ErrTypeMismatch, "type mismatch"},
		{"wrapped cause", Wrap(InvalidEncoding, "x", io.EOF), "x: invalid encoding: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(io.EOF) != 0 {
		t.Fatal("expected zero kind for foreign error")
	}
}
