package cipher

import (
	"context"
	"testing"

	"github.com/RowanDark/codecs/internal/cobs"
	"github.com/RowanDark/codecs/internal/xorscrambler"
)

func TestFrameDetector(t *testing.T) {
	detector := NewFrameDetector()
	ctx := context.Background()

	tests := []struct {
		name             string
		input            []byte
		expectedEncoding string
		expectedOp       string
		minConfidence    float64
		shouldDetect     bool
	}{
		{
			name:             "cobs frame",
			input:            cobs.Frame([]byte("hello world")),
			expectedEncoding: "cobs",
			expectedOp:       "cobs_decode",
			minConfidence:    0.9,
			shouldDetect:     true,
		},
		{
			name:             "bare cobs payload",
			input:            cobs.Encode([]byte{0x00, 0x00, 0x00}),
			expectedEncoding: "cobs",
			expectedOp:       "cobs_decode",
			minConfidence:    0.5,
			shouldDetect:     true,
		},
		{
			name:             "masked text",
			input:            xorscrambler.Encode([]byte("hello world")),
			expectedEncoding: "xor",
			expectedOp:       "xor_decode",
			minConfidence:    0.85,
			shouldDetect:     true,
		},
		{
			name:             "prefixed hex",
			input:            []byte("0xdeadbeef"),
			expectedEncoding: "hex",
			expectedOp:       "hex_decode",
			minConfidence:    0.95,
			shouldDetect:     true,
		},
		{
			name:             "base64",
			input:            []byte("SGVsbG8sIFdvcmxkIQ=="),
			expectedEncoding: "base64",
			expectedOp:       "base64_decode",
			minConfidence:    0.7,
			shouldDetect:     true,
		},
		{
			name:         "plain text",
			input:        []byte("Hello, World!"),
			shouldDetect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := detector.Detect(ctx, tt.input)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}

			if !tt.shouldDetect {
				if len(results) > 0 {
					t.Errorf("expected no detection, got %s (%.2f)", results[0].Encoding, results[0].Confidence)
				}
				return
			}
			if len(results) == 0 {
				t.Fatal("expected a detection result")
			}

			top := results[0]
			if top.Encoding != tt.expectedEncoding {
				t.Errorf("expected encoding %s, got %s", tt.expectedEncoding, top.Encoding)
			}
			if top.Operation != tt.expectedOp {
				t.Errorf("expected operation %s, got %s", tt.expectedOp, top.Operation)
			}
			if top.Confidence < tt.minConfidence {
				t.Errorf("expected confidence >= %.2f, got %.2f", tt.minConfidence, top.Confidence)
			}
		})
	}
}

func TestFrameDetectorRejectsBrokenChain(t *testing.T) {
	// code byte 0x05 promises four more bytes than are present
	results, err := NewFrameDetector().Detect(context.Background(), []byte{0x00, 0x05, 0x41, 0x00})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for _, r := range results {
		if r.Encoding == "cobs" {
			t.Fatalf("broken code chain detected as cobs with %.2f", r.Confidence)
		}
	}
}

func TestFrameDetectorSortedAndSuggestsRealOps(t *testing.T) {
	results, err := NewFrameDetector().Detect(context.Background(), []byte("deadbeef"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected hex and base64 candidates, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Confidence > results[i-1].Confidence {
			t.Fatalf("results not sorted by confidence")
		}
	}
	for _, r := range results {
		if _, ok := GetOperation(r.Operation); !ok {
			t.Errorf("suggested operation %s is not registered", r.Operation)
		}
	}
}

func TestFrameDetectorEmptyInput(t *testing.T) {
	if _, err := NewFrameDetector().Detect(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestSupportedEncodings(t *testing.T) {
	var d Detector = NewFrameDetector()
	if got := len(d.SupportedEncodings()); got != 4 {
		t.Fatalf("expected 4 encodings, got %d", got)
	}
}
