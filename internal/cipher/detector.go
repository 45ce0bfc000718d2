package cipher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RowanDark/codecs/internal/cobs"
	"github.com/RowanDark/codecs/internal/xorscrambler"
)

var (
	hexPattern    = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
)

// FrameDetector guesses which codec produced a buffer
type FrameDetector struct{}

// NewFrameDetector creates a new detector
func NewFrameDetector() *FrameDetector {
	return &FrameDetector{}
}

// Detect attempts to identify the encoding of the input
func (d *FrameDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	results := []DetectionResult{}
	results = append(results, d.detectCOBS(input)...)
	results = append(results, d.detectXOR(input)...)
	results = append(results, d.detectHex(input)...)
	results = append(results, d.detectBase64(input)...)

	// Sort by confidence (highest first)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	// Filter low confidence results (< 0.3)
	filtered := []DetectionResult{}
	for _, r := range results {
		if r.Confidence >= 0.3 {
			filtered = append(filtered, r)
		}
	}

	return filtered, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *FrameDetector) SupportedEncodings() []string {
	return []string{"cobs", "xor", "hex", "base64"}
}

// detectCOBS walks the code byte chain. A valid payload lands exactly on its
// last byte; delimiters at both ends raise confidence.
func (d *FrameDetector) detectCOBS(input []byte) []DetectionResult {
	payload := bytes.Trim(input, "\x00")
	if len(payload) == 0 || bytes.IndexByte(payload, 0) >= 0 {
		return nil
	}

	i := 0
	for i < len(payload) {
		i += int(payload[i])
	}
	if i != len(payload) {
		return nil
	}

	framed := input[0] == cobs.Delimiter && input[len(input)-1] == cobs.Delimiter
	confidence := 0.5
	reasoning := "Code byte chain ends exactly at the last byte"
	if framed {
		confidence = 0.9
		reasoning = "Zero-delimited frame with a consistent code byte chain"
	}
	return []DetectionResult{{
		Encoding:   "cobs",
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "cobs_decode",
	}}
}

// detectXOR reports input that is binary but turns into printable UTF-8
// text once the mask is removed.
func (d *FrameDetector) detectXOR(input []byte) []DetectionResult {
	if printableRatio(input) > 0.5 {
		return nil
	}
	ratio := printableRatio(xorscrambler.Decode(input))
	if ratio < 0.9 {
		return nil
	}
	return []DetectionResult{{
		Encoding:   "xor",
		Confidence: 0.5 + 0.4*ratio,
		Reasoning:  fmt.Sprintf("Unmasking with 0xFF yields %.0f%% printable text", ratio*100),
		Operation:  "xor_decode",
	}}
}

func (d *FrameDetector) detectHex(input []byte) []DetectionResult {
	s := strings.TrimSpace(string(input))
	if !hexPattern.MatchString(s) {
		return nil
	}
	digits := strings.TrimPrefix(s, "0x")
	if len(digits)%2 != 0 {
		return nil
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return nil
	}
	confidence := 0.8
	if strings.HasPrefix(s, "0x") {
		confidence = 0.95
	}
	return []DetectionResult{{
		Encoding:   "hex",
		Confidence: confidence,
		Reasoning:  "Even number of hexadecimal digits",
		Operation:  "hex_decode",
	}}
}

func (d *FrameDetector) detectBase64(input []byte) []DetectionResult {
	s := strings.TrimSpace(string(input))
	if len(s) < 4 || len(s)%4 != 0 || !base64Pattern.MatchString(s) {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return nil
	}
	return []DetectionResult{{
		Encoding:   "base64",
		Confidence: 0.7,
		Reasoning:  "Matches Base64 pattern and decodes successfully",
		Operation:  "base64_decode",
	}}
}

// printableRatio is the share of runes that are printable or whitespace,
// or 0 when data is not valid UTF-8.
func printableRatio(data []byte) float64 {
	if len(data) == 0 || !utf8.Valid(data) {
		return 0
	}
	total, printable := 0, 0
	for _, r := range string(data) {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable) / float64(total)
}
