package cobs

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"

	"github.com/RowanDark/codecs/internal/codecerr"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// nonZeroRun returns n bytes cycling through 1..255.
func nonZeroRun(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i%255 + 1)
	}
	return out
}

func TestEncodeDecodeVectors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		encoded string
	}{
		{"empty", "", "01"},
		{"single zero", "00", "0101"},
		{"two zeros", "0000", "010101"},
		{"leading zero", "0011", "010211"},
		{"trailing zero", "1100", "021101"},
		{"mixed", "11220033", "0311220233"},
		{"consecutive zeros", "11000022", "0211010222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustHex(t, tt.raw)
			want := mustHex(t, tt.encoded)

			got := Encode(raw)
			if !bytes.Equal(got, want) {
				t.Fatalf("encode: expected %x, got %x", want, got)
			}

			decoded, err := Decode(got)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !bytes.Equal(decoded, raw) {
				t.Fatalf("decode: expected %x, got %x", raw, decoded)
			}
		})
	}
}

func TestBlockBoundary(t *testing.T) {
	block := nonZeroRun(BlockSize)

	t.Run("final segment", func(t *testing.T) {
		got := Encode(block)
		want := append([]byte{0xFF}, block...)
		if !bytes.Equal(got, want) {
			t.Fatalf("expected 0xFF + 254 bytes with no trailer, got %d bytes ending %x", len(got), got[len(got)-1])
		}
	})

	t.Run("followed by another segment", func(t *testing.T) {
		raw := append(append([]byte{}, block...), 0x00, 0x05)
		got := Encode(raw)
		want := append([]byte{0xFF}, block...)
		want = append(want, 0x01, 0x02, 0x05)
		if !bytes.Equal(got, want) {
			t.Fatalf("expected %x, got %x", want[len(want)-4:], got[len(got)-4:])
		}
	})

	t.Run("followed by trailing zero", func(t *testing.T) {
		raw := append(append([]byte{}, block...), 0x00)
		got := Encode(raw)
		if tail := got[len(got)-2:]; !bytes.Equal(tail, []byte{0x01, 0x01}) {
			t.Fatalf("expected trailer 0101, got %x", tail)
		}
		decoded, err := Decode(got)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !bytes.Equal(decoded, raw) {
			t.Fatalf("roundtrip mismatch")
		}
	})

	t.Run("two full blocks", func(t *testing.T) {
		raw := nonZeroRun(2 * BlockSize)
		got := Encode(raw)
		if len(got) != 2*BlockSize+2 {
			t.Fatalf("expected %d bytes, got %d", 2*BlockSize+2, len(got))
		}
		if got[0] != 0xFF || got[BlockSize+1] != 0xFF {
			t.Fatalf("expected two 0xFF code bytes, got %x and %x", got[0], got[BlockSize+1])
		}
	})

	t.Run("block plus remainder", func(t *testing.T) {
		raw := nonZeroRun(BlockSize + 3)
		got := Encode(raw)
		if got[BlockSize+1] != 4 {
			t.Fatalf("expected remainder code 4, got %d", got[BlockSize+1])
		}
	})
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := rng.Intn(1200)
		raw := make([]byte, n)
		for j := range raw {
			// bias towards zeros and long non-zero runs
			switch rng.Intn(10) {
			case 0:
				raw[j] = 0
			default:
				raw[j] = byte(rng.Intn(255) + 1)
			}
		}
		enc := Encode(raw)
		if bytes.IndexByte(enc, 0) >= 0 {
			t.Fatalf("encoded output contains a zero byte (len %d)", n)
		}
		if len(enc) > MaxEncodedLen(n) {
			t.Fatalf("encoded length %d exceeds bound %d", len(enc), MaxEncodedLen(n))
		}
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !bytes.Equal(dec, raw) {
			t.Fatalf("roundtrip mismatch for length %d", n)
		}
	}
}

func TestDecodeStripsEdgeZeros(t *testing.T) {
	payload := Encode(mustHex(t, "11220033"))
	want, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for lead := 0; lead < 3; lead++ {
		for trail := 0; trail < 3; trail++ {
			framed := append(bytes.Repeat([]byte{0}, lead), payload...)
			framed = append(framed, bytes.Repeat([]byte{0}, trail)...)
			got, err := Decode(framed)
			if err != nil {
				t.Fatalf("decode(%d,%d) failed: %v", lead, trail, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("decode(%d,%d): expected %x, got %x", lead, trail, want, got)
			}
		}
	}
}

func TestDecodeRejectsInternalZero(t *testing.T) {
	enc := Encode(nonZeroRun(300))
	for pos := 1; pos < len(enc); pos++ {
		bad := append(append(append([]byte{}, enc[:pos]...), 0x00), enc[pos:]...)
		_, err := Decode(bad)
		if err == nil {
			t.Fatalf("expected error for zero at %d", pos)
		}
		if !errors.Is(err, codecerr.ErrMalformedInput) {
			t.Fatalf("expected MalformedInput, got %v", err)
		}
	}
}

func TestDecodeTruncatedBlock(t *testing.T) {
	got, err := Decode(mustHex(t, "051122"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(got, mustHex(t, "1122")) {
		t.Fatalf("expected 1122, got %x", got)
	}
}

func TestDecodeOnlyDelimiters(t *testing.T) {
	got, err := Decode([]byte{0, 0, 0})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %x", got)
	}
}

func TestScanFrames(t *testing.T) {
	packets := [][]byte{
		mustHex(t, "11220033"),
		nonZeroRun(600),
		{0x00},
	}
	var stream bytes.Buffer
	stream.WriteByte(0x00) // stray delimiter before the first frame
	for _, p := range packets {
		if err := WriteFrame(&stream, p); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	scanner := bufio.NewScanner(&stream)
	scanner.Buffer(make([]byte, 64), 4096)
	scanner.Split(ScanFrames)

	var got [][]byte
	for scanner.Scan() {
		dec, err := Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		got = append(got, dec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner: %v", err)
	}
	if len(got) != len(packets) {
		t.Fatalf("expected %d frames, got %d", len(packets), len(got))
	}
	for i := range packets {
		if !bytes.Equal(got[i], packets[i]) {
			t.Fatalf("frame %d mismatch", i)
		}
	}
}

func TestScanFramesUnterminatedTail(t *testing.T) {
	stream := append(Frame([]byte("ab")), Encode([]byte("cd"))...)
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(ScanFrames)

	var got []string
	for scanner.Scan() {
		dec, err := Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		got = append(got, string(dec))
	}
	if len(got) != 2 || got[0] != "ab" || got[1] != "cd" {
		t.Fatalf("unexpected frames %q", got)
	}
}
