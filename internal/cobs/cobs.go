// Package cobs implements Consistent Overhead Byte Stuffing.
//
// Encode removes every zero byte from a buffer so that 0x00 can delimit
// packets on a byte-oriented link. Neither Encode nor Decode adds the frame
// delimiter; Frame and ScanFrames are provided for callers that want it.
//
// A code byte n in [1,254] means "n-1 literal bytes follow, then an implied
// zero". The code byte 0xFF means "254 literal bytes follow and no zero is
// implied".
//
// Decode treats leading and trailing zero bytes as optional outer
// delimiters and strips them, so zero bytes at the very edges of the
// original buffer do not survive a round trip.
package cobs

import (
	"bytes"

	"github.com/RowanDark/codecs/internal/codecerr"
)

const (
	// BlockSize is the longest run of literal bytes a single code byte covers.
	BlockSize = 254
	// fullBlock is the code byte for a BlockSize run without implied zero.
	fullBlock byte = 0xFF
	// Delimiter is the conventional frame delimiter.
	Delimiter byte = 0x00
)

// MaxEncodedLen returns an upper bound on len(Encode(data)) for len(data) == n.
func MaxEncodedLen(n int) int {
	return n + n/BlockSize + 2
}

// Encode stuffs data so that the result contains no zero bytes.
func Encode(data []byte) []byte {
	segments := bytes.Split(data, []byte{Delimiter})
	out := make([]byte, 0, MaxEncodedLen(len(data)))
	last := len(segments) - 1

	for i, seg := range segments {
		if len(seg) == 0 {
			out = append(out, 1)
			continue
		}
		blocks := len(seg) / BlockSize
		for b := 0; b < blocks; b++ {
			out = append(out, fullBlock)
			out = append(out, seg[b*BlockSize:(b+1)*BlockSize]...)
		}
		rest := seg[blocks*BlockSize:]
		if len(rest) > 0 {
			out = append(out, byte(len(rest)+1))
			out = append(out, rest...)
		} else if i < last {
			// the segment ended on a block boundary; the consumed delimiter
			// still needs a code byte of its own
			out = append(out, 1)
		}
	}
	return out
}

// Decode reverses Encode. Leading and trailing zero bytes are stripped first;
// any zero byte left after that is reported as codecerr.MalformedInput.
func Decode(data []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(data, "\x00")
	lead := len(data) - len(trimmed)
	payload := bytes.TrimRight(trimmed, "\x00")
	if i := bytes.IndexByte(payload, Delimiter); i >= 0 {
		return nil, codecerr.New(codecerr.MalformedInput, "cobs.Decode",
			"zero byte in encoded data at offset %d", lead+i)
	}

	out := make([]byte, 0, len(payload))
	n := len(payload)
	for i := 0; i < n; {
		code := int(payload[i])
		i++
		if code > 1 {
			end := i + code - 1
			if end > n {
				end = n
			}
			out = append(out, payload[i:end]...)
			i = end
		}
		if code < int(fullBlock) && i < n {
			out = append(out, Delimiter)
		}
	}
	return out, nil
}
