package cobs

import (
	"bytes"
	"io"
)

// Frame encodes data and surrounds it with delimiters, ready for the wire.
func Frame(data []byte) []byte {
	return AppendFrame(make([]byte, 0, MaxEncodedLen(len(data))+2), data)
}

// AppendFrame appends the delimited encoding of data to dst.
func AppendFrame(dst, data []byte) []byte {
	dst = append(dst, Delimiter)
	dst = append(dst, Encode(data)...)
	return append(dst, Delimiter)
}

// ScanFrames is a bufio.SplitFunc that yields the encoded payload of each
// zero-delimited frame. Runs of consecutive delimiters produce no tokens, and
// trailing bytes without a closing delimiter are returned at EOF.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && data[start] == Delimiter {
		start++
	}
	if i := bytes.IndexByte(data[start:], Delimiter); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF {
		if start < len(data) {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}
	// request more data, but drop the delimiters already seen
	return start, nil, nil
}

// WriteFrame writes the delimited encoding of data to w.
func WriteFrame(w io.Writer, data []byte) error {
	_, err := w.Write(Frame(data))
	return err
}
