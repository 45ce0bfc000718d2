// Package xorscrambler masks data by XORing every byte with 0xFF. It is a
// stateless obfuscation, not encryption.
package xorscrambler

import (
	"github.com/RowanDark/codecs/internal/codecerr"
	"github.com/RowanDark/codecs/internal/textcodec"
)

// Mask is XORed into every byte.
const Mask byte = 0xFF

// Encode returns data with every byte masked. The input is not modified.
func Encode(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ Mask
	}
	return out
}

// Decode is identical to Encode; the mask is an involution.
func Decode(data []byte) []byte {
	return Encode(data)
}

// EncodeString converts text to bytes with the named codec ("" means
// UTF-8) and masks them.
func EncodeString(text, codec string) ([]byte, error) {
	raw, err := textcodec.Encode(text, codec)
	if err != nil {
		return nil, err
	}
	return Encode(raw), nil
}

// DecodeString unmasks data and converts it to text with the named codec.
func DecodeString(data []byte, codec string) (string, error) {
	if err := textcodec.Validate(codec); err != nil {
		return "", err
	}
	return textcodec.Decode(Decode(data), codec)
}

// EncodeValue masks a string or byte slice. Strings go through the named
// codec first.
func EncodeValue(v any, codec string) ([]byte, error) {
	switch d := v.(type) {
	case []byte:
		return Encode(d), nil
	case string:
		return EncodeString(d, codec)
	default:
		return nil, codecerr.New(codecerr.TypeMismatch, "xorscrambler.EncodeValue",
			"expected text or bytes, got %T", v)
	}
}
