// Package textcodec converts between Go strings and bytes using named text
// encodings such as "utf-8", "utf_16_be" or "cp1251".
//
// Names are matched case-insensitively and '_' is accepted in place of '-'.
// The Unicode transformation formats are resolved locally; everything else
// is looked up in the IANA registry and then in the WHATWG label set.
package textcodec

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"github.com/RowanDark/codecs/internal/codecerr"
)

// Default is the codec used when a caller passes an empty name.
const Default = "utf-8"

// The plain "utf-16" and "utf-32" forms write a little-endian BOM and honour
// one on input, falling back to little-endian when it is missing.
var unicodeForms = map[string]encoding.Encoding{
	"utf8":    unicode.UTF8,
	"u8":      unicode.UTF8,
	"utf16":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf32":   utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf32be": utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"utf32le": utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
}

var boms = map[string][]byte{
	"utf16": {0xFF, 0xFE},
	"utf32": {0xFF, 0xFE, 0x00, 0x00},
}

// aliases maps common short names onto registry names.
var aliases = map[string]string{
	"ascii":     "us-ascii",
	"latin1":    "iso-8859-1",
	"latin-1":   "iso-8859-1",
	"mac-roman": "macintosh",
}

func compact(name string) string {
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return r.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Lookup resolves a codec name.
func Lookup(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		name = Default
	}
	if enc, ok := unicodeForms[compact(name)]; ok {
		return enc, nil
	}

	canonical := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if alias, ok := aliases[canonical]; ok {
		canonical = alias
	}
	if enc, err := ianaindex.IANA.Encoding(canonical); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(canonical); err == nil && enc != nil {
		return enc, nil
	}
	return nil, codecerr.New(codecerr.InvalidEncoding, "textcodec.Lookup", "unknown codec %q", name)
}

// Validate reports whether name resolves to a codec.
func Validate(name string) error {
	_, err := Lookup(name)
	return err
}

// Encode converts text to bytes with the named codec.
func Encode(text, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, codecerr.New(codecerr.InvalidEncoding, "textcodec.Encode", "text is not valid UTF-8")
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, codecerr.Wrap(codecerr.InvalidEncoding, "textcodec.Encode",
			fmt.Errorf("codec %q cannot represent text: %w", name, err))
	}
	return out, nil
}

// Decode converts bytes to text with the named codec. Input the codec cannot
// parse is an error rather than a string with replacement characters.
func Decode(data []byte, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", codecerr.Wrap(codecerr.InvalidEncoding, "textcodec.Decode",
			fmt.Errorf("codec %q cannot parse data: %w", name, err))
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !reencodes(enc, name, out, data) {
		return "", codecerr.New(codecerr.InvalidEncoding, "textcodec.Decode",
			"codec %q cannot parse data", name)
	}
	return string(out), nil
}

// reencodes reports whether text encodes back to data, which tells a real
// U+FFFD in the input apart from one substituted for a bad sequence.
func reencodes(enc encoding.Encoding, name string, text, data []byte) bool {
	back, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return false
	}
	if bytes.Equal(back, data) {
		return true
	}
	if bom, ok := boms[compact(name)]; ok {
		return bytes.Equal(bytes.TrimPrefix(back, bom), data)
	}
	return false
}
