// Package vigenere scrambles text with a password-derived cyclic keystream:
// every byte of the encoded text is shifted by the next password byte,
// modulo 256.
//
// The keystream position is never rewound by Encode or Decode, so a Coder
// can process one long stream in several calls. Call ResetIndex or
// SetPassword to start a fresh message.
package vigenere

import (
	"github.com/RowanDark/codecs/internal/codecerr"
	"github.com/RowanDark/codecs/internal/keystream"
	"github.com/RowanDark/codecs/internal/textcodec"
)

// Coder holds the password keystream. The zero value has no password.
// A Coder is not safe for concurrent use.
type Coder struct {
	key keystream.Feeder[byte]
}

// New returns a Coder keyed with password.
func New(password []byte) (*Coder, error) {
	c := &Coder{}
	if err := c.SetPassword(password); err != nil {
		return nil, err
	}
	return c, nil
}

// NewString returns a Coder keyed with the UTF-8 bytes of password.
func NewString(password string) (*Coder, error) {
	return New([]byte(password))
}

// SetPassword replaces the keystream and rewinds it.
func (c *Coder) SetPassword(password []byte) error {
	if err := c.key.SetContent(password); err != nil {
		return codecerr.New(codecerr.InvalidArgument, "vigenere.SetPassword", "password must not be empty")
	}
	return nil
}

// SetPasswordString is SetPassword for a UTF-8 text password.
func (c *Coder) SetPasswordString(password string) error {
	return c.SetPassword([]byte(password))
}

// ResetIndex rewinds the keystream without changing the password.
func (c *Coder) ResetIndex() {
	c.key.ResetCursor()
}

// Encode converts text to bytes with the named codec ("" means UTF-8) and
// scrambles them.
func (c *Coder) Encode(text, codec string) ([]byte, error) {
	if err := c.ready("vigenere.Encode"); err != nil {
		return nil, err
	}
	raw, err := textcodec.Encode(text, codec)
	if err != nil {
		return nil, err
	}
	return c.EncodeBytes(raw)
}

// Decode unscrambles data and converts the result to text with the named
// codec ("" means UTF-8).
func (c *Coder) Decode(data []byte, codec string) (string, error) {
	if err := c.ready("vigenere.Decode"); err != nil {
		return "", err
	}
	if err := textcodec.Validate(codec); err != nil {
		return "", err
	}
	raw, err := c.DecodeBytes(data)
	if err != nil {
		return "", err
	}
	return textcodec.Decode(raw, codec)
}

// EncodeBytes adds one keystream byte to every byte of data.
func (c *Coder) EncodeBytes(data []byte) ([]byte, error) {
	return c.shift(data, 1, "vigenere.EncodeBytes")
}

// DecodeBytes subtracts one keystream byte from every byte of data.
func (c *Coder) DecodeBytes(data []byte) ([]byte, error) {
	return c.shift(data, -1, "vigenere.DecodeBytes")
}

func (c *Coder) shift(data []byte, sign int, op string) ([]byte, error) {
	if err := c.ready(op); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i, b := range data {
		k, err := c.key.Next()
		if err != nil {
			return nil, err
		}
		// byte arithmetic wraps modulo 256
		if sign > 0 {
			out[i] = b + k
		} else {
			out[i] = b - k
		}
	}
	return out, nil
}

func (c *Coder) ready(op string) error {
	if !c.key.Ready() {
		return codecerr.New(codecerr.NotInitialized, op, "password is not set")
	}
	return nil
}
