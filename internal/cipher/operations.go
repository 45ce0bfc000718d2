package cipher

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/RowanDark/codecs/internal/cobs"
	"github.com/RowanDark/codecs/internal/xorscrambler"
)

// COBS Operations

// COBSEncodeOp stuffs zero bytes out of the input
type COBSEncodeOp struct {
	BaseOperation
}

func (op *COBSEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return cobs.Encode(input), nil
}

// COBSDecodeOp restores a COBS payload, ignoring edge delimiters
type COBSDecodeOp struct {
	BaseOperation
}

func (op *COBSDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := cobs.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("cobs decode failed: %w", err)
	}
	return decoded, nil
}

// COBSFrameOp encodes the input and wraps it in 0x00 delimiters
type COBSFrameOp struct {
	BaseOperation
}

func (op *COBSFrameOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return cobs.Frame(input), nil
}

// XOR Operations

// XOREncodeOp masks every byte with 0xFF. With a codec parameter the input
// is read as UTF-8 text and converted to that codec first.
type XOREncodeOp struct {
	BaseOperation
}

func (op *XOREncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	codec, ok, err := stringParam(op.Name(), params, ParamCodec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return xorscrambler.Encode(input), nil
	}
	out, err := xorscrambler.EncodeValue(string(input), codec)
	if err != nil {
		return nil, fmt.Errorf("xor encode failed: %w", err)
	}
	return out, nil
}

// XORDecodeOp removes the 0xFF mask. With a codec parameter the unmasked
// bytes are decoded with that codec and returned as UTF-8.
type XORDecodeOp struct {
	BaseOperation
}

func (op *XORDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	codec, ok, err := stringParam(op.Name(), params, ParamCodec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return xorscrambler.Decode(input), nil
	}
	text, err := xorscrambler.DecodeString(input, codec)
	if err != nil {
		return nil, fmt.Errorf("xor decode failed: %w", err)
	}
	return []byte(text), nil
}

// Armor Operations
//
// Scrambled output is binary; these make it printable for terminals,
// recipes and logs.

// HexEncodeOp encodes bytes as hexadecimal string
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(hex.EncodeToString(input)), nil
}

// HexDecodeOp decodes hexadecimal string to bytes
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	// Remove common prefixes and separators
	inputStr := strings.TrimSpace(string(input))
	inputStr = strings.TrimPrefix(inputStr, "0x")
	inputStr = strings.NewReplacer(" ", "", ":", "", "-", "", "\n", "").Replace(inputStr)

	decoded, err := hex.DecodeString(inputStr)
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

// Base64EncodeOp encodes data as standard Base64
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(input)), nil
}

// Base64DecodeOp decodes standard Base64 data
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	trimmed := strings.TrimSpace(string(input))
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		// Try without padding
		decoded, err = base64.RawStdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return decoded, nil
}

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	// COBS operations
	cobsEncode := &COBSEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "cobs_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Remove zero bytes with Consistent Overhead Byte Stuffing",
		},
	}
	cobsDecode := &COBSDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "cobs_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Restore COBS-stuffed data (edge 0x00 delimiters are ignored)",
		},
	}
	cobsEncode.ReverseOp = cobsDecode
	cobsDecode.ReverseOp = cobsEncode

	cobsFrame := &COBSFrameOp{
		BaseOperation: BaseOperation{
			NameValue:        "cobs_frame",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "COBS-encode and wrap in 0x00 frame delimiters",
			ReverseOp:        cobsDecode,
		},
	}

	// XOR operations
	xorEncode := &XOREncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_encode",
			TypeValue:        OperationTypeScramble,
			DescriptionValue: "XOR every byte with 0xFF (optional codec parameter for text)",
		},
	}
	xorDecode := &XORDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_decode",
			TypeValue:        OperationTypeUnscramble,
			DescriptionValue: "Remove the 0xFF XOR mask (optional codec parameter for text)",
		},
	}
	xorEncode.ReverseOp = xorDecode
	xorDecode.ReverseOp = xorEncode

	// Vigenère operations
	vigenereEncode := &VigenereEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "vigenere_encode",
			TypeValue:        OperationTypeScramble,
			DescriptionValue: "Add a cyclic password keystream modulo 256 (password parameter required)",
		},
	}
	vigenereDecode := &VigenereDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "vigenere_decode",
			TypeValue:        OperationTypeUnscramble,
			DescriptionValue: "Subtract a cyclic password keystream modulo 256 (password parameter required)",
		},
	}
	vigenereEncode.ReverseOp = vigenereDecode
	vigenereDecode.ReverseOp = vigenereEncode

	// Wichmann-Hill operations
	whEncode := &WichmannHillEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "wh_encode",
			TypeValue:        OperationTypeScramble,
			DescriptionValue: "Divide whitespace separated numbers by Wichmann-Hill draws (seed parameter)",
		},
	}
	whDecode := &WichmannHillDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "wh_decode",
			TypeValue:        OperationTypeUnscramble,
			DescriptionValue: "Multiply whitespace separated numbers by Wichmann-Hill draws (seed parameter)",
		},
	}
	whEncode.ReverseOp = whDecode
	whDecode.ReverseOp = whEncode

	// Hex operations
	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal string",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal string to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	// Base64 operations
	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64 data",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	mustRegister(
		cobsEncode, cobsDecode, cobsFrame,
		xorEncode, xorDecode,
		vigenereEncode, vigenereDecode,
		whEncode, whDecode,
		hexEncode, hexDecode,
		base64Encode, base64Decode,
	)
}
