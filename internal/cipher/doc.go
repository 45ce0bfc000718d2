// Package cipher exposes the byte codecs as named operations that can be
// chained into pipelines, saved as recipes and served over RPC.
//
// # Quick Start
//
//	op, _ := cipher.GetOperation("cobs_encode")
//	out, _ := op.Execute(ctx, []byte{0x11, 0x22, 0x00, 0x33}, nil)
//	// out: 03 11 22 02 33
//
// # Pipelines
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "vigenere_encode", Parameters: map[string]interface{}{"password": "s3cret"}},
//	        {Name: "cobs_frame"},
//	    },
//	    Reversible: true,
//	}
//	framed, _ := pipeline.Execute(ctx, []byte("hello"))
//	reversed, _ := pipeline.Reverse()
//	plain, _ := reversed.Execute(ctx, framed)
//
// Pipeline.Execute keys every keystream coder afresh. To scramble one long
// message in several chunks, compile the pipeline once with NewSession and
// call Process for each chunk; the keystream picks up where it stopped.
//
// # Available Operations
//
//   - cobs_encode/cobs_decode - Consistent Overhead Byte Stuffing
//   - cobs_frame - COBS plus 0x00 delimiters (reversed by cobs_decode)
//   - xor_encode/xor_decode - 0xFF mask, optional "codec"
//   - vigenere_encode/vigenere_decode - password keystream, "password" and optional "codec"
//   - wh_encode/wh_decode - Wichmann-Hill number scrambler, optional "seed"
//   - hex_encode/hex_decode, base64_encode/base64_decode - printable armor
//
// None of the scramblers is encryption. They hide data from casual
// inspection only.
//
// # Thread Safety
//
// The registry is safe for concurrent use, and so is Pipeline.Execute.
// A Session belongs to a single goroutine. RecipeManager locks internally.
package cipher
