package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/RowanDark/codecs/internal/cipher"
	"github.com/RowanDark/codecs/internal/config"
	"github.com/RowanDark/codecs/internal/textcodec"
)

// pipelineFlags collects --op and --param into a cipher.Pipeline.
type pipelineFlags struct {
	ops    []string
	params []string
	text   string
}

// configuredCodec is the --text value used when the flag has no argument.
const configuredCodec = "configured"

func (p *pipelineFlags) register(fs *flag.FlagSet) {
	fs.StringArrayVar(&p.ops, "op", nil, "operation to apply, repeat for a pipeline")
	fs.StringArrayVar(&p.params, "param", nil, "operation parameter key=value, or N:key=value for step N only; prefix a value with hex: for raw bytes")
	fs.StringVar(&p.text, "text", "", "treat input as text in this codec for xor and vigenere steps; bare --text uses the configured text_codec")
	fs.Lookup("text").NoOptDefVal = configuredCodec
}

func (p *pipelineFlags) build() (cipher.Pipeline, error) {
	if len(p.ops) == 0 {
		return cipher.Pipeline{}, fmt.Errorf("at least one --op is required")
	}
	pipeline := cipher.Pipeline{
		Operations: make([]cipher.OperationConfig, len(p.ops)),
		Reversible: true,
	}
	for i, name := range p.ops {
		pipeline.Operations[i] = cipher.OperationConfig{Name: strings.TrimSpace(name)}
	}
	for _, raw := range p.params {
		step, key, value, err := parseParam(raw, len(p.ops))
		if err != nil {
			return cipher.Pipeline{}, err
		}
		for i := range pipeline.Operations {
			if step >= 0 && step != i {
				continue
			}
			if pipeline.Operations[i].Parameters == nil {
				pipeline.Operations[i].Parameters = make(map[string]interface{})
			}
			pipeline.Operations[i].Parameters[key] = value
		}
	}
	switch p.text {
	case "":
	case configuredCodec:
		cfg, err := config.Load()
		if err != nil {
			return cipher.Pipeline{}, err
		}
		pipeline = pipeline.WithTextCodec(cfg.TextCodec)
	default:
		if err := textcodec.Validate(p.text); err != nil {
			return cipher.Pipeline{}, err
		}
		pipeline = pipeline.WithTextCodec(p.text)
	}
	return pipeline, nil
}

// parseParam splits "[N:]key=value". Step is -1 when the parameter applies
// to every step.
func parseParam(raw string, steps int) (int, string, interface{}, error) {
	step := -1
	spec := raw
	if idx := strings.Index(spec, ":"); idx > 0 && idx < strings.Index(spec+"=", "=") {
		n, err := strconv.Atoi(spec[:idx])
		if err == nil {
			if n < 0 || n >= steps {
				return 0, "", nil, fmt.Errorf("--param %q: step %d out of range", raw, n)
			}
			step = n
			spec = spec[idx+1:]
		}
	}
	key, value, ok := strings.Cut(spec, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return 0, "", nil, fmt.Errorf("--param %q: expected key=value", raw)
	}
	if rest, isHex := strings.CutPrefix(value, "hex:"); isHex {
		data, err := hex.DecodeString(rest)
		if err != nil {
			return 0, "", nil, fmt.Errorf("--param %q: %w", raw, err)
		}
		return step, key, data, nil
	}
	return step, key, value, nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// processor is a session that keeps keystream state across inputs, either
// local or on a codecd server.
type processor interface {
	Process(input []byte) ([]byte, error)
}

type localSession struct {
	ctx     context.Context
	session *cipher.Session
}

func (l localSession) Process(input []byte) ([]byte, error) {
	return l.session.Process(l.ctx, input)
}

// processChunks feeds r through p in chunks of size bytes and writes every
// result to w as it arrives.
func processChunks(r io.Reader, size int, p processor, w io.Writer) error {
	buf := make([]byte, size)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			out, perr := p.Process(buf[:n])
			if perr != nil {
				return perr
			}
			if _, werr := w.Write(out); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
