package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/RowanDark/codecs/internal/cipher"
	"github.com/RowanDark/codecs/internal/config"
	"github.com/RowanDark/codecs/internal/rpc"
)

// ioFlags are the input, output and transport flags shared by run and
// recipe run.
type ioFlags struct {
	in      string
	out     string
	reverse bool
	server  string
	token   string
	chunk   int
}

func (f *ioFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.in, "in", "-", "input file, - for stdin")
	fs.StringVar(&f.out, "out", "-", "output file, - for stdout")
	fs.BoolVar(&f.reverse, "reverse", false, "run the inverse pipeline")
	fs.StringVar(&f.server, "server", "", "codecd address; runs locally when empty")
	fs.StringVar(&f.token, "token", "", "codecd auth token (defaults to the configured token)")
	fs.IntVar(&f.chunk, "chunk", 0, "process input in chunks of N bytes through one session")
}

func (f *ioFlags) dial() (*rpc.Client, error) {
	token := f.token
	if token == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		token = cfg.AuthToken
	}
	return rpc.Dial(f.server, token)
}

func runRun(args []string) int {
	fs := newFlagSet("run")
	var pf pipelineFlags
	var iof ioFlags
	pf.register(fs)
	iof.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if iof.chunk < 0 {
		fmt.Fprintln(stderr, "--chunk must not be negative")
		return 2
	}

	pipeline, err := pf.build()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if iof.reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(stderr, "reverse pipeline: %v\n", err)
			return 1
		}
		pipeline = *reversed
	}

	if err := execute(context.Background(), &iof, pipelineTarget{pipeline: pipeline}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// target is what a run executes: an inline pipeline or a named recipe.
type target interface {
	local(ctx context.Context, input []byte) ([]byte, error)
	localSession() (*cipher.Session, error)
	remote(ctx context.Context, c *rpc.Client, input []byte) ([]byte, error)
	remoteStream(ctx context.Context, c *rpc.Client) (*rpc.Stream, error)
}

type pipelineTarget struct {
	pipeline cipher.Pipeline
}

func (t pipelineTarget) local(ctx context.Context, input []byte) ([]byte, error) {
	return t.pipeline.Execute(ctx, input)
}

func (t pipelineTarget) localSession() (*cipher.Session, error) {
	return t.pipeline.NewSession()
}

func (t pipelineTarget) remote(ctx context.Context, c *rpc.Client, input []byte) ([]byte, error) {
	return c.Execute(ctx, t.pipeline, input)
}

func (t pipelineTarget) remoteStream(ctx context.Context, c *rpc.Client) (*rpc.Stream, error) {
	return c.OpenStream(ctx, t.pipeline)
}

// execute runs t over the input named by f and writes the result.
func execute(ctx context.Context, f *ioFlags, t target) error {
	if f.chunk > 0 {
		return executeChunked(ctx, f, t)
	}

	input, err := readInput(f.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var output []byte
	if f.server != "" {
		client, err := f.dial()
		if err != nil {
			return err
		}
		defer client.Close()
		output, err = t.remote(ctx, client, input)
		if err != nil {
			return err
		}
	} else {
		output, err = t.local(ctx, input)
		if err != nil {
			return err
		}
	}
	if err := writeOutput(f.out, output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func executeChunked(ctx context.Context, f *ioFlags, t target) error {
	in, err := openInput(f.in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var p processor
	if f.server != "" {
		client, err := f.dial()
		if err != nil {
			return err
		}
		defer client.Close()
		stream, err := t.remoteStream(ctx, client)
		if err != nil {
			return err
		}
		defer stream.Close()
		p = stream
	} else {
		session, err := t.localSession()
		if err != nil {
			return err
		}
		p = localSession{ctx: ctx, session: session}
	}

	// Buffer file output so a failed chunk leaves no partial file behind.
	var out io.Writer = stdout
	var buf bytes.Buffer
	if f.out != "" && f.out != "-" {
		out = &buf
	}
	if err := processChunks(in, f.chunk, p, out); err != nil {
		return err
	}
	if out == &buf {
		if err := writeOutput(f.out, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
