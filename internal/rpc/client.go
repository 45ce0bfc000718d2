package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/codecs/internal/cipher"
)

// Client calls a Codec service.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// Dial connects to target. Connections are plaintext unless opts supply
// other transport credentials.
func Dial(target, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn, token: token}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+c.token)
}

// Execute runs pipeline over input on the server.
func (c *Client) Execute(ctx context.Context, pipeline cipher.Pipeline, input []byte) ([]byte, error) {
	return c.execute(ctx, map[string]any{
		fieldPipeline: pipelineToWire(pipeline),
		fieldInput:    base64.StdEncoding.EncodeToString(input),
	})
}

// ExecuteRecipe runs a recipe stored on the server, or its reverse.
func (c *Client) ExecuteRecipe(ctx context.Context, name string, reverse bool, input []byte) ([]byte, error) {
	return c.execute(ctx, map[string]any{
		fieldRecipe:  name,
		fieldReverse: reverse,
		fieldInput:   base64.StdEncoding.EncodeToString(input),
	})
}

func (c *Client) execute(ctx context.Context, fields map[string]any) ([]byte, error) {
	req, err := newMessage(fields)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), ExecuteMethod, req, resp); err != nil {
		return nil, err
	}
	return readOutput(resp)
}

// Stream is an open session on the server.
type Stream struct {
	cs     grpc.ClientStream
	id     string
	cancel context.CancelFunc
}

// OpenStream starts a session running pipeline. Inputs passed to Process
// continue each keystream where the previous input left it.
func (c *Client) OpenStream(ctx context.Context, pipeline cipher.Pipeline) (*Stream, error) {
	return c.openStream(ctx, map[string]any{fieldPipeline: pipelineToWire(pipeline)})
}

// OpenRecipeStream starts a session running a stored recipe.
func (c *Client) OpenRecipeStream(ctx context.Context, name string, reverse bool) (*Stream, error) {
	return c.openStream(ctx, map[string]any{fieldRecipe: name, fieldReverse: reverse})
}

func (c *Client) openStream(ctx context.Context, fields map[string]any) (*Stream, error) {
	open, err := newMessage(fields)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	cs, err := c.conn.NewStream(c.outgoing(ctx), &ServiceDesc.Streams[0], StreamMethod)
	if err != nil {
		cancel()
		return nil, err
	}
	// io.EOF here means the server already ended the stream; RecvMsg
	// below carries its status.
	if err := cs.SendMsg(open); err != nil && !errors.Is(err, io.EOF) {
		cancel()
		return nil, err
	}
	ack := new(structpb.Struct)
	if err := cs.RecvMsg(ack); err != nil {
		cancel()
		return nil, err
	}
	if !ack.GetFields()[fieldReady].GetBoolValue() {
		cancel()
		return nil, errors.New("stream was not acknowledged")
	}
	return &Stream{cs: cs, id: ack.GetFields()[fieldStreamID].GetStringValue(), cancel: cancel}, nil
}

// ID is the server-assigned stream identifier, as recorded in its audit log.
func (s *Stream) ID() string {
	return s.id
}

// Process sends one input and waits for its output.
func (s *Stream) Process(input []byte) ([]byte, error) {
	msg, err := newMessage(map[string]any{fieldInput: base64.StdEncoding.EncodeToString(input)})
	if err != nil {
		return nil, err
	}
	if err := s.cs.SendMsg(msg); err != nil {
		return nil, s.failure(err)
	}
	resp := new(structpb.Struct)
	if err := s.cs.RecvMsg(resp); err != nil {
		return nil, err
	}
	return readOutput(resp)
}

// Reset rewinds every keystream of the session.
func (s *Stream) Reset() error {
	msg, err := newMessage(map[string]any{fieldReset: true})
	if err != nil {
		return err
	}
	if err := s.cs.SendMsg(msg); err != nil {
		return s.failure(err)
	}
	resp := new(structpb.Struct)
	if err := s.cs.RecvMsg(resp); err != nil {
		return err
	}
	if !resp.GetFields()[fieldReset].GetBoolValue() {
		return errors.New("reset was not acknowledged")
	}
	return nil
}

// Close ends the session and waits for the server to finish it.
func (s *Stream) Close() error {
	defer s.cancel()
	if err := s.cs.CloseSend(); err != nil {
		return err
	}
	err := s.cs.RecvMsg(new(structpb.Struct))
	switch {
	case err == nil:
		return errors.New("unexpected message after close")
	case errors.Is(err, io.EOF):
		return nil
	default:
		return err
	}
}

// failure returns the server's status when SendMsg reports io.EOF, which
// means the stream already ended on the server side.
func (s *Stream) failure(err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if recvErr := s.cs.RecvMsg(new(structpb.Struct)); recvErr != nil && !errors.Is(recvErr, io.EOF) {
		return recvErr
	}
	return err
}
