package cipher

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned when a pipeline names an operation that
// is not registered.
var ErrUnknownOperation = errors.New("unknown operation")

// Execute runs the pipeline on the input data. Every call starts from
// freshly keyed coders; use a Session to carry keystream state across calls.
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	session, err := p.NewSession()
	if err != nil {
		return nil, err
	}
	return session.Process(ctx, input)
}

// Validate checks that every operation exists and that stateful operations
// accept their parameters.
func (p *Pipeline) Validate() error {
	_, err := p.NewSession()
	return err
}

// Reverse creates a reversed pipeline if all operations are reversible
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is not reversible")
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
	}

	// Reverse the order and get inverse operations
	for i, opConfig := range p.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", opConfig.Name)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// Session is a compiled pipeline. Keystream stages keep their position
// between Process calls, so a long message can be fed in chunks.
// A Session is not safe for concurrent use.
type Session struct {
	pipeline Pipeline
	stages   []Stage
}

// NewSession compiles the pipeline.
func (p *Pipeline) NewSession() (*Session, error) {
	s := &Session{pipeline: *p}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset rebuilds every stage, rewinding keystreams and reseeding generators.
func (s *Session) Reset() error {
	stages := make([]Stage, len(s.pipeline.Operations))
	for i, opConfig := range s.pipeline.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return fmt.Errorf("%w at step %d: %s", ErrUnknownOperation, i, opConfig.Name)
		}
		stage, err := compile(op, opConfig.Parameters)
		if err != nil {
			return fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
		stages[i] = stage
	}
	s.stages = stages
	return nil
}

func compile(op Operation, params map[string]interface{}) (Stage, error) {
	if stateful, ok := op.(StatefulOperation); ok {
		return stateful.NewStage(params)
	}
	return StageFunc(func(ctx context.Context, input []byte) ([]byte, error) {
		return op.Execute(ctx, input, params)
	}), nil
}

// Process runs input through every stage in order.
func (s *Session) Process(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, stage := range s.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err = stage.Apply(ctx, result)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", s.pipeline.Operations[i].Name, i, err)
		}
	}

	return result, nil
}

// Pipeline returns the configuration the session was compiled from.
func (s *Session) Pipeline() Pipeline {
	return s.pipeline
}
