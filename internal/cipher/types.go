package cipher

import (
	"context"
)

// OperationType defines the category of transformation operation
type OperationType string

const (
	OperationTypeEncode     OperationType = "encode"
	OperationTypeDecode     OperationType = "decode"
	OperationTypeScramble   OperationType = "scramble"
	OperationTypeUnscramble OperationType = "unscramble"
)

// Operation represents a single transformation operation that can be applied to data
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input data
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// Stage is one compiled step of a Session. Stages of keystream coders keep
// their position between calls.
type Stage interface {
	Apply(ctx context.Context, input []byte) ([]byte, error)
}

// StatefulOperation is an Operation backed by a coder whose state advances
// with every byte or value processed. Execute on such an operation always
// starts from a freshly keyed coder; NewStage hands out a coder that keeps
// its state across calls.
type StatefulOperation interface {
	Operation
	NewStage(params map[string]interface{}) (Stage, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, input []byte) ([]byte, error)

func (f StageFunc) Apply(ctx context.Context, input []byte) ([]byte, error) {
	return f(ctx, input)
}

// OperationConfig represents configuration for an operation in a pipeline
type OperationConfig struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Pipeline represents a chain of operations that can be applied sequentially
type Pipeline struct {
	Operations []OperationConfig `json:"operations"`
	Reversible bool              `json:"reversible"`
}

// Recipe represents a named, reusable transformation pipeline
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// DetectionResult represents the result of automatic encoding detection
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"` // Suggested operation name to decode
}

// Detector identifies the encoding or format of input data
type Detector interface {
	// Detect attempts to identify the encoding of the input
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)

	// SupportedEncodings returns a list of encodings this detector can identify
	SupportedEncodings() []string
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
