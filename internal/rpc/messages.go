package rpc

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/codecs/internal/cipher"
)

// Message fields. Binary payloads travel as standard Base64 strings.
const (
	fieldPipeline   = "pipeline"
	fieldName       = "name"
	fieldParameters = "parameters"
	fieldRecipe     = "recipe"
	fieldReverse    = "reverse"
	fieldInput      = "input"
	fieldOutput     = "output"
	fieldReset      = "reset"
	fieldReady      = "ready"
	fieldStreamID   = "stream_id"

	// bytesKey tags a parameter that was a byte slice on the caller's side,
	// e.g. a binary Vigenère password: {"base64": "AP8="}.
	bytesKey = "base64"
)

// request is a decoded Execute or Stream message. Exactly one of pipeline
// and recipe selects the transformation on an opening message.
type request struct {
	pipeline *cipher.Pipeline
	recipe   string
	reverse  bool
	input    []byte
	hasInput bool
	reset    bool
}

func parseRequest(msg *structpb.Struct) (request, error) {
	var req request
	fields := msg.AsMap()

	if raw, ok := fields[fieldPipeline]; ok {
		p, err := pipelineFromWire(raw)
		if err != nil {
			return req, err
		}
		req.pipeline = &p
	}
	if raw, ok := fields[fieldRecipe]; ok {
		name, isString := raw.(string)
		if !isString || name == "" {
			return req, fmt.Errorf("%s must be a non-empty string", fieldRecipe)
		}
		req.recipe = name
	}
	if req.pipeline != nil && req.recipe != "" {
		return req, fmt.Errorf("%s and %s are mutually exclusive", fieldPipeline, fieldRecipe)
	}
	if raw, ok := fields[fieldReverse]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return req, fmt.Errorf("%s must be a boolean", fieldReverse)
		}
		req.reverse = b
	}
	if raw, ok := fields[fieldReset]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return req, fmt.Errorf("%s must be a boolean", fieldReset)
		}
		req.reset = b
	}
	if raw, ok := fields[fieldInput]; ok {
		data, err := decodeBytes(fieldInput, raw)
		if err != nil {
			return req, err
		}
		req.input = data
		req.hasInput = true
	}
	return req, nil
}

func pipelineFromWire(raw any) (cipher.Pipeline, error) {
	items, ok := raw.([]any)
	if !ok {
		return cipher.Pipeline{}, fmt.Errorf("%s must be a list of operations", fieldPipeline)
	}
	p := cipher.Pipeline{
		Operations: make([]cipher.OperationConfig, 0, len(items)),
		Reversible: true,
	}
	for i, item := range items {
		step, ok := item.(map[string]any)
		if !ok {
			return cipher.Pipeline{}, fmt.Errorf("%s[%d] must be an object", fieldPipeline, i)
		}
		name, _ := step[fieldName].(string)
		if name == "" {
			return cipher.Pipeline{}, fmt.Errorf("%s[%d] needs a %s", fieldPipeline, i, fieldName)
		}
		cfg := cipher.OperationConfig{Name: name}
		if rawParams, ok := step[fieldParameters]; ok && rawParams != nil {
			params, ok := rawParams.(map[string]any)
			if !ok {
				return cipher.Pipeline{}, fmt.Errorf("%s[%d].%s must be an object", fieldPipeline, i, fieldParameters)
			}
			cfg.Parameters = make(map[string]interface{}, len(params))
			for k, v := range params {
				cfg.Parameters[k] = paramFromWire(v)
			}
		}
		p.Operations = append(p.Operations, cfg)
	}
	return p, nil
}

func pipelineToWire(p cipher.Pipeline) []any {
	steps := make([]any, len(p.Operations))
	for i, op := range p.Operations {
		step := map[string]any{fieldName: op.Name}
		if len(op.Parameters) > 0 {
			params := make(map[string]any, len(op.Parameters))
			for k, v := range op.Parameters {
				params[k] = paramToWire(v)
			}
			step[fieldParameters] = params
		}
		steps[i] = step
	}
	return steps
}

// paramToWire reduces a parameter to the shapes structpb accepts.
func paramToWire(v any) any {
	switch x := v.(type) {
	case []byte:
		return map[string]any{bytesKey: base64.StdEncoding.EncodeToString(x)}
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out
	case [3]int:
		return []any{x[0], x[1], x[2]}
	default:
		return v
	}
}

func paramFromWire(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	s, ok := m[bytesKey].(string)
	if !ok {
		return v
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return v
	}
	return data
}

func decodeBytes(field string, raw any) ([]byte, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a base64 string", field)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", field, err)
	}
	return data, nil
}

func newMessage(fields map[string]any) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}
	return msg, nil
}

func outputMessage(data []byte) (*structpb.Struct, error) {
	return newMessage(map[string]any{fieldOutput: base64.StdEncoding.EncodeToString(data)})
}

func readOutput(msg *structpb.Struct) ([]byte, error) {
	field, ok := msg.GetFields()[fieldOutput]
	if !ok {
		return nil, fmt.Errorf("response has no %s", fieldOutput)
	}
	return decodeBytes(fieldOutput, field.GetStringValue())
}
