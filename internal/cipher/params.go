package cipher

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/RowanDark/codecs/internal/codecerr"
)

// Parameter names understood by the built-in operations.
const (
	ParamPassword = "password"
	ParamSeed     = "seed"
	ParamCodec    = "codec"
)

// stringParam returns params[key] as a string. A missing key yields ok=false.
func stringParam(op string, params map[string]interface{}, key string) (string, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", false, codecerr.New(codecerr.TypeMismatch, op, "parameter %q must be a string, got %T", key, raw)
	}
	return s, true, nil
}

// bytesParam accepts a string (taken as UTF-8) or a byte slice.
func bytesParam(op string, params map[string]interface{}, key string) ([]byte, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return []byte(v), true, nil
	case []byte:
		return v, true, nil
	default:
		return nil, false, codecerr.New(codecerr.TypeMismatch, op, "parameter %q must be text or bytes, got %T", key, raw)
	}
}

// seedParam reads a three-lane seed. It accepts a slice of integers, a JSON
// array as decoded from recipes or structpb (float64 elements with integral
// values), or a string such as "1,2,3". A missing seed defaults to 1,1,1.
func seedParam(op string, params map[string]interface{}) ([3]int, error) {
	seed := [3]int{1, 1, 1}
	raw, ok := params[ParamSeed]
	if !ok || raw == nil {
		return seed, nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case []int:
		for _, n := range v {
			items = append(items, n)
		}
	case [3]int:
		return v, nil
	case string:
		for _, part := range strings.FieldsFunc(v, isSeparator) {
			items = append(items, part)
		}
	default:
		return seed, codecerr.New(codecerr.TypeMismatch, op, "parameter %q must be a list of three integers, got %T", ParamSeed, raw)
	}
	if len(items) != 3 {
		return seed, codecerr.New(codecerr.InvalidArgument, op, "parameter %q needs exactly three values, got %d", ParamSeed, len(items))
	}
	for i, item := range items {
		n, err := integer(item)
		if err != nil {
			return seed, codecerr.New(codecerr.TypeMismatch, op, "seed value %d: %v", i, err)
		}
		seed[i] = n
	}
	return seed, nil
}

func integer(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, errNotInteger(v)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errNotInteger(v)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errNotInteger(v)
		}
		return i, nil
	default:
		return 0, errNotInteger(v)
	}
}

type notInteger struct{ v interface{} }

func (e notInteger) Error() string {
	return "not an integer: " + strconv.Quote(stringify(e.v))
}

func errNotInteger(v interface{}) error {
	return notInteger{v}
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// textOperations are the built-ins that accept a codec parameter.
var textOperations = map[string]bool{
	"xor_encode":      true,
	"xor_decode":      true,
	"vigenere_encode": true,
	"vigenere_decode": true,
}

// WithTextCodec returns a copy of p in which every step that accepts a codec
// parameter and does not set one uses codec. Steps that already name a codec
// keep it.
func (p Pipeline) WithTextCodec(codec string) Pipeline {
	out := Pipeline{Reversible: p.Reversible, Operations: make([]OperationConfig, len(p.Operations))}
	for i, op := range p.Operations {
		params := op.Parameters
		if _, set := params[ParamCodec]; textOperations[op.Name] && !set {
			params = make(map[string]interface{}, len(op.Parameters)+1)
			for k, v := range op.Parameters {
				params[k] = v
			}
			params[ParamCodec] = codec
		}
		out.Operations[i] = OperationConfig{Name: op.Name, Parameters: params}
	}
	return out
}
