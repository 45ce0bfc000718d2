// Package redact masks secrets before values reach logs or audit records.
//
// Operation parameters are the main concern: a Vigenère password or a
// Wichmann-Hill seed is the whole key of the scrambler, so it must never
// be written out verbatim.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	redactedSecret  = "[REDACTED_SECRET]"
)

// sensitiveKeys are masked wherever they appear as map keys.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"seed":          {},
	"auth_token":    {},
	"authorization": {},
	"token":         {},
}

var (
	kvSecretRe  = regexp.MustCompile(`(?i)((?:token|secret|password|seed)(?:[-_ ]*(?:id|key))?['\"]?\s*[:=]\s*)(['\"]?)([^\s'\"}]+)(['\"]?)`)
	bearerRe    = regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9._\-]{6,})`)
	longTokenRe = regexp.MustCompile(`\b[A-Za-z0-9]{32,}\b`)
)

// String masks key=value secrets, bearer tokens and long opaque tokens.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2[REDACTED_SECRET]$4`)
	masked = bearerRe.ReplaceAllString(masked, `$1 [REDACTED_SECRET]`)
	masked = longTokenRe.ReplaceAllString(masked, redactedSecret)
	return masked
}

// Interface redacts recognised sensitive values within nested structures.
// Raw bytes are never echoed; only their length is kept.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case []byte:
		return fmt.Sprintf("[%d bytes]", len(v))
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]string:
		return MapString(v)
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map redacts sensitive values within a map of arbitrary values. Keys named
// in a never_persist entry, and the well-known secret keys, are replaced
// wholesale.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	masked := applyNeverPersist(in)
	out := make(map[string]any, len(masked))
	for k, v := range masked {
		if isSensitive(k) {
			out[k] = redactedSecret
			continue
		}
		out[k] = Interface(v)
	}
	return out
}

// MapString redacts sensitive values within a string map.
func MapString(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	generic := make(map[string]any, len(in))
	for k, v := range in {
		generic[k] = v
	}
	masked := Map(generic)
	out := make(map[string]string, len(masked))
	for k, v := range masked {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

// Params returns a copy of operation parameters that is safe to log.
func Params(params map[string]any) map[string]any {
	return Map(params)
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func applyNeverPersist(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	var toMask []string
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			toMask = append(toMask, collectNeverPersist(v)...)
			continue
		}
		out[k] = v
	}
	for _, key := range toMask {
		if _, ok := out[key]; ok {
			out[key] = redactedSecret
		}
	}
	return out
}

func collectNeverPersist(value any) []string {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, elem := range v {
			raw = append(raw, fmt.Sprint(elem))
		}
	}
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
