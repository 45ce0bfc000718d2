package redact

import (
	"reflect"
	"strings"
	"testing"
)

func TestParamsMasksKeyMaterial(t *testing.T) {
	params := map[string]any{
		"password": "s3cret",
		"Seed":     []any{1.0, 2.0, 3.0},
		"codec":    "utf-8",
	}
	masked := Params(params)
	if masked["password"] != "[REDACTED_SECRET]" {
		t.Fatalf("expected password to be masked, got %#v", masked["password"])
	}
	if masked["Seed"] != "[REDACTED_SECRET]" {
		t.Fatalf("expected seed to be masked, got %#v", masked["Seed"])
	}
	if masked["codec"] != "utf-8" {
		t.Fatalf("codec should pass through, got %#v", masked["codec"])
	}
	if params["password"] != "s3cret" {
		t.Fatalf("input map must not be modified")
	}
}

func TestMapAppliesNeverPersistMask(t *testing.T) {
	input := map[string]any{
		"label":         "customer-7",
		"nested":        []any{"password=hunter2"},
		"never_persist": []any{"label", "missing"},
	}
	masked := Map(input)
	if _, exists := masked["never_persist"]; exists {
		t.Fatalf("never_persist key should be removed")
	}
	if val, ok := masked["label"].(string); !ok || val != "[REDACTED_SECRET]" {
		t.Fatalf("expected label to be masked, got %#v", masked["label"])
	}
	nested, ok := masked["nested"].([]any)
	if !ok || len(nested) != 1 {
		t.Fatalf("expected nested slice to be preserved, got %#v", masked["nested"])
	}
	if item, _ := nested[0].(string); item != "password=[REDACTED_SECRET]" {
		t.Fatalf("expected nested value to be redacted, got %q", item)
	}
}

func TestMapStringAppliesNeverPersistMask(t *testing.T) {
	input := map[string]string{
		"label":         "customer-7",
		"another_field": "ok",
		"never_persist": "label, missing",
	}
	masked := MapString(input)
	if _, exists := masked["never_persist"]; exists {
		t.Fatalf("never_persist key should be removed")
	}
	if val := masked["label"]; val != "[REDACTED_SECRET]" {
		t.Fatalf("expected label to be masked, got %q", val)
	}
	if val := masked["another_field"]; val != "ok" {
		t.Fatalf("unexpected value for another_field: %q", val)
	}
}

func TestMapNilAndEmpty(t *testing.T) {
	if got := Map(nil); got != nil {
		t.Fatalf("expected nil input to return nil, got %#v", got)
	}
	if got := Map(map[string]any{}); got != nil {
		t.Fatalf("expected empty map to return nil, got %#v", got)
	}
	if got := MapString(nil); got != nil {
		t.Fatalf("expected nil string map to return nil, got %#v", got)
	}
}

func TestStringRedactsInlineSecrets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"operation failed: password=abc", "operation failed: password=[REDACTED_SECRET]"},
		{`{"seed": "1,2,3"}`, `{"seed": "[REDACTED_SECRET]"}`},
		{"Authorization: Bearer abcdef123456", "Authorization: Bearer [REDACTED_SECRET]"},
		{"nothing to hide", "nothing to hide"},
	}
	for _, tt := range tests {
		if got := String(tt.in); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInterfaceHidesBytes(t *testing.T) {
	got := Interface([]byte{0x01, 0x02, 0x03})
	if s, _ := got.(string); !strings.Contains(s, "3 bytes") {
		t.Fatalf("expected byte length summary, got %#v", got)
	}
}

func TestSliceRedactsValues(t *testing.T) {
	out := Slice([]string{"token=secretvalue", "  "})
	expected := []string{"token=[REDACTED_SECRET]", "  "}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("expected %v, got %v", expected, out)
	}
}
