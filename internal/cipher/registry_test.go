package cipher

import (
	"context"
	"testing"
)

// mockOperation is a test implementation of Operation
type mockOperation struct {
	BaseOperation
}

func (m *mockOperation) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return input, nil
}

func TestRegisterOperation(t *testing.T) {
	// Clean slate for each test
	ClearRegistry()
	t.Cleanup(RestoreDefaults)

	op := &mockOperation{
		BaseOperation: BaseOperation{
			NameValue:        "mock",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Mock operation for testing",
		},
	}

	err := RegisterOperation(op)
	if err != nil {
		t.Fatalf("failed to register operation: %v", err)
	}

	// Test duplicate registration
	err = RegisterOperation(op)
	if err == nil {
		t.Fatal("expected error when registering duplicate operation")
	}

	if err := RegisterOperation(nil); err == nil {
		t.Fatal("expected error when registering nil operation")
	}
	if err := RegisterOperation(&mockOperation{}); err == nil {
		t.Fatal("expected error when registering unnamed operation")
	}
}

func TestGetOperation(t *testing.T) {
	ClearRegistry()
	t.Cleanup(RestoreDefaults)

	op := &mockOperation{
		BaseOperation: BaseOperation{
			NameValue: "test_op",
			TypeValue: OperationTypeDecode,
		},
	}
	if err := RegisterOperation(op); err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	retrieved, exists := GetOperation("test_op")
	if !exists {
		t.Fatal("operation should exist")
	}
	if retrieved.Name() != "test_op" {
		t.Errorf("expected name test_op, got %s", retrieved.Name())
	}

	if _, exists := GetOperation("nonexistent"); exists {
		t.Error("nonexistent operation should not exist")
	}

	UnregisterOperation("test_op")
	if _, exists := GetOperation("test_op"); exists {
		t.Error("operation should be gone after UnregisterOperation")
	}
}

func TestBuiltinOperations(t *testing.T) {
	want := []string{
		"base64_decode", "base64_encode",
		"cobs_decode", "cobs_encode", "cobs_frame",
		"hex_decode", "hex_encode",
		"vigenere_decode", "vigenere_encode",
		"wh_decode", "wh_encode",
		"xor_decode", "xor_encode",
	}

	ops := ListOperations()
	if len(ops) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(ops))
	}
	for i, op := range ops {
		if op.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], op.Name())
		}
	}
}

func TestListOperationsByType(t *testing.T) {
	tests := []struct {
		opType OperationType
		count  int
	}{
		{OperationTypeEncode, 4},
		{OperationTypeDecode, 3},
		{OperationTypeScramble, 3},
		{OperationTypeUnscramble, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.opType), func(t *testing.T) {
			ops := ListOperationsByType(tt.opType)
			if len(ops) != tt.count {
				t.Errorf("expected %d %s operations, got %d", tt.count, tt.opType, len(ops))
			}
			for _, op := range ops {
				if op.Type() != tt.opType {
					t.Errorf("operation %s has type %s", op.Name(), op.Type())
				}
			}
		})
	}
}

func TestStatefulOperations(t *testing.T) {
	for _, name := range []string{"vigenere_encode", "vigenere_decode", "wh_encode", "wh_decode"} {
		op, _ := GetOperation(name)
		if _, ok := op.(StatefulOperation); !ok {
			t.Errorf("%s should carry keystream state", name)
		}
	}
	for _, name := range []string{"cobs_encode", "xor_encode", "hex_encode"} {
		op, _ := GetOperation(name)
		if _, ok := op.(StatefulOperation); ok {
			t.Errorf("%s should be stateless", name)
		}
	}
}

func TestRegistryIsolated(t *testing.T) {
	var r Registry
	if _, ok := r.Lookup("hex_encode"); ok {
		t.Fatal("a new registry must start empty")
	}

	op := &mockOperation{BaseOperation: BaseOperation{NameValue: "local", TypeValue: OperationTypeDecode}}
	if err := r.Register(op); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := GetOperation("local"); ok {
		t.Fatal("registering on a private registry leaked into the global one")
	}
	if got := r.Select(nil); len(got) != 1 || got[0].Name() != "local" {
		t.Fatalf("unexpected operations %v", got)
	}

	r.Remove("local")
	if _, ok := r.Lookup("local"); ok {
		t.Fatal("Remove did not drop the operation")
	}
}
