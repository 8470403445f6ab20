package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseMarshal,
				Kind:       KindTypeMismatch,
				Path:       []string{"createInfo", "pApplicationInfo", "apiVersion"},
				GoType:     "string",
				NativeType: "uint32_t",
				Detail:     "cannot convert",
			},
			contains: []string{"[marshal]", "type_mismatch", "createInfo.pApplicationInfo.apiVersion", "string", "uint32_t", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseUnmarshal,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[unmarshal]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseNative,
				Kind:   KindNative,
				Detail: "vkCreateFence",
				Cause:  errors.New("device lost"),
			},
			contains: []string{"[native]", "native_failure", "vkCreateFence", "caused by", "device lost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindAllocation,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindEmbeddedNul,
		Path:  []string{"pApplicationName"},
	}

	if !err.Is(&Error{Phase: PhaseMarshal, Kind: KindEmbeddedNul}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseUnmarshal, Kind: KindEmbeddedNul}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseMarshal, Kind: KindInvalidUTF8}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseMarshal, Kind: KindEmbeddedNul}) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindTypeMismatch).
		Path("info", "flags").
		GoType("string").
		NativeType("VkFlags").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "uint32", "string").
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "info" || err.Path[1] != "flags" {
		t.Errorf("Path = %v, want [info flags]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.NativeType != "VkFlags" {
		t.Errorf("NativeType = %v, want 'VkFlags'", err.NativeType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected uint32, got string" {
		t.Errorf("Detail = %v, want 'expected uint32, got string'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("EmbeddedNul", func(t *testing.T) {
		err := EmbeddedNul([]string{"name"}, "ab\x00c", 2)
		if err.Kind != KindEmbeddedNul || err.Phase != PhaseMarshal {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Value != 2 {
			t.Errorf("Value = %v, want 2", err.Value)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseUnmarshal, []string{"str"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseMarshal, 1024, 8, nil)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMemory, 0x10000, 8, 0x10000)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint64(0x10000) {
			t.Errorf("Value = %v, want 0x10000", err.Value)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseOwnership, "queues cannot be destroyed")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Released", func(t *testing.T) {
		err := Released("VkFence")
		if err.Kind != KindReleased || err.NativeType != "VkFence" {
			t.Errorf("got %v %v", err.Kind, err.NativeType)
		}
	})

	t.Run("Native", func(t *testing.T) {
		cause := errors.New("boom")
		err := Native("vkCreateDevice", cause)
		if !errors.Is(err, cause) {
			t.Error("Native should wrap cause")
		}
		if !errors.Is(err, &Error{Phase: PhaseNative, Kind: KindNative}) {
			t.Error("Native should match phase/kind")
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseMarshal, []string{"count"}, uint64(1<<40), "uint32_t")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
	})
}

func TestInUseError(t *testing.T) {
	err := &InUseError{ObjectType: "VkFence", Handle: 0x42, Count: 3}

	if !strings.Contains(err.Error(), "3 live references") {
		t.Errorf("message %q should report count", err.Error())
	}
	if !errors.Is(err, &InUseError{}) {
		t.Error("errors.Is should match InUseError")
	}
	if !errors.Is(err, &Error{Phase: PhaseOwnership, Kind: KindInUse}) {
		t.Error("errors.Is should match ownership/in_use")
	}

	var target *InUseError
	if !errors.As(err, &target) || target.Count != 3 {
		t.Error("errors.As should recover count")
	}
}

func TestMissingFunctionsError(t *testing.T) {
	t.Run("sorted listing", func(t *testing.T) {
		err := NewMissingFunctionsError("DeviceTable", []string{"vkDestroyFence", "vkCreateFence"})
		if err.Functions[0] != "vkCreateFence" {
			t.Errorf("functions not sorted: %v", err.Functions)
		}
		msg := err.Error()
		for _, s := range []string{"DeviceTable", "2", "vkCreateFence", "vkDestroyFence"} {
			if !strings.Contains(msg, s) {
				t.Errorf("message %q should contain %q", msg, s)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingFunctionsError("EntryTable", nil)
		if !strings.Contains(err.Error(), "no functions specified") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingFunctionsError("EntryTable", []string{"vkCreateInstance"})
		if !errors.Is(err, &MissingFunctionsError{}) {
			t.Error("errors.Is should match MissingFunctionsError")
		}
	})
}

func TestBatchError(t *testing.T) {
	cause := errors.New("device lost")
	err := &BatchError{Function: "vkCreateComputePipelines", Requested: 3, Failed: []int{1}, Status: -4, Cause: cause}

	if !strings.Contains(err.Error(), "created 2 of 3") {
		t.Errorf("message %q should report created count", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("BatchError should unwrap to its cause")
	}
	if !errors.Is(err, &Error{Phase: PhaseNative, Kind: KindNative}) {
		t.Error("BatchError should match native failures")
	}
	var target *BatchError
	if !errors.As(err, &target) || target.Failed[0] != 1 {
		t.Error("errors.As should recover failed indices")
	}

	status := &BatchError{Function: "vkCreateComputePipelines", Requested: 2, Failed: []int{0}, Status: 1000297000}
	if strings.Contains(status.Error(), "caused by") {
		t.Errorf("status-only batch error should have no cause: %s", status.Error())
	}
}
