package dispatch

import (
	"strings"
	"testing"

	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/result"
)

func TestValidate(t *testing.T) {
	full := &EntryTable{
		EnumerateInstanceVersion:             func(uint64) result.Code { return 0 },
		EnumerateInstanceLayerProperties:     func(uint64, uint64) result.Code { return 0 },
		EnumerateInstanceExtensionProperties: func(uint64, uint64, uint64) result.Code { return 0 },
		CreateInstance:                       func(uint64, uint64, uint64) result.Code { return 0 },
	}
	if err := Validate("EntryTable", full); err != nil {
		t.Errorf("complete table: %v", err)
	}

	partial := &EntryTable{CreateInstance: full.CreateInstance}
	err := Validate("EntryTable", partial)
	var missing *errors.MissingFunctionsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFunctionsError, got %v", err)
	}
	want := []string{
		"vkEnumerateInstanceExtensionProperties",
		"vkEnumerateInstanceLayerProperties",
		"vkEnumerateInstanceVersion",
	}
	if strings.Join(missing.Functions, ",") != strings.Join(want, ",") {
		t.Errorf("missing = %v, want %v", missing.Functions, want)
	}
	if missing.Table != "EntryTable" {
		t.Errorf("Table = %q", missing.Table)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name  string
		table any
	}{
		{"nil", nil},
		{"struct value", EntryTable{}},
		{"nil pointer", (*DeviceTable)(nil)},
		{"non-struct", new(int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("X", tt.table)
			if !errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidInput}) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestStaticLoader(t *testing.T) {
	l := &Static{}

	if _, err := l.Entry(); !errors.Is(err, &errors.MissingFunctionsError{}) {
		t.Errorf("Entry on empty loader: %v", err)
	}
	_, err := l.Device(nil, 1)
	var missing *errors.MissingFunctionsError
	if !errors.As(err, &missing) {
		t.Fatalf("Device on empty loader: %v", err)
	}
	for _, fn := range missing.Functions {
		if !strings.HasPrefix(fn, "vk") {
			t.Errorf("function %q lacks vk prefix", fn)
		}
	}
	if len(missing.Functions) < 20 {
		t.Errorf("expected every device function listed, got %d", len(missing.Functions))
	}

	l.InstanceFuncs = &InstanceTable{}
	if _, err := l.Instance(1); err == nil {
		t.Error("empty instance table should fail validation")
	}
}
