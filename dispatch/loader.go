package dispatch

import (
	"reflect"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
)

// Loader supplies the address space native calls use and resolves
// dispatch tables for new contexts.
type Loader interface {
	Space() gpubind.Space
	Entry() (*EntryTable, error)
	Instance(instance uint64) (*InstanceTable, error)
	Device(instance *InstanceTable, device uint64) (*DeviceTable, error)
}

// Static is a Loader that hands out the same tables for every context.
type Static struct {
	Mem           gpubind.Space
	EntryFuncs    *EntryTable
	InstanceFuncs *InstanceTable
	DeviceFuncs   *DeviceTable
}

var _ Loader = (*Static)(nil)

func (s *Static) Space() gpubind.Space { return s.Mem }

func (s *Static) Entry() (*EntryTable, error) {
	if s.EntryFuncs == nil {
		return nil, errors.NewMissingFunctionsError("EntryTable", functionNames(reflect.TypeOf(EntryTable{})))
	}
	return s.EntryFuncs, Validate("EntryTable", s.EntryFuncs)
}

func (s *Static) Instance(uint64) (*InstanceTable, error) {
	if s.InstanceFuncs == nil {
		return nil, errors.NewMissingFunctionsError("InstanceTable", functionNames(reflect.TypeOf(InstanceTable{})))
	}
	return s.InstanceFuncs, Validate("InstanceTable", s.InstanceFuncs)
}

func (s *Static) Device(_ *InstanceTable, _ uint64) (*DeviceTable, error) {
	if s.DeviceFuncs == nil {
		return nil, errors.NewMissingFunctionsError("DeviceTable", functionNames(reflect.TypeOf(DeviceTable{})))
	}
	return s.DeviceFuncs, Validate("DeviceTable", s.DeviceFuncs)
}

// Validate reports every nil function field of table, which must be a
// pointer to one of the table structs. Missing functions are named with
// their native "vk" prefix.
func Validate(name string, table any) error {
	v := reflect.ValueOf(table)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.InvalidInput(errors.PhaseLoad, "dispatch table must be a non-nil struct pointer")
	}
	v = v.Elem()

	var missing []string
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Func && f.IsNil() {
			missing = append(missing, "vk"+v.Type().Field(i).Name)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingFunctionsError(name, missing)
	}
	return nil
}

func functionNames(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type.Kind() == reflect.Func {
			names = append(names, "vk"+t.Field(i).Name)
		}
	}
	return names
}
