// Package vk wraps a handle-based native graphics and compute API.
//
// Parameters are plain Go values. Each call lowers them into a
// marshal.Scope that lives exactly as long as the native call, so
// strings, arrays, nested structures and pNext extension chains are
// valid while the driver reads them and freed right after.
//
// Objects returned by creation calls are reference counted. Clone adds a
// reference, Release drops one, and the native destroy runs once when
// the last reference is gone. Destroy is the explicit path: it only
// succeeds for the sole reference and otherwise returns
// *errors.InUseError, leaving the object usable. Every child holds a
// reference on its parent, so a device outlives its fences and an
// instance outlives its devices without any ordering code:
//
//	inst, err := vk.CreateInstance(loader, &vk.InstanceCreateInfo{
//		ApplicationInfo: &vk.ApplicationInfo{ApplicationName: "demo", APIVersion: abi.Version1_3},
//	}, vk.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer inst.Release()
//
// Variable-length results are fetched with the two-call protocol and
// returned as slices. Native failures are *errors.Error values wrapping
// a *result.Error, so errors.Is(err, result.ErrDeviceLost) works.
package vk
