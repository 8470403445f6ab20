package result

// Kind is a failure category. The set is closed; codes outside it map
// to KindUnknown.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindOutOfHostMemory
	KindOutOfDeviceMemory
	KindInitializationFailed
	KindDeviceLost
	KindMemoryMapFailed
	KindLayerNotPresent
	KindExtensionNotPresent
	KindFeatureNotPresent
	KindIncompatibleDriver
	KindTooManyObjects
	KindFormatNotSupported
	KindFragmentedPool
	KindUnspecified // VK_ERROR_UNKNOWN, a known kind distinct from KindUnknown
	KindOutOfPoolMemory
	KindInvalidExternalHandle
	KindFragmentation
	KindInvalidOpaqueCaptureAddress
	KindSurfaceLost
	KindNativeWindowInUse
	KindOutOfDate
	KindIncompatibleDisplay
	KindValidationFailed
	KindInvalidShader
	KindNotPermitted
	KindFullScreenExclusiveModeLost
	KindCompressionExhausted
	kindCount
)

type kindInfo struct {
	name string
	code Code
}

var kinds = [kindCount]kindInfo{
	KindUnknown:                     {"unknown", 0},
	KindOutOfHostMemory:             {"VK_ERROR_OUT_OF_HOST_MEMORY", -1},
	KindOutOfDeviceMemory:           {"VK_ERROR_OUT_OF_DEVICE_MEMORY", -2},
	KindInitializationFailed:        {"VK_ERROR_INITIALIZATION_FAILED", -3},
	KindDeviceLost:                  {"VK_ERROR_DEVICE_LOST", -4},
	KindMemoryMapFailed:             {"VK_ERROR_MEMORY_MAP_FAILED", -5},
	KindLayerNotPresent:             {"VK_ERROR_LAYER_NOT_PRESENT", -6},
	KindExtensionNotPresent:         {"VK_ERROR_EXTENSION_NOT_PRESENT", -7},
	KindFeatureNotPresent:           {"VK_ERROR_FEATURE_NOT_PRESENT", -8},
	KindIncompatibleDriver:          {"VK_ERROR_INCOMPATIBLE_DRIVER", -9},
	KindTooManyObjects:              {"VK_ERROR_TOO_MANY_OBJECTS", -10},
	KindFormatNotSupported:          {"VK_ERROR_FORMAT_NOT_SUPPORTED", -11},
	KindFragmentedPool:              {"VK_ERROR_FRAGMENTED_POOL", -12},
	KindUnspecified:                 {"VK_ERROR_UNKNOWN", -13},
	KindOutOfPoolMemory:             {"VK_ERROR_OUT_OF_POOL_MEMORY", -1000069000},
	KindInvalidExternalHandle:       {"VK_ERROR_INVALID_EXTERNAL_HANDLE", -1000072003},
	KindFragmentation:               {"VK_ERROR_FRAGMENTATION", -1000161000},
	KindInvalidOpaqueCaptureAddress: {"VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS", -1000257000},
	KindSurfaceLost:                 {"VK_ERROR_SURFACE_LOST_KHR", -1000000000},
	KindNativeWindowInUse:           {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", -1000000001},
	KindOutOfDate:                   {"VK_ERROR_OUT_OF_DATE_KHR", -1000001004},
	KindIncompatibleDisplay:         {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", -1000003001},
	KindValidationFailed:            {"VK_ERROR_VALIDATION_FAILED_EXT", -1000011001},
	KindInvalidShader:               {"VK_ERROR_INVALID_SHADER_NV", -1000012000},
	KindNotPermitted:                {"VK_ERROR_NOT_PERMITTED_KHR", -1000174001},
	KindFullScreenExclusiveModeLost: {"VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT", -1000255000},
	KindCompressionExhausted:        {"VK_ERROR_COMPRESSION_EXHAUSTED_EXT", -1000338000},
}

var byCode = func() map[Code]Kind {
	m := make(map[Code]Kind, len(kinds))
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[kinds[k].code] = k
	}
	return m
}()

// Kinds returns every known kind, excluding KindUnknown.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// KindOf maps a code to its kind. Unknown and non-negative codes map to KindUnknown.
func KindOf(c Code) Kind {
	if k, ok := byCode[c]; ok {
		return k
	}
	return KindUnknown
}

// Code returns the canonical native code of a known kind, or 0 for
// KindUnknown, which has no code of its own.
func (k Kind) Code() Code {
	if k < kindCount {
		return kinds[k].code
	}
	return 0
}

func (k Kind) String() string {
	if k < kindCount {
		return kinds[k].name
	}
	return "unknown"
}
