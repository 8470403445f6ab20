// Package errors provides structured error types for the binding layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/native type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindOverflow).
//		Path("createInfo", "queueCreateInfoCount").
//		NativeType("uint32_t").
//		Detail("%d queue families", n).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.EmbeddedNul(path, s, i)
//	err := errors.Native("vkCreateDevice", resultErr)
//
// Ownership violations have their own types: InUseError carries the
// observed reference count when an explicit destroy is refused.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
