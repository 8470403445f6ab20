// Package marshal lowers Go parameter values into native structures and
// reads native structures back.
//
// # Scopes
//
// A Scope owns every allocation made while preparing one native call:
// the top-level structure, the arrays and strings it points at, boxed
// optional values, nested structures and extension chains. Closing the
// scope frees all of it. Wrapped operations follow one shape:
//
//	scope := marshal.NewScope(space)
//	defer scope.Close()
//
//	info, err := marshal.Convert(scope, createInfo)
//	if err != nil {
//		return err
//	}
//	code := table.CreateFence(device, info.Addr(), callbacks, out)
//
// # Lowering
//
// A type becomes convertible by implementing Lowerer: Schema names its
// native layout and Lower fills a Writer positioned on freshly allocated,
// zeroed memory. Convert, ConvertOptional and ConvertSlice are the only
// places structures are allocated; a Lower method never allocates its
// own structure, only what the structure points to.
//
// Conventions for fields:
//
//   - absent optional values and empty sequences lower to a null pointer
//     and a zero count
//   - sequences keep their element order
//   - text is copied with a terminating NUL; text containing a NUL byte
//     or invalid UTF-8 fails conversion with a *errors.Error before any
//     native call is made
//
// # Extension chains
//
// Scope.Chain lowers a list of Extension values in order and links each
// element's pNext to the next one, the last to a caller-supplied tail.
//
// # Reading back
//
// Reader is the mirror of Writer. Enumeration results, driver-side
// decoding and round-trip tests use it.
package marshal
