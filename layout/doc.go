// Package layout computes native structure layouts.
//
// Native structures are described declaratively with Struct and Field and
// laid out with C natural-alignment rules for a given Target:
//   - Scalars: size equals alignment (u8=1, u32=4, u64=8, f32=4, ...)
//   - Pointers and size_t: Target.PointerSize
//   - Structs: fields in declaration order, each aligned to its own
//     alignment, total size rounded up to the largest field alignment
//   - Fixed arrays: Len consecutive elements, aligned like the element
//
// # Usage
//
//	calc := layout.NewCalculator(layout.HostTarget())
//	info := calc.Struct(abi.InstanceCreateInfo)
//	off := info.Fields["ppEnabledLayerNames"].Offset
//
// Calculators cache results per *Struct and are safe for concurrent use.
package layout
