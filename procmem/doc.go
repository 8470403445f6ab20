// Package procmem is the process address space as seen by native code.
//
// Allocations are Go byte slices pinned with runtime.Pinner, so their
// addresses stay valid while native code holds them. Reads and writes are
// only permitted inside live allocations; an address that does not belong
// to one is reported as out of bounds instead of being dereferenced.
package procmem
