package gpubind

// Memory is a native address space as seen by the binding layer.
// Addresses are absolute; 0 is the null pointer. All values are little-endian.
type Memory interface {
	Read(addr uint64, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	ReadU8(addr uint64) (uint8, error)
	ReadU16(addr uint64) (uint16, error)
	ReadU32(addr uint64) (uint32, error)
	ReadU64(addr uint64) (uint64, error)
	WriteU8(addr uint64, value uint8) error
	WriteU16(addr uint64, value uint16) error
	WriteU32(addr uint64, value uint32) error
	WriteU64(addr uint64, value uint64) error
}

// Allocator allocates memory in a native address space.
// A successful Alloc never returns 0. Allocations are zero-filled.
type Allocator interface {
	Alloc(size, align uint64) (uint64, error)
	Free(addr, size, align uint64)
}

// Space is an address space the native API can read parameters from and
// write results into. PointerSize is the width of a native pointer in bytes.
type Space interface {
	Memory
	Allocator
	PointerSize() uint64
}
