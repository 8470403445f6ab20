// Package linmem provides a 32-bit native address space backed by a
// wazero linear memory.
//
// The space owns a tiny module whose only content is an exported,
// growable memory. Allocation is first-fit over a coalescing free list;
// when nothing fits, the space bumps past the highest allocation and
// grows the memory a page at a time, up to Config.MaxPages. The first
// NullGuard bytes are never handed out so address 0 stays null.
//
//	space, err := linmem.New(ctx, linmem.DefaultConfig())
//	if err != nil { ... }
//	defer space.Close(ctx)
//
//	addr, err := space.Alloc(64, 8)
package linmem
