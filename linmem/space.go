package linmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

const (
	PageSize = 65536

	// NullGuard is the reserved region at the bottom of the space.
	NullGuard = 256

	maxPages = 65535
)

// Config controls the size of the linear memory.
type Config struct {
	InitialPages uint32
	MaxPages     uint32
}

// DefaultConfig starts with one page and allows growth to 64 MiB.
func DefaultConfig() Config {
	return Config{
		InitialPages: 1,
		MaxPages:     1024,
	}
}

type block struct {
	addr uint64
	size uint64
}

// Space is a gpubind.Space over a wazero linear memory.
type Space struct {
	rt    wazero.Runtime
	mod   api.Module
	mem   api.Memory
	free  []block
	top   uint64
	inUse uint64
	max   uint32
	mu    sync.Mutex
}

var _ gpubind.Space = (*Space)(nil)

// New instantiates a linear memory of cfg.InitialPages pages.
func New(ctx context.Context, cfg Config) (*Space, error) {
	if cfg.InitialPages == 0 {
		cfg.InitialPages = 1
	}
	if cfg.MaxPages == 0 || cfg.MaxPages > maxPages {
		cfg.MaxPages = maxPages
	}
	if cfg.InitialPages > cfg.MaxPages {
		return nil, errors.InvalidInput(errors.PhaseMemory,
			fmt.Sprintf("initial pages %d exceed max pages %d", cfg.InitialPages, cfg.MaxPages))
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.MaxPages))
	compiled, err := rt.CompileModule(ctx, memoryModule(cfg.InitialPages, cfg.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "compile memory module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.InvalidInput(errors.PhaseMemory, "memory module has no exported memory")
	}

	return &Space{
		rt:  rt,
		mod: mod,
		mem: mem,
		top: NullGuard,
		max: cfg.MaxPages,
	}, nil
}

// Close releases the underlying runtime. The space must not be used afterwards.
func (s *Space) Close(ctx context.Context) error {
	return s.rt.Close(ctx)
}

func (s *Space) PointerSize() uint64 { return 4 }

// Size is the current size of the linear memory in bytes.
func (s *Space) Size() uint64 { return uint64(s.mem.Size()) }

// InUse is the number of bytes currently allocated.
func (s *Space) InUse() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}

// Alloc returns zero-filled memory. align must be a power of two.
func (s *Space) Alloc(size, align uint64) (uint64, error) {
	if size == 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "zero-sized allocation")
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("alignment %d is not a power of two", align))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addr, ok := s.takeFree(size, align)
	if !ok {
		var err error
		addr, err = s.bump(size, align)
		if err != nil {
			return 0, err
		}
	}

	if err := s.zero(addr, size); err != nil {
		return 0, err
	}
	s.inUse += size
	return addr, nil
}

// Free returns a block to the free list. Freeing 0 is a no-op.
func (s *Space) Free(addr, size, align uint64) {
	if addr == 0 || size == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inUse -= min(size, s.inUse)
	s.insertFree(block{addr: addr, size: size})
}

func (s *Space) takeFree(size, align uint64) (uint64, bool) {
	for i, b := range s.free {
		start := layout.AlignTo(b.addr, align)
		end := start + size
		if end > b.addr+b.size {
			continue
		}

		var rest []block
		if start > b.addr {
			rest = append(rest, block{addr: b.addr, size: start - b.addr})
		}
		if tail := b.addr + b.size; end < tail {
			rest = append(rest, block{addr: end, size: tail - end})
		}
		s.free = append(s.free[:i], append(rest, s.free[i+1:]...)...)
		return start, true
	}
	return 0, false
}

func (s *Space) bump(size, align uint64) (uint64, error) {
	start := layout.AlignTo(s.top, align)
	end, ok := layout.SafeAdd(start, size)
	if !ok || end > uint64(s.max)*PageSize {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align,
			fmt.Errorf("linear memory limit of %d pages reached", s.max))
	}

	if cur := uint64(s.mem.Size()); end > cur {
		need := (end - cur + PageSize - 1) / PageSize
		if _, ok := s.mem.Grow(uint32(need)); !ok {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align,
				fmt.Errorf("failed to grow memory by %d pages", need))
		}
	}

	if start > s.top {
		s.insertFree(block{addr: s.top, size: start - s.top})
	}
	s.top = end
	return start, nil
}

// insertFree keeps the list sorted by address and merges neighbors.
func (s *Space) insertFree(b block) {
	i := 0
	for i < len(s.free) && s.free[i].addr < b.addr {
		i++
	}
	s.free = append(s.free, block{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = b

	if i+1 < len(s.free) && s.free[i].addr+s.free[i].size == s.free[i+1].addr {
		s.free[i].size += s.free[i+1].size
		s.free = append(s.free[:i+1], s.free[i+2:]...)
	}
	if i > 0 && s.free[i-1].addr+s.free[i-1].size == s.free[i].addr {
		s.free[i-1].size += s.free[i].size
		s.free = append(s.free[:i], s.free[i+1:]...)
		i--
	}

	// Give the topmost block back to the bump region.
	if last := len(s.free) - 1; last >= 0 && s.free[last].addr+s.free[last].size == s.top {
		s.top = s.free[last].addr
		s.free = s.free[:last]
	}
}

func (s *Space) zero(addr, size uint64) error {
	buf, ok := s.mem.Read(uint32(addr), uint32(size))
	if !ok {
		return errors.OutOfBounds(errors.PhaseMemory, addr, size, s.Size())
	}
	clear(buf)
	return nil
}

// memoryModule encodes a module that exports one memory named "memory".
func memoryModule(initial, max uint32) []byte {
	limits := []byte{0x01}
	limits = appendULEB(limits, initial)
	limits = appendULEB(limits, max)

	mod := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}

	// memory section: one memory with min and max
	mod = append(mod, 0x05)
	mod = appendULEB(mod, uint32(len(limits)+1))
	mod = append(mod, 0x01)
	mod = append(mod, limits...)

	// export section: "memory" -> memory 0
	mod = append(mod,
		0x07, 0x0a, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		0x02, 0x00,
	)
	return mod
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
			continue
		}
		return append(b, c)
	}
}
