package linmem

import (
	"context"
	"testing"

	"github.com/wippyai/gpubind/errors"
)

func newSpace(t *testing.T, cfg Config) *Space {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func TestMemoryModule(t *testing.T) {
	mod := memoryModule(1, 2)
	want := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
		0x05, 0x04, 0x01, 0x01, 0x01, 0x02,
		0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	}
	if string(mod) != string(want) {
		t.Errorf("module = % x\nwant     % x", mod, want)
	}

	// Limits above 127 need a multi-byte LEB128 encoding.
	if got := appendULEB(nil, 1024); string(got) != string([]byte{0x80, 0x08}) {
		t.Errorf("appendULEB(1024) = % x", got)
	}
}

func TestAlloc(t *testing.T) {
	s := newSpace(t, DefaultConfig())

	tests := []struct {
		name  string
		size  uint64
		align uint64
	}{
		{"byte", 1, 1},
		{"u32", 4, 4},
		{"struct", 48, 8},
		{"odd", 13, 2},
		{"page aligned", 100, 4096},
	}

	seen := make(map[uint64]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := s.Alloc(tt.size, tt.align)
			if err != nil {
				t.Fatalf("Alloc failed: %v", err)
			}
			if addr < NullGuard {
				t.Errorf("addr %#x inside null guard", addr)
			}
			if addr%tt.align != 0 {
				t.Errorf("addr %#x not aligned to %d", addr, tt.align)
			}
			if seen[addr] {
				t.Errorf("addr %#x handed out twice", addr)
			}
			seen[addr] = true
		})
	}
}

func TestAllocInvalid(t *testing.T) {
	s := newSpace(t, DefaultConfig())

	if _, err := s.Alloc(0, 1); err == nil {
		t.Error("expected error for zero size")
	}
	_, err := s.Alloc(8, 3)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindInvalidInput}) {
		t.Errorf("expected invalid input for bad alignment, got %v", err)
	}
}

func TestAllocZeroFilled(t *testing.T) {
	s := newSpace(t, DefaultConfig())

	addr, err := s.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(addr, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}); err != nil {
		t.Fatal(err)
	}
	s.Free(addr, 16, 8)

	again, err := s.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if again != addr {
		t.Errorf("expected freed block %#x to be reused, got %#x", addr, again)
	}
	data, err := s.Read(again, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestFreeCoalesces(t *testing.T) {
	s := newSpace(t, DefaultConfig())

	a, _ := s.Alloc(32, 8)
	b, _ := s.Alloc(32, 8)
	c, _ := s.Alloc(32, 8)
	guard, _ := s.Alloc(8, 8)

	s.Free(a, 32, 8)
	s.Free(c, 32, 8)
	s.Free(b, 32, 8)

	if len(s.free) != 1 {
		t.Fatalf("free list = %v, want one merged block", s.free)
	}
	if s.free[0].addr != a || s.free[0].size != 96 {
		t.Errorf("merged block = %+v, want {%#x 96}", s.free[0], a)
	}

	big, err := s.Alloc(96, 8)
	if err != nil {
		t.Fatal(err)
	}
	if big != a {
		t.Errorf("96-byte alloc = %#x, want merged block %#x", big, a)
	}

	s.Free(big, 96, 8)
	s.Free(guard, 8, 8)
	if s.InUse() != 0 {
		t.Errorf("InUse = %d, want 0", s.InUse())
	}
	if len(s.free) != 0 || s.top != NullGuard {
		t.Errorf("space not fully reclaimed: free=%v top=%#x", s.free, s.top)
	}
}

func TestGrow(t *testing.T) {
	s := newSpace(t, Config{InitialPages: 1, MaxPages: 4})

	addr, err := s.Alloc(2*PageSize, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if s.Size() < addr+2*PageSize {
		t.Errorf("memory size %d too small for allocation ending at %d", s.Size(), addr+2*PageSize)
	}
	if err := s.WriteU64(addr+2*PageSize-8, 0xdeadbeef); err != nil {
		t.Errorf("write at end of grown region failed: %v", err)
	}

	_, err = s.Alloc(8*PageSize, 8)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindAllocation}) {
		t.Errorf("expected allocation error past max pages, got %v", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{InitialPages: 8, MaxPages: 2})
	if err == nil {
		t.Error("expected error when initial pages exceed max")
	}
}

func TestReadWrite(t *testing.T) {
	s := newSpace(t, DefaultConfig())
	addr, err := s.Alloc(32, 8)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.WriteU8(addr, 0xab); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU16(addr+2, 0xbeef); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU32(addr+4, 0xcafebabe); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU64(addr+8, 0x0123456789abcdef); err != nil {
		t.Fatal(err)
	}

	if v, _ := s.ReadU8(addr); v != 0xab {
		t.Errorf("ReadU8 = %#x", v)
	}
	if v, _ := s.ReadU16(addr + 2); v != 0xbeef {
		t.Errorf("ReadU16 = %#x", v)
	}
	if v, _ := s.ReadU32(addr + 4); v != 0xcafebabe {
		t.Errorf("ReadU32 = %#x", v)
	}
	if v, _ := s.ReadU64(addr + 8); v != 0x0123456789abcdef {
		t.Errorf("ReadU64 = %#x", v)
	}

	raw, err := s.Read(addr+4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != 0xbe || raw[3] != 0xca {
		t.Errorf("little-endian layout wrong: % x", raw)
	}
}

func TestOutOfBounds(t *testing.T) {
	s := newSpace(t, DefaultConfig())
	oob := &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindOutOfBounds}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"read past end", func() error { _, err := s.Read(s.Size()-2, 4); return err }},
		{"read u32 past end", func() error { _, err := s.ReadU32(s.Size() - 2); return err }},
		{"write u64 past end", func() error { return s.WriteU64(s.Size()-4, 1) }},
		{"write above 4GiB", func() error { return s.Write(1<<33, []byte{1}) }},
		{"length overflow", func() error { _, err := s.Read(8, ^uint64(0)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, oob) {
				t.Errorf("expected out of bounds error, got %v", err)
			}
		})
	}
}
