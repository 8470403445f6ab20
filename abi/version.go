package abi

import "fmt"

// Version is a packed API version: variant(3) | major(7) | minor(10) | patch(12).
type Version uint32

func MakeVersion(variant, major, minor, patch uint32) Version {
	return Version(variant<<29 | (major&0x7f)<<22 | (minor&0x3ff)<<12 | patch&0xfff)
}

var (
	Version1_0 = MakeVersion(0, 1, 0, 0)
	Version1_1 = MakeVersion(0, 1, 1, 0)
	Version1_2 = MakeVersion(0, 1, 2, 0)
	Version1_3 = MakeVersion(0, 1, 3, 0)
)

func (v Version) Variant() uint32 { return uint32(v) >> 29 }
func (v Version) Major() uint32   { return (uint32(v) >> 22) & 0x7f }
func (v Version) Minor() uint32   { return (uint32(v) >> 12) & 0x3ff }
func (v Version) Patch() uint32   { return uint32(v) & 0xfff }

func (v Version) String() string {
	if v.Variant() != 0 {
		return fmt.Sprintf("%d.%d.%d (variant %d)", v.Major(), v.Minor(), v.Patch(), v.Variant())
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
