package layout

import "sync"

type Calculator struct {
	cache  map[*Struct]Info
	target Target
	mu     sync.RWMutex
}

func NewCalculator(target Target) *Calculator {
	return &Calculator{
		cache:  make(map[*Struct]Info),
		target: target,
	}
}

func (c *Calculator) Target() Target {
	return c.target
}

func (c *Calculator) Calculate(t Type) Info {
	switch t.Kind {
	case KindU8:
		return Info{Size: 1, Align: 1}
	case KindU16:
		return Info{Size: 2, Align: 2}
	case KindU32, KindI32, KindF32:
		return Info{Size: 4, Align: 4}
	case KindU64, KindI64, KindF64:
		return Info{Size: 8, Align: 8}
	case KindPtr, KindSize:
		return Info{Size: c.target.PointerSize, Align: c.target.PointerSize}
	case KindArray:
		return c.calculateArray(t)
	case KindStruct:
		return c.Struct(t.Struct)
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Struct returns the layout of s, computing and caching it on first use.
func (c *Calculator) Struct(s *Struct) Info {
	c.mu.RLock()
	cached, ok := c.cache[s]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	info := c.calculateStruct(s)

	c.mu.Lock()
	c.cache[s] = info
	c.mu.Unlock()
	return info
}

func (c *Calculator) calculateStruct(s *Struct) Info {
	if s == nil || len(s.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fields := make(map[string]FieldInfo, len(s.Fields))
	maxAlign := uint64(1)
	offset := uint64(0)

	for _, field := range s.Fields {
		fieldLayout := c.Calculate(field.Type)

		offset = AlignTo(offset, fieldLayout.Align)
		fields[field.Name] = FieldInfo{
			Type:   field.Type,
			Offset: offset,
			Size:   fieldLayout.Size,
		}

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:   AlignTo(offset, maxAlign),
		Align:  maxAlign,
		Fields: fields,
	}
}

func (c *Calculator) calculateArray(t Type) Info {
	if t.Elem == nil || t.Len == 0 {
		return Info{Size: 0, Align: 1}
	}
	elem := c.Calculate(*t.Elem)
	size, ok := SafeMul(AlignTo(elem.Size, elem.Align), t.Len)
	if !ok {
		size = MaxAlloc
	}
	return Info{Size: size, Align: elem.Align}
}

// Stride is the distance between consecutive elements of type t in an array.
func (c *Calculator) Stride(t Type) uint64 {
	info := c.Calculate(t)
	return AlignTo(info.Size, info.Align)
}
