package abi

import (
	"encoding/binary"
	"strconv"

	"github.com/wippyai/vspirv/errors"
)

// DescriptorSize is the encoded size of a Descriptor.
const DescriptorSize = 8

// Descriptor is the binary data descriptor: an element count and the guest
// address of the first element.
type Descriptor struct {
	Count uint32
	Data  uint32
}

// SizeBytes returns the encoded size.
func (d Descriptor) SizeBytes() uint32 { return DescriptorSize }

// Put encodes d into b[:8].
func (d Descriptor) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], d.Count)
	binary.LittleEndian.PutUint32(b[4:], d.Data)
}

// Get decodes d from b[:8].
func (d *Descriptor) Get(b []byte) {
	d.Count = binary.LittleEndian.Uint32(b[0:])
	d.Data = binary.LittleEndian.Uint32(b[4:])
}

// Empty reports whether the descriptor holds no elements.
func (d Descriptor) Empty() bool { return d.Count == 0 }

// Validate checks that the descriptor can be indexed as an array of count
// elements of elemSize bytes holding at most max elements.
func (d Descriptor) Validate(elemSize, max uint32, path []string) error {
	if d.Count == 0 {
		return nil
	}
	if d.Count > max {
		return errors.Overflow(errors.PhaseDecode, path, d.Count, max)
	}
	if d.Data == 0 {
		return errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(path...).
			Detail("descriptor has %d elements and a null address", d.Count).
			Build()
	}
	total, ok := SafeMulU32(d.Count, elemSize)
	if !ok {
		return errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("array size overflow: %d * %d", d.Count, elemSize).
			Build()
	}
	if _, ok := SafeAddU32(d.Data, total); !ok {
		return errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("array address range overflow").
			Build()
	}
	return nil
}

// Element returns the address of element i. An index at or beyond Count is
// an out-of-bounds error.
func (d Descriptor) Element(i, elemSize uint32, path []string) (uint32, error) {
	if i >= d.Count {
		return 0, errors.OutOfBounds(errors.PhaseDecode, path, int(i), int(d.Count))
	}
	off, ok := SafeMulU32(i, elemSize)
	if !ok {
		return 0, errors.Overflow(errors.PhaseDecode, path, i, d.Count)
	}
	addr, ok := SafeAddU32(d.Data, off)
	if !ok {
		return 0, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("element %d address overflow", i).
			Build()
	}
	return addr, nil
}

func indexPath(path []string, i int) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	if len(out) == 0 {
		return []string{"[" + strconv.Itoa(i) + "]"}
	}
	out[len(out)-1] += "[" + strconv.Itoa(i) + "]"
	return out
}

func fieldPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
