package abi

import (
	stderrors "errors"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/errors"
)

// recordAlign is the alignment requested for every block. Records are
// packed, so any alignment works for the compiler; 8 keeps u64 payloads
// naturally aligned.
const recordAlign = 8

// Encoder writes caller-owned data into guest memory. Every block it
// allocates is tracked and released by Free.
type Encoder struct {
	mem    vspirv.Memory
	alloc  vspirv.Allocator
	allocs *AllocationList
}

// NewEncoder creates an encoder over mem and alloc.
func NewEncoder(mem vspirv.Memory, alloc vspirv.Allocator) *Encoder {
	return &Encoder{
		mem:    mem,
		alloc:  alloc,
		allocs: NewAllocationList(),
	}
}

// Allocations returns the number of live blocks owned by the encoder.
func (e *Encoder) Allocations() int {
	if e.allocs == nil {
		return 0
	}
	return e.allocs.Count()
}

// Free releases every block written by the encoder. It is safe to call
// more than once.
func (e *Encoder) Free() {
	if e.allocs == nil {
		return
	}
	e.allocs.FreeAndRelease(e.alloc)
	e.allocs = nil
}

// Detach hands ownership of every block to the caller and returns them.
// After Detach, Free does nothing.
func (e *Encoder) Detach() []Allocation {
	if e.allocs == nil {
		return nil
	}
	out := make([]Allocation, len(e.allocs.allocations))
	copy(out, e.allocs.allocations)
	e.allocs.Release()
	e.allocs = nil
	return out
}

func (e *Encoder) allocate(size uint32, path []string) (uint32, error) {
	if e.allocs == nil {
		return 0, errors.Internal(errors.PhaseEncode, "encoder used after Free")
	}
	ptr, err := e.alloc.Alloc(size, recordAlign)
	if err == nil && ptr == 0 {
		err = stderrors.New("allocator returned a null address")
	}
	if err != nil {
		allocErr := errors.AllocationFailed(errors.PhaseEncode, size, recordAlign, err)
		allocErr.Path = path
		return 0, allocErr
	}
	e.allocs.Add(ptr, size, recordAlign)
	return ptr, nil
}

func (e *Encoder) write(ptr uint32, data []byte, path []string) error {
	if err := e.mem.Write(ptr, data); err != nil {
		return errors.New(errors.PhaseEncode, errors.KindOutOfBounds).
			Path(path...).
			Detail("write %d bytes at %#x", len(data), ptr).
			Cause(err).
			Build()
	}
	return nil
}

// Bytes copies data into guest memory and returns a descriptor counting
// bytes. Empty input yields an empty descriptor and allocates nothing.
func (e *Encoder) Bytes(data []byte, path ...string) (Descriptor, error) {
	if len(data) == 0 {
		return Descriptor{}, nil
	}
	if uint64(len(data)) > MaxBufferBytes {
		return Descriptor{}, errors.Overflow(errors.PhaseEncode, path, len(data), MaxBufferBytes)
	}
	ptr, err := e.allocate(uint32(len(data)), path)
	if err != nil {
		return Descriptor{}, err
	}
	if err := e.write(ptr, data, path); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Count: uint32(len(data)), Data: ptr}, nil
}

// String encodes s as UTF-8 bytes without a terminator.
func (e *Encoder) String(s string, path ...string) (Descriptor, error) {
	return e.Bytes([]byte(s), path...)
}

// Words copies a SPIR-V module into guest memory. The descriptor counts
// 32-bit words, so the length must be a multiple of 4.
func (e *Encoder) Words(data []byte, path ...string) (Descriptor, error) {
	if len(data)%4 != 0 {
		return Descriptor{}, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).
			Value(len(data)).
			Detail("SPIR-V length %d is not a multiple of 4", len(data)).
			Build()
	}
	d, err := e.Bytes(data, path...)
	if err != nil {
		return Descriptor{}, err
	}
	d.Count /= 4
	return d, nil
}

// Record writes a single record and returns its address.
func (e *Encoder) Record(r Record, path ...string) (uint32, error) {
	size := r.SizeBytes()
	ptr, err := e.allocate(size, path)
	if err != nil {
		return 0, err
	}
	b := make([]byte, size)
	r.Put(b)
	if err := e.write(ptr, b, path); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Array writes records contiguously and returns a descriptor counting
// records. The stride is the record's SizeBytes. Empty input yields an
// empty descriptor.
func Array[R Record](e *Encoder, records []R, path ...string) (Descriptor, error) {
	if len(records) == 0 {
		return Descriptor{}, nil
	}
	var zero R
	elemSize := zero.SizeBytes()
	if uint64(len(records)) > MaxElements {
		return Descriptor{}, errors.Overflow(errors.PhaseEncode, path, len(records), MaxElements)
	}
	total, ok := SafeMulU32(uint32(len(records)), elemSize)
	if !ok {
		return Descriptor{}, errors.Overflow(errors.PhaseEncode, path, len(records), MaxElements)
	}
	ptr, err := e.allocate(total, path)
	if err != nil {
		return Descriptor{}, err
	}
	b := make([]byte, total)
	for i, r := range records {
		off := uint32(i) * elemSize
		r.Put(b[off : off+elemSize])
	}
	if err := e.write(ptr, b, path); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Count: uint32(len(records)), Data: ptr}, nil
}
