package vspirv

import "context"

// Memory is the guest linear memory shared with the native compiler.
// All multi-byte values are little endian.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of guest memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory owned by the caller inside guest memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Gateway is the call boundary into the native compiler.
//
// Both compile calls take the address of a populated request record and
// return the address of a result record owned by the native side. Every
// returned result must be passed to FreeResult exactly once after all data
// has been copied out of it. A Gateway is not safe for concurrent use.
type Gateway interface {
	Memory() Memory
	Allocator() Allocator
	CompileGlslToSpirv(ctx context.Context, info uint32) (uint32, error)
	CrossCompile(ctx context.Context, info uint32) (uint32, error)
	FreeResult(ctx context.Context, result uint32) error
}
