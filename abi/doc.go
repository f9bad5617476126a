// Package abi defines the byte layout of every record exchanged with the
// native compiler and moves those records in and out of guest memory.
//
// # Binary Data Descriptor
//
// Every array crossing the boundary is described by the same two-field
// record, never by an out-of-band length and pointer pair:
//
//	┌──────────────┬──────────────┐
//	│ count  (u32) │ data   (u32) │   8 bytes
//	└──────────────┴──────────────┘
//
// The element type is implied by the field that holds the descriptor.
// count == 0 allows data == 0; otherwise data addresses count contiguous
// elements.
//
// # Record Layout
//
// Records are packed to 1-byte alignment, fields in declared order, little
// endian, guest addresses 32 bits wide:
//
//	Record                  Size   Fields (offset)
//	──────────────────────────────────────────────────────────────────────
//	MacroRecord             16     name 0, value 8
//	GlslCompileInfo         32     source 0, file 8, kind 16, debug 20, macros 24
//	SpecializationRecord    12     id 0, bits 4
//	CrossCompileInfo        48     target 0, fixz 4, inverty 8, normalize 12,
//	                               specs 16, vertex 24, fragment 32, compute 40
//	CompilationResult       28     succeeded 0, buffers 4, reflection 12
//	ReflectionInfo          16     vertex elements 0, resource layouts 8
//	VertexElementRecord     14     name 0, semantic 8, format 9, offset 10
//	ResourceLayoutRecord     8     elements 0
//	ResourceElementRecord   14     name 0, kind 8, stages 9, options 10
//
// Shader bytecode descriptors count 32-bit words, not bytes.
//
// # Ownership
//
// Encoder allocations belong to the caller and are freed with Encoder.Free
// once the call returns. Result trees belong to the compiler until it is
// told to release them; Decoder copies every byte it returns, so nothing it
// produces aliases guest memory.
//
// # Error Handling
//
//	[decode] overflow at result.data_buffers: count 70000 exceeds maximum 65536
//	[decode] out_of_bounds at result.data_buffers: index 1 out of bounds (length 1)
package abi
