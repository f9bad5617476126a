package abi

import (
	"encoding/binary"

	"github.com/wippyai/vspirv"
)

// Encoded record sizes.
const (
	MacroRecordSize           = 16
	GlslCompileInfoSize       = 32
	SpecializationRecordSize  = 12
	CrossCompileInfoSize      = 48
	CompilationResultSize     = 28
	ReflectionInfoSize        = 16
	VertexElementRecordSize   = 14
	ResourceLayoutRecordSize  = 8
	ResourceElementRecordSize = 14
)

// Bool32 is a boolean stored as a 32-bit integer.
type Bool32 uint32

// ToBool32 converts b to its 0/1 encoding.
func ToBool32(b bool) Bool32 {
	if b {
		return 1
	}
	return 0
}

// Bool reports whether the value is non-zero.
func (b Bool32) Bool() bool { return b != 0 }

// Record is a fixed-layout value that can be encoded into a byte slice.
type Record interface {
	SizeBytes() uint32
	Put(b []byte)
}

// Unmarshaler is a Record that can also decode itself.
type Unmarshaler interface {
	Record
	Get(b []byte)
}

// WriteRecord encodes r at addr.
func WriteRecord(mem vspirv.Memory, addr uint32, r Record) error {
	b := make([]byte, r.SizeBytes())
	r.Put(b)
	return mem.Write(addr, b)
}

// ReadRecord decodes a T at addr.
func ReadRecord[T any, PT interface {
	*T
	Unmarshaler
}](mem vspirv.Memory, addr uint32) (T, error) {
	var v T
	p := PT(&v)
	b, err := mem.Read(addr, p.SizeBytes())
	if err != nil {
		return v, err
	}
	p.Get(b)
	return v, nil
}

// MacroRecord is one preprocessor definition.
type MacroRecord struct {
	Name  Descriptor // BDD<byte>
	Value Descriptor // BDD<byte>
}

func (r MacroRecord) SizeBytes() uint32 { return MacroRecordSize }

func (r MacroRecord) Put(b []byte) {
	r.Name.Put(b[0:])
	r.Value.Put(b[8:])
}

func (r *MacroRecord) Get(b []byte) {
	r.Name.Get(b[0:])
	r.Value.Get(b[8:])
}

// GlslCompileInfo is the request for the GLSL to SPIR-V entry point.
type GlslCompileInfo struct {
	SourceText Descriptor // BDD<byte>
	FileName   Descriptor // BDD<byte>
	Kind       uint32
	Debug      Bool32
	Macros     Descriptor // BDD<MacroRecord>
}

func (r GlslCompileInfo) SizeBytes() uint32 { return GlslCompileInfoSize }

func (r GlslCompileInfo) Put(b []byte) {
	r.SourceText.Put(b[0:])
	r.FileName.Put(b[8:])
	binary.LittleEndian.PutUint32(b[16:], r.Kind)
	binary.LittleEndian.PutUint32(b[20:], uint32(r.Debug))
	r.Macros.Put(b[24:])
}

func (r *GlslCompileInfo) Get(b []byte) {
	r.SourceText.Get(b[0:])
	r.FileName.Get(b[8:])
	r.Kind = binary.LittleEndian.Uint32(b[16:])
	r.Debug = Bool32(binary.LittleEndian.Uint32(b[20:]))
	r.Macros.Get(b[24:])
}

// SpecializationRecord is a specialization constant flattened to its id
// and raw 64-bit payload. The compiler does not interpret the payload.
type SpecializationRecord struct {
	ID   uint32
	Bits uint64
}

func (r SpecializationRecord) SizeBytes() uint32 { return SpecializationRecordSize }

func (r SpecializationRecord) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], r.ID)
	binary.LittleEndian.PutUint64(b[4:], r.Bits)
}

func (r *SpecializationRecord) Get(b []byte) {
	r.ID = binary.LittleEndian.Uint32(b[0:])
	r.Bits = binary.LittleEndian.Uint64(b[4:])
}

// CrossCompileInfo is the request for the cross-compile entry point.
type CrossCompileInfo struct {
	Target                 uint32
	FixClipSpaceZ          Bool32
	InvertY                Bool32
	NormalizeResourceNames Bool32
	Specializations        Descriptor // BDD<SpecializationRecord>
	VertexShader           Descriptor // BDD<u32>
	FragmentShader         Descriptor // BDD<u32>
	ComputeShader          Descriptor // BDD<u32>
}

func (r CrossCompileInfo) SizeBytes() uint32 { return CrossCompileInfoSize }

func (r CrossCompileInfo) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], r.Target)
	binary.LittleEndian.PutUint32(b[4:], uint32(r.FixClipSpaceZ))
	binary.LittleEndian.PutUint32(b[8:], uint32(r.InvertY))
	binary.LittleEndian.PutUint32(b[12:], uint32(r.NormalizeResourceNames))
	r.Specializations.Put(b[16:])
	r.VertexShader.Put(b[24:])
	r.FragmentShader.Put(b[32:])
	r.ComputeShader.Put(b[40:])
}

func (r *CrossCompileInfo) Get(b []byte) {
	r.Target = binary.LittleEndian.Uint32(b[0:])
	r.FixClipSpaceZ = Bool32(binary.LittleEndian.Uint32(b[4:]))
	r.InvertY = Bool32(binary.LittleEndian.Uint32(b[8:]))
	r.NormalizeResourceNames = Bool32(binary.LittleEndian.Uint32(b[12:]))
	r.Specializations.Get(b[16:])
	r.VertexShader.Get(b[24:])
	r.FragmentShader.Get(b[32:])
	r.ComputeShader.Get(b[40:])
}

// ReflectionInfo holds the reflected vertex inputs and resource layouts.
type ReflectionInfo struct {
	VertexElements  Descriptor // BDD<VertexElementRecord>
	ResourceLayouts Descriptor // BDD<ResourceLayoutRecord>
}

func (r ReflectionInfo) SizeBytes() uint32 { return ReflectionInfoSize }

func (r ReflectionInfo) Put(b []byte) {
	r.VertexElements.Put(b[0:])
	r.ResourceLayouts.Put(b[8:])
}

func (r *ReflectionInfo) Get(b []byte) {
	r.VertexElements.Get(b[0:])
	r.ResourceLayouts.Get(b[8:])
}

// CompilationResult is returned by both compile entry points. When
// Succeeded is false, buffer 0 holds the error message.
type CompilationResult struct {
	Succeeded   Bool32
	DataBuffers Descriptor // BDD<BDD<byte>>
	Reflection  ReflectionInfo
}

func (r CompilationResult) SizeBytes() uint32 { return CompilationResultSize }

func (r CompilationResult) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], uint32(r.Succeeded))
	r.DataBuffers.Put(b[4:])
	r.Reflection.Put(b[12:])
}

func (r *CompilationResult) Get(b []byte) {
	r.Succeeded = Bool32(binary.LittleEndian.Uint32(b[0:]))
	r.DataBuffers.Get(b[4:])
	r.Reflection.Get(b[12:])
}

// VertexElementRecord describes one vertex input.
type VertexElementRecord struct {
	Name     Descriptor // BDD<byte>
	Semantic uint8
	Format   uint8
	Offset   uint32
}

func (r VertexElementRecord) SizeBytes() uint32 { return VertexElementRecordSize }

func (r VertexElementRecord) Put(b []byte) {
	r.Name.Put(b[0:])
	b[8] = r.Semantic
	b[9] = r.Format
	binary.LittleEndian.PutUint32(b[10:], r.Offset)
}

func (r *VertexElementRecord) Get(b []byte) {
	r.Name.Get(b[0:])
	r.Semantic = b[8]
	r.Format = b[9]
	r.Offset = binary.LittleEndian.Uint32(b[10:])
}

// ResourceLayoutRecord describes one resource set.
type ResourceLayoutRecord struct {
	Elements Descriptor // BDD<ResourceElementRecord>
}

func (r ResourceLayoutRecord) SizeBytes() uint32 { return ResourceLayoutRecordSize }

func (r ResourceLayoutRecord) Put(b []byte) { r.Elements.Put(b[0:]) }

func (r *ResourceLayoutRecord) Get(b []byte) { r.Elements.Get(b[0:]) }

// ResourceElementRecord describes one binding slot of a resource set.
type ResourceElementRecord struct {
	Name    Descriptor // BDD<byte>
	Kind    uint8
	Stages  uint8
	Options uint32
}

func (r ResourceElementRecord) SizeBytes() uint32 { return ResourceElementRecordSize }

func (r ResourceElementRecord) Put(b []byte) {
	r.Name.Put(b[0:])
	b[8] = r.Kind
	b[9] = r.Stages
	binary.LittleEndian.PutUint32(b[10:], r.Options)
}

func (r *ResourceElementRecord) Get(b []byte) {
	r.Name.Get(b[0:])
	r.Kind = b[8]
	r.Stages = b[9]
	r.Options = binary.LittleEndian.Uint32(b[10:])
}
