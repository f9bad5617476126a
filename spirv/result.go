package spirv

import "bytes"

// SpirvCompilationResult holds a compiled SPIR-V module.
type SpirvCompilationResult struct {
	SpirvBytes []byte
}

// VertexFragmentCompilationResult holds translated vertex and fragment
// source. FragmentShader is empty for vertex-only requests and for targets
// that emit both stages in one text.
type VertexFragmentCompilationResult struct {
	VertexShader   string
	FragmentShader string
	Reflection     Reflection
}

// Equal reports field-for-field equality.
func (r *VertexFragmentCompilationResult) Equal(o *VertexFragmentCompilationResult) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.VertexShader == o.VertexShader &&
		r.FragmentShader == o.FragmentShader &&
		r.Reflection.Equal(o.Reflection)
}

// ComputeCompilationResult holds translated compute source. Its reflection
// never carries vertex elements.
type ComputeCompilationResult struct {
	ComputeShader string
	Reflection    Reflection
}

// Equal reports field-for-field equality.
func (r *ComputeCompilationResult) Equal(o *ComputeCompilationResult) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.ComputeShader == o.ComputeShader && r.Reflection.Equal(o.Reflection)
}

// spirvMagic is the prefix that marks an input as already compiled.
//
// The canonical SPIR-V magic 0x07230203 is stored little endian as
// 03 02 23 07, so this matches little-endian modules only; big-endian
// modules are treated as GLSL source.
var spirvMagic = []byte{0x03, 0x02, 0x23, 0x07}

// HasSpirvHeader reports whether b starts with the SPIR-V magic bytes.
func HasSpirvHeader(b []byte) bool {
	return bytes.HasPrefix(b, spirvMagic)
}
