// Package spirv compiles GLSL to SPIR-V and cross-compiles SPIR-V to HLSL,
// GLSL, ESSL and MSL through a native compiler gateway, returning
// translated source and reflection data.
//
// # Compilation
//
// A Compiler holds a pool of vspirv.Gateway values and runs each call on
// one of them:
//
//	c := spirv.New(inst)
//	res, err := c.CompileVertexFragment(ctx, vs, fs, spirv.TargetHLSL, spirv.CrossCompileOptions{})
//
// Inputs that start with the SPIR-V magic bytes are used as is; anything
// else is compiled from GLSL first. In a vertex/fragment request both
// stages are compiled before failures are reported, and two failures come
// back as one *errors.AggregateError.
//
// # Ownership
//
// Request data lives in blocks allocated through the gateway and freed
// once the call returns. Every result is copied into Go values and then
// released exactly once, on success and on every error path. Nothing
// returned by this package refers to guest memory.
//
// # Errors
//
// A failure reported by the native compiler is an *errors.Error with Kind
// compilation whose Detail is the compiler's diagnostic text, unchanged.
//
// # Reflection
//
// Reflection values marshal to a JSON document with stable field names.
// Enumerations are written by name, stage and option sets as
// comma-separated names ("Vertex, Fragment", "None"), and values without a
// name as integers.
package spirv
