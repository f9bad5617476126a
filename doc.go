// Package vspirv cross-compiles shader programs from SPIR-V bytecode or GLSL
// source into HLSL, GLSL, ESSL and MSL, and builds named shader variants into
// artifact trees.
//
// The native SPIR-V compiler runs as a WebAssembly reactor module hosted by
// wazero. Requests and results cross the boundary as packed records built
// from binary data descriptors (a 32-bit element count and a 32-bit guest
// address), so both sides agree on every byte without a schema exchange.
//
// # Architecture Overview
//
//	vspirv/              Memory, Allocator and Gateway contracts
//	├── errors/          Structured and aggregate error types
//	├── abi/             Descriptors, packed records, request encoder, result decoder
//	├── engine/          wazero host for the compiler module, module locator
//	├── spirv/           Compilation orchestrator, value types, reflection JSON
//	├── variant/         Variant sets, build pipeline, manifest, watch mode
//	└── cmd/vspirv/      Command line variant compiler
//
// # Quick Start
//
//	eng, err := engine.NewWazeroEngine(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	path, err := engine.Locate()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := eng.LoadCompilerFile(ctx, path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	c := spirv.New(inst)
//	res, err := c.CompileVertexFragment(ctx, vsGLSL, fsGLSL, spirv.TargetHLSL, spirv.CrossCompileOptions{})
//
// # Ownership
//
// Request records are allocated by the caller in guest memory and freed as
// soon as the call returns. Result records belong to the compiler until
// FreeResult; the orchestrator copies every string and array out before
// releasing, on success and on error alike.
//
// # Thread Safety
//
// A Gateway (engine.Instance) is NOT thread-safe. spirv.Compiler holds a pool
// of gateways and is safe for concurrent use; its parallelism equals the
// number of gateways it was given.
package vspirv
