// Package variant builds named shader variants into SPIR-V and translated
// source artifacts on disk.
//
// A variant names one or two GLSL sources, the macros applied to them, the
// cross-compile options and the target languages to emit. The accepted
// stage shapes are:
//
//	Vertex             vertex-only graphics pipeline
//	Vertex + Fragment  graphics pipeline, in either order
//	Compute            compute pipeline
//
// Builder.Compile writes {name}_{Stage}.spv for each stage and
// {name}_{Stage}.{ext} for each target, where ext is hlsl, glsl, essl or
// metal. Failures of sibling stages or targets never stop each other; they
// are collected into one errors.AggregateError. Files already written are
// left in place.
//
// Builder.CompileAll runs many variants with bounded parallelism and
// returns the deduplicated, sorted artifact paths, which WriteManifest
// stores as vspv_generated_files.txt.
//
// Variant sets are read from JSON, YAML or TOML:
//
//	[[variant]]
//	name = "Planet"
//	targets = ["HLSL", "MSL"]
//
//	  [[variant.shaders]]
//	  stage = "Vertex"
//	  fileName = "planet.vert"
//
//	  [[variant.shaders]]
//	  stage = "Fragment"
//	  fileName = "planet.frag"
package variant
