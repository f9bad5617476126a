// Package nativetest provides an in-process stand-in for the native
// SPIR-V compiler.
//
// A Compiler implements vspirv.Gateway over a byte-slice linear memory. It
// decodes requests through the same abi records the engine uses, builds
// result trees in memory it owns, and counts every allocation and release
// so tests can fail on double frees and leaks:
//
//	fake := nativetest.New()
//	c := spirv.New(fake)
//	...
//	fake.Check(t)
package nativetest
