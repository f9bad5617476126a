// Package engine hosts the native SPIR-V compiler as a WebAssembly reactor
// module and exposes each instance as a vspirv.Gateway.
//
// # Architecture
//
// The engine package provides three main types:
//
//	WazeroEngine   - Creates and manages the wazero runtime
//	CompilerModule - A compiled compiler module, can create instances
//	Instance       - One running compiler with its own linear memory
//
// # Module Contract
//
// The compiler module must export:
//
//	memory                            linear memory shared with the host
//	malloc(size i32) -> i32           request allocations
//	free(ptr i32)                     request releases
//	CompileGlslToSpirv(info i32) -> i32
//	CrossCompile(info i32) -> i32
//	FreeResult(result i32)
//
// Both compile entry points take the address of a request record and
// return the address of a CompilationResult owned by the guest until it is
// passed to FreeResult. A zero result address is reported as a nil pointer
// error. WASI preview1 imports are provided once per runtime and the
// reactor's _initialize export runs on every instantiation.
//
// # Locating the Module
//
// Locate resolves libveldrid-spirv.wasm from $VSPIRV_COMPILER, then
// runtimes/<os>-<arch>/native/ under each search directory, then the
// search directory itself.
//
// # Thread Safety
//
// WazeroEngine and CompilerModule are safe for concurrent use. An Instance
// is not; create one per concurrent caller. Instantiation is anonymous, so
// any number of instances may run side by side.
//
// # Cancellation
//
// The runtime is created with close-on-context-done. A call whose context
// ends closes the instance; callers must discard it afterwards.
package engine
