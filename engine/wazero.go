package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/errors"
)

// WazeroEngine hosts compiler modules in a wazero runtime.
type WazeroEngine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CacheDir, when set, keeps compiled guest code on disk so later runs
	// skip compiling the compiler module.
	CacheDir string
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CacheDir != "" {
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
			if err != nil {
				return nil, errors.Load("open compilation cache", err)
			}
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime}, nil
}

// Close releases the runtime and every instance created from it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InitWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls from multiple modules sharing the same engine.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasiModule) == nil {
		builder := e.runtime.NewHostModuleBuilder(wasiModule)
		wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
		if _, err := builder.Instantiate(ctx); err != nil {
			if e.runtime.Module(wasiModule) == nil {
				return fmt.Errorf("instantiate WASI: %w", err)
			}
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

// LoadCompilerFile reads and compiles the compiler module at path.
func (e *WazeroEngine) LoadCompilerFile(ctx context.Context, path string) (*CompilerModule, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Value(path).
				Detail("compiler module %q not found", path).
				Cause(err).
				Build()
		}
		return nil, errors.Load(fmt.Sprintf("read compiler module %q", path), err)
	}
	Logger().Debug("loading compiler module",
		zap.String("path", path),
		zap.Int("bytes", len(wasmBytes)))
	return e.LoadCompiler(ctx, wasmBytes)
}

// LoadCompiler compiles a compiler module and checks that it exports the
// memory, allocator and entry points the gateway calls.
func (e *WazeroEngine) LoadCompiler(ctx context.Context, wasmBytes []byte) (*CompilerModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}

	if err := checkExports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	if err := e.InitWASI(ctx); err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	return &CompilerModule{
		engine:   e,
		compiled: compiled,
	}, nil
}

func checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return errors.MissingExport(ExportMemory)
	}
	funcs := compiled.ExportedFunctions()
	for _, name := range requiredFunctions {
		def, ok := funcs[name]
		if !ok {
			return errors.MissingExport(name)
		}
		if len(def.ParamTypes()) != 1 || def.ParamTypes()[0] != api.ValueTypeI32 {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Value(name).
				Detail("export %q must take a single i32", name).
				Build()
		}
	}
	return nil
}

// CompilerModule is a compiled compiler module. It is safe for concurrent
// use and may be instantiated any number of times.
type CompilerModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// Instantiate creates an isolated instance with its own linear memory.
// The reactor initializer runs before Instantiate returns.
func (m *CompilerModule) Instantiate(ctx context.Context) (*Instance, error) {
	modConfig := wazero.NewModuleConfig().
		WithName(""). // anonymous for parallel instantiation
		WithStartFunctions(reactorInit)

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		module:       mod,
		compileGlsl:  mod.ExportedFunction(ExportCompileGlslToSpirv),
		crossCompile: mod.ExportedFunction(ExportCrossCompile),
		freeResult:   mod.ExportedFunction(ExportFreeResult),
		stackBuf:     make([]uint64, 1),
	}
	inst.memory = &Memory{mem: mod.Memory()}
	inst.alloc = &guestAllocator{
		mallocFn: mod.ExportedFunction(ExportMalloc),
		freeFn:   mod.ExportedFunction(ExportFree),
		stackBuf: make([]uint64, 1),
	}
	return inst, nil
}

// Close releases the compiled code. Instances already created keep
// running until closed.
func (m *CompilerModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instance is one instantiated compiler. It implements vspirv.Gateway and
// is not safe for concurrent use.
type Instance struct {
	module       api.Module
	memory       *Memory
	alloc        *guestAllocator
	compileGlsl  api.Function
	crossCompile api.Function
	freeResult   api.Function
	stackBuf     []uint64
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() vspirv.Memory { return i.memory }

// Allocator returns the allocator backed by the guest's malloc and free.
func (i *Instance) Allocator() vspirv.Allocator { return i.alloc }

// CompileGlslToSpirv calls the GLSL entry point with the request at info.
func (i *Instance) CompileGlslToSpirv(ctx context.Context, info uint32) (uint32, error) {
	return i.callResult(ctx, i.compileGlsl, ExportCompileGlslToSpirv, info)
}

// CrossCompile calls the cross-compile entry point with the request at info.
func (i *Instance) CrossCompile(ctx context.Context, info uint32) (uint32, error) {
	return i.callResult(ctx, i.crossCompile, ExportCrossCompile, info)
}

// FreeResult returns a result record and everything it owns to the guest.
func (i *Instance) FreeResult(ctx context.Context, result uint32) error {
	if i.module == nil {
		return errors.Internal(errors.PhaseRuntime, "instance is closed")
	}
	if err := ctx.Err(); err != nil {
		return errors.Trap(ExportFreeResult, err)
	}
	i.alloc.setContext(ctx)
	i.stackBuf[0] = uint64(result)
	if err := i.freeResult.CallWithStack(ctx, i.stackBuf[:1]); err != nil {
		return errors.Trap(ExportFreeResult, err)
	}
	return nil
}

func (i *Instance) callResult(ctx context.Context, fn api.Function, name string, info uint32) (uint32, error) {
	if i.module == nil {
		return 0, errors.Internal(errors.PhaseRuntime, "instance is closed")
	}
	if err := ctx.Err(); err != nil {
		return 0, errors.Trap(name, err)
	}
	i.alloc.setContext(ctx)
	i.stackBuf[0] = uint64(info)
	if err := fn.CallWithStack(ctx, i.stackBuf[:1]); err != nil {
		return 0, errors.Trap(name, err)
	}
	result := uint32(i.stackBuf[0])
	if result == 0 {
		return 0, errors.NilPointer(errors.PhaseRuntime, []string{name}, "CompilationResult")
	}
	return result, nil
}

// Close releases the instance and its memory.
func (i *Instance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module = nil
	i.memory = nil
	i.alloc = nil
	return err
}

var _ vspirv.Gateway = (*Instance)(nil)
