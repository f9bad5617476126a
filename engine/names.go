package engine

// Exports the compiler module must provide.
const (
	ExportMemory             = "memory"
	ExportMalloc             = "malloc"
	ExportFree               = "free"
	ExportCompileGlslToSpirv = "CompileGlslToSpirv"
	ExportCrossCompile       = "CrossCompile"
	ExportFreeResult         = "FreeResult"
)

// reactorInit is the WASI reactor initializer, run once per instance when
// the module exports it.
const reactorInit = "_initialize"

// requiredFunctions lists the function exports checked on instantiation.
var requiredFunctions = []string{
	ExportMalloc,
	ExportFree,
	ExportCompileGlslToSpirv,
	ExportCrossCompile,
	ExportFreeResult,
}

// wasiModule is the import namespace of WASI preview1.
const wasiModule = "wasi_snapshot_preview1"
