package engine

import (
	"encoding/binary"
)

// testModuleOptions shapes the hand-assembled compiler module used by the
// engine tests.
type testModuleOptions struct {
	omitExport string
	nullResult bool
	message    string
}

// Layout of the prebuilt failure result in the data segment.
const (
	testResultAddr  = 1024
	testBufferAddr  = 1056
	testMessageAddr = 1064
	testHeapBase    = 4096
)

const (
	opEnd       = 0x0B
	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Const  = 0x41
	opI32Add    = 0x6A
	opI32And    = 0x71
	valI32      = 0x7F
	funcType    = 0x60
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if done {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func i32Const(v int32) []byte {
	return append([]byte{opI32Const}, sleb(v)...)
}

func body(code ...[]byte) []byte {
	b := []byte{0x00} // no locals
	for _, c := range code {
		b = append(b, c...)
	}
	b = append(b, opEnd)
	return append(uleb(uint32(len(b))), b...)
}

// buildTestModule assembles a reactor with the compiler's export surface.
// malloc bumps an 8-aligned heap, free does nothing, both entry points
// return a prebuilt failure result, FreeResult counts releases and
// CrossCompile remembers its request address.
func buildTestModule(opts testModuleOptions) []byte {
	if opts.message == "" {
		opts.message = "guest says no"
	}

	const (
		tI32I32 = iota // (i32) -> i32
		tI32           // (i32) -> ()
		tRetI32        // () -> i32
		tVoid          // () -> ()
	)
	types := vec(
		[]byte{funcType, 1, valI32, 1, valI32},
		[]byte{funcType, 1, valI32, 0},
		[]byte{funcType, 0, 1, valI32},
		[]byte{funcType, 0, 0},
	)

	const (
		gHeap = iota
		gFreed
		gLastInfo
		gInitialized
	)
	global := func(init int32) []byte {
		g := []byte{valI32, 0x01}
		g = append(g, i32Const(init)...)
		return append(g, opEnd)
	}
	globals := vec(global(testHeapBase), global(0), global(0), global(0))

	result := int32(testResultAddr)
	if opts.nullResult {
		result = 0
	}

	type fn struct {
		name string
		typ  byte
		code []byte
	}
	fns := []fn{
		{ExportMalloc, tI32I32, body(
			[]byte{opGlobalGet, gHeap},
			[]byte{opGlobalGet, gHeap, opLocalGet, 0, opI32Add},
			i32Const(7), []byte{opI32Add},
			i32Const(-8), []byte{opI32And},
			[]byte{opGlobalSet, gHeap},
		)},
		{ExportFree, tI32, body()},
		{ExportCompileGlslToSpirv, tI32I32, body(i32Const(result))},
		{ExportCrossCompile, tI32I32, body(
			[]byte{opLocalGet, 0, opGlobalSet, gLastInfo},
			i32Const(result),
		)},
		{ExportFreeResult, tI32, body(
			[]byte{opGlobalGet, gFreed},
			i32Const(1), []byte{opI32Add},
			[]byte{opGlobalSet, gFreed},
		)},
		{"freed_count", tRetI32, body([]byte{opGlobalGet, gFreed})},
		{"last_info", tRetI32, body([]byte{opGlobalGet, gLastInfo})},
		{reactorInit, tVoid, body(i32Const(1), []byte{opGlobalSet, gInitialized})},
		{"initialized", tRetI32, body([]byte{opGlobalGet, gInitialized})},
	}

	var funcs, codes, exports [][]byte
	for i, f := range fns {
		funcs = append(funcs, []byte{f.typ})
		codes = append(codes, f.code)
		if f.name == opts.omitExport {
			continue
		}
		exports = append(exports, append(name(f.name), 0x00, byte(i)))
	}
	if opts.omitExport != ExportMemory {
		exports = append(exports, append(name(ExportMemory), 0x02, 0))
	}

	data := make([]byte, testMessageAddr-testResultAddr+len(opts.message))
	// CompilationResult{Succeeded: 0, DataBuffers: {1, testBufferAddr}}
	binary.LittleEndian.PutUint32(data[0:], 0)
	binary.LittleEndian.PutUint32(data[4:], 1)
	binary.LittleEndian.PutUint32(data[8:], testBufferAddr)
	binary.LittleEndian.PutUint32(data[testBufferAddr-testResultAddr:], uint32(len(opts.message)))
	binary.LittleEndian.PutUint32(data[testBufferAddr-testResultAddr+4:], testMessageAddr)
	copy(data[testMessageAddr-testResultAddr:], opts.message)

	segment := []byte{0x00}
	segment = append(segment, i32Const(testResultAddr)...)
	segment = append(segment, opEnd)
	segment = append(segment, uleb(uint32(len(data)))...)
	segment = append(segment, data...)

	mod := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(1, types)...)
	mod = append(mod, section(3, vec(funcs...))...)
	mod = append(mod, section(5, vec([]byte{0x00, 0x01}))...)
	mod = append(mod, section(6, globals)...)
	mod = append(mod, section(7, vec(exports...))...)
	mod = append(mod, section(10, vec(codes...))...)
	mod = append(mod, section(11, vec(segment))...)
	return mod
}
