package nativetest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/abi"
	"github.com/wippyai/vspirv/internal/memory"
)

// SpirvMagic is the header prefix of every module the fake produces.
var SpirvMagic = []byte{0x03, 0x02, 0x23, 0x07}

// Target names in request order, used by the default translator.
var targetNames = []string{"HLSL", "GLSL", "ESSL", "MSL"}

// GlslHandler produces the result of a GLSL compile request.
type GlslHandler func(req abi.GlslRequest) abi.Result

// CrossHandler produces the result of a cross-compile request.
type CrossHandler func(req abi.CrossCompileRequest) abi.Result

// Compiler is a fake native compiler. It is safe for concurrent use,
// although callers are expected to treat it like any other Gateway.
type Compiler struct {
	mem   *memory.Linear
	alloc *memory.BumpAllocator

	// Glsl and Cross replace the default behaviour when set.
	Glsl  GlslHandler
	Cross CrossHandler

	// CallErr, when set, is returned by the next compile call instead of a
	// result, as a trapped guest would.
	CallErr error
	// NullResult makes compile calls return a zero result address.
	NullResult bool

	results     map[uint32][]abi.Allocation
	glslReqs    []abi.GlslRequest
	crossReqs   []abi.CrossCompileRequest
	freed       int
	doubleFrees int
	mu          sync.Mutex
}

// New creates a fake compiler with default handlers.
func New() *Compiler {
	mem := memory.NewLinear(1, 0)
	return &Compiler{
		mem:     mem,
		alloc:   memory.NewBumpAllocator(mem),
		results: make(map[uint32][]abi.Allocation),
	}
}

func (c *Compiler) Memory() vspirv.Memory       { return c.mem }
func (c *Compiler) Allocator() vspirv.Allocator { return c.alloc }

// CompileGlslToSpirv decodes the request at info and returns a result.
func (c *Compiler) CompileGlslToSpirv(ctx context.Context, info uint32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	req, err := abi.DecodeGlslRequest(c.mem, info)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.glslReqs = append(c.glslReqs, req)
	handler := c.Glsl
	c.mu.Unlock()

	if handler == nil {
		handler = DefaultGlsl
	}
	return c.respond(handler(req))
}

// CrossCompile decodes the request at info and returns a result.
func (c *Compiler) CrossCompile(ctx context.Context, info uint32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	req, err := abi.DecodeCrossCompileRequest(c.mem, info)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.crossReqs = append(c.crossReqs, req)
	handler := c.Cross
	c.mu.Unlock()

	if handler == nil {
		handler = DefaultCross
	}
	return c.respond(handler(req))
}

func (c *Compiler) respond(res abi.Result) (uint32, error) {
	c.mu.Lock()
	callErr := c.CallErr
	c.CallErr = nil
	null := c.NullResult
	c.mu.Unlock()

	if callErr != nil {
		return 0, callErr
	}
	if null {
		return 0, nil
	}

	enc := abi.NewEncoder(c.mem, c.alloc)
	addr, err := enc.EncodeResult(res)
	if err != nil {
		enc.Free()
		return 0, err
	}

	c.mu.Lock()
	c.results[addr] = enc.Detach()
	c.mu.Unlock()
	return addr, nil
}

// FreeResult releases every block of a result. Releasing an unknown or
// already released result is recorded as a double free.
func (c *Compiler) FreeResult(_ context.Context, result uint32) error {
	c.mu.Lock()
	blocks, ok := c.results[result]
	if !ok {
		c.doubleFrees++
		c.mu.Unlock()
		return nil
	}
	delete(c.results, result)
	c.freed++
	c.mu.Unlock()

	for _, b := range blocks {
		c.alloc.Free(b.Ptr, b.Size, b.Align)
	}
	return nil
}

// GlslRequests returns every decoded GLSL request in call order.
func (c *Compiler) GlslRequests() []abi.GlslRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]abi.GlslRequest(nil), c.glslReqs...)
}

// CrossRequests returns every decoded cross-compile request in call order.
func (c *Compiler) CrossRequests() []abi.CrossCompileRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]abi.CrossCompileRequest(nil), c.crossReqs...)
}

// Freed returns the number of results released.
func (c *Compiler) Freed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freed
}

// Outstanding returns the number of results not yet released.
func (c *Compiler) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Check fails t when a result was released twice, a result is still
// outstanding, or a caller allocation leaked or was freed twice.
func (c *Compiler) Check(t testing.TB) {
	t.Helper()
	c.mu.Lock()
	outstanding, doubleFrees := len(c.results), c.doubleFrees
	c.mu.Unlock()

	if doubleFrees != 0 {
		t.Errorf("native results released twice: %d", doubleFrees)
	}
	if outstanding != 0 {
		t.Errorf("native results never released: %d", outstanding)
	}
	if n := c.alloc.DoubleFrees(); n != 0 {
		t.Errorf("caller blocks freed twice: %d", n)
	}
	if n := c.alloc.Live(); n != 0 {
		t.Errorf("blocks still allocated: %d", n)
	}
}

// Succeed builds a successful result carrying buffers.
func Succeed(buffers ...[]byte) abi.Result {
	return abi.Result{Succeeded: true, Buffers: buffers}
}

// Fail builds a failed result carrying msg as buffer 0.
func Fail(msg string) abi.Result {
	return abi.Result{Buffers: [][]byte{[]byte(msg)}}
}

// Spirv returns the fake module for a source: the SPIR-V magic followed by
// the source padded with zeros to a whole number of words.
func Spirv(source string) []byte {
	out := append([]byte(nil), SpirvMagic...)
	out = append(out, source...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// Translate returns the fake target text for one stage module.
func Translate(target uint32, stage string, module []byte) []byte {
	name := fmt.Sprintf("target%d", target)
	if int(target) < len(targetNames) {
		name = targetNames[target]
	}
	body := bytes.TrimRight(bytes.TrimPrefix(module, SpirvMagic), "\x00")
	return []byte(fmt.Sprintf("// %s %s\n%s\n", name, stage, body))
}

// DefaultGlsl compiles any source to Spirv(source). A source containing
// "#error" fails with a diagnostic naming the file.
func DefaultGlsl(req abi.GlslRequest) abi.Result {
	if i := strings.Index(req.Source, "#error"); i >= 0 {
		line := 1 + strings.Count(req.Source[:i], "\n")
		return Fail(fmt.Sprintf("%s:%d: error: '#error' : %s",
			req.FileName, line, strings.TrimSpace(firstLine(req.Source[i+len("#error"):]))))
	}
	return Succeed(Spirv(req.Source))
}

// DefaultCross translates every supplied stage. Compute requests yield one
// buffer; graphics requests yield the vertex text and, when a fragment
// module was supplied, the fragment text.
func DefaultCross(req abi.CrossCompileRequest) abi.Result {
	if req.Compute != nil {
		return Succeed(Translate(req.Target, "compute", req.Compute))
	}
	if req.Vertex == nil {
		return Fail("no shader stages supplied")
	}
	buffers := [][]byte{Translate(req.Target, "vertex", req.Vertex)}
	if req.Fragment != nil {
		buffers = append(buffers, Translate(req.Target, "fragment", req.Fragment))
	}
	return Succeed(buffers...)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
