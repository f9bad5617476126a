package spirv

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/abi"
	"github.com/wippyai/vspirv/errors"
	"github.com/wippyai/vspirv/internal/nativetest"
)

const (
	vertexSource   = "#version 450\nlayout(location = 0) in vec3 Position;\nvoid main() {}\n"
	fragmentSource = "#version 450\nlayout(location = 0) out vec4 Color;\nvoid main() {}\n"
)

func asError(t *testing.T, err error) *errors.Error {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v (%T) is not *errors.Error", err, err)
	}
	return e
}

func TestHasSpirvHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  bool
	}{
		{"magic prefix", []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}, true},
		{"magic only", []byte{0x03, 0x02, 0x23, 0x07}, true},
		{"canonical big endian", []byte{0x07, 0x23, 0x02, 0x03}, false},
		{"short", []byte{0x03, 0x02, 0x23}, false},
		{"empty", nil, false},
		{"glsl", []byte("#version 450"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasSpirvHeader(tt.input); got != tt.want {
				t.Errorf("HasSpirvHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileVertexFragment_SpirvInputSkipsGlsl(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	vs, fs := nativetest.Spirv("vs body"), nativetest.Spirv("fs body")
	res, err := c.CompileVertexFragment(ctx, vs, fs, TargetHLSL, CrossCompileOptions{})
	if err != nil {
		t.Fatalf("CompileVertexFragment failed: %v", err)
	}

	if n := len(fake.GlslRequests()); n != 0 {
		t.Errorf("GLSL stage ran %d times for SPIR-V input", n)
	}
	if want := string(nativetest.Translate(0, "vertex", vs)); res.VertexShader != want {
		t.Errorf("VertexShader = %q, want %q", res.VertexShader, want)
	}
	if want := string(nativetest.Translate(0, "fragment", fs)); res.FragmentShader != want {
		t.Errorf("FragmentShader = %q, want %q", res.FragmentShader, want)
	}
	fake.Check(t)
}

func TestCompileVertexFragment_GlslInput(t *testing.T) {
	tests := []struct {
		target    Target
		wantDebug bool
	}{
		{TargetHLSL, false},
		{TargetGLSL, true},
		{TargetESSL, true},
		{TargetMSL, false},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			ctx := context.Background()
			fake := nativetest.New()
			c := New(fake)

			res, err := c.CompileVertexFragment(ctx, []byte(vertexSource), []byte(fragmentSource), tt.target, CrossCompileOptions{})
			if err != nil {
				t.Fatalf("CompileVertexFragment failed: %v", err)
			}
			if res.VertexShader == "" || res.FragmentShader == "" {
				t.Errorf("empty translated source: %+v", res)
			}

			reqs := fake.GlslRequests()
			if len(reqs) != 2 {
				t.Fatalf("GLSL requests = %d, want 2", len(reqs))
			}
			for i, wantKind := range []Stage{StageVertex, StageFragment} {
				r := reqs[i]
				if Stage(r.Kind) != wantKind {
					t.Errorf("request %d kind = %v, want %v", i, Stage(r.Kind), wantKind)
				}
				if r.Debug != tt.wantDebug {
					t.Errorf("request %d debug = %v, want %v", i, r.Debug, tt.wantDebug)
				}
				if r.FileName != DefaultFileName {
					t.Errorf("request %d file = %q, want %q", i, r.FileName, DefaultFileName)
				}
				if len(r.Macros) != 0 {
					t.Errorf("request %d macros = %v, want none", i, r.Macros)
				}
			}

			cross := fake.CrossRequests()
			if len(cross) != 1 || Target(cross[0].Target) != tt.target {
				t.Fatalf("cross requests = %+v", cross)
			}
			if !HasSpirvHeader(cross[0].Vertex) || !HasSpirvHeader(cross[0].Fragment) {
				t.Error("cross-compile did not receive SPIR-V modules")
			}
			fake.Check(t)
		})
	}
}

func TestCompileVertexFragment_BothStagesFail(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	vs := []byte("#version 450\n#error vertex broken\n")
	fs := []byte("#version 450\n#error fragment broken\n")
	_, err := c.CompileVertexFragment(ctx, vs, fs, TargetHLSL, CrossCompileOptions{})

	var agg *errors.AggregateError
	if !stderrors.As(err, &agg) {
		t.Fatalf("error = %v, want *errors.AggregateError", err)
	}
	errs := agg.Errors()
	if len(errs) != 2 {
		t.Fatalf("aggregate has %d errors, want 2", len(errs))
	}
	wantMsgs := []string{
		DefaultFileName + ":2: error: '#error' : vertex broken",
		DefaultFileName + ":2: error: '#error' : fragment broken",
	}
	for i, e := range errs {
		se := asError(t, e)
		if se.Kind != errors.KindCompilation {
			t.Errorf("error %d kind = %s, want compilation", i, se.Kind)
		}
		if se.Detail != wantMsgs[i] {
			t.Errorf("error %d detail = %q, want %q", i, se.Detail, wantMsgs[i])
		}
	}
	if n := len(fake.CrossRequests()); n != 0 {
		t.Errorf("cross-compile ran %d times after stage failures", n)
	}
	fake.Check(t)
}

func TestCompileVertexFragment_OneStageFails(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	fs := []byte("#version 450\n#error missing output\n")
	_, err := c.CompileVertexFragment(ctx, []byte(vertexSource), fs, TargetGLSL, CrossCompileOptions{})

	var agg *errors.AggregateError
	if stderrors.As(err, &agg) {
		t.Fatalf("single stage failure should not be aggregated: %v", err)
	}
	se := asError(t, err)
	if se.Kind != errors.KindCompilation || se.Phase != errors.PhaseCompile {
		t.Errorf("error = %v, want compile/compilation", err)
	}
	if n := len(fake.GlslRequests()); n != 2 {
		t.Errorf("GLSL requests = %d, want both stages attempted", n)
	}
	fake.Check(t)
}

func TestCompileVertexFragment_CrossCompileFailure(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = func(abi.CrossCompileRequest) abi.Result {
		return nativetest.Fail("MSL: unsupported feature: geometry shaders")
	}
	c := New(fake)

	_, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nativetest.Spirv("f"), TargetMSL, CrossCompileOptions{})
	se := asError(t, err)
	if se.Phase != errors.PhaseCrossCompile || se.Kind != errors.KindCompilation {
		t.Errorf("error = %v, want cross_compile/compilation", err)
	}
	if se.Detail != "MSL: unsupported feature: geometry shaders" {
		t.Errorf("Detail = %q", se.Detail)
	}
	if fake.Freed() != 1 {
		t.Errorf("Freed() = %d, want 1", fake.Freed())
	}
	fake.Check(t)

	if _, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nil, TargetMSL, CrossCompileOptions{}); err == nil {
		t.Error("expected second call to reach the same gateway and fail again")
	}
}

func TestCompileVertexFragment_VertexOnly(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	res, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nil, TargetHLSL, CrossCompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.FragmentShader != "" {
		t.Errorf("FragmentShader = %q, want empty", res.FragmentShader)
	}
	if cross := fake.CrossRequests(); len(cross) != 1 || cross[0].Fragment != nil {
		t.Errorf("fragment slot should be absent: %+v", cross)
	}
	fake.Check(t)
}

func TestCompileVertexFragment_MissingFragmentBuffer(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = func(req abi.CrossCompileRequest) abi.Result {
		return nativetest.Succeed([]byte("vertex only"))
	}
	c := New(fake)

	_, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nativetest.Spirv("f"), TargetHLSL, CrossCompileOptions{})
	if se := asError(t, err); se.Kind != errors.KindOutOfBounds {
		t.Errorf("error = %v, want out_of_bounds", err)
	}
	fake.Check(t)
}

func TestCompileVertexFragment_Planet(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = nativetest.PlanetCross
	c := New(fake)

	res, err := c.CompileVertexFragment(ctx, nativetest.Spirv("planet.vert"), nativetest.Spirv("planet.frag"),
		TargetHLSL, CrossCompileOptions{NormalizeResourceNames: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reflection.Equal(planetExpected()) {
		t.Errorf("Reflection = %+v, want %+v", res.Reflection, planetExpected())
	}
	if !fake.CrossRequests()[0].NormalizeResourceNames {
		t.Error("NormalizeResourceNames was not passed through")
	}
	fake.Check(t)
}

func TestCompileVertexFragment_Idempotent(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = nativetest.PlanetCross
	c := New(fake)

	first, err := c.CompileVertexFragment(ctx, []byte(vertexSource), []byte(fragmentSource), TargetESSL, CrossCompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.CompileVertexFragment(ctx, []byte(vertexSource), []byte(fragmentSource), TargetESSL, CrossCompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Error("repeated compilation produced different results")
	}
	fake.Check(t)
}

func TestCompileVertexFragment_Specializations(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	opts := CrossCompileOptions{
		FixClipSpaceZ:       true,
		InvertVertexOutputY: true,
		Specializations: []SpecializationConstant{
			BoolConstant(0, true),
			FloatConstant(1, 1.5),
			Int16Constant(2, -1),
			DoubleConstant(3, -2.25),
			Int32Constant(4, -2),
		},
	}
	if _, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nil, TargetGLSL, opts); err != nil {
		t.Fatal(err)
	}

	req := fake.CrossRequests()[0]
	if !req.FixClipSpaceZ || !req.InvertY || req.NormalizeResourceNames {
		t.Errorf("flags = %+v", req)
	}
	want := []abi.SpecializationRecord{
		{ID: 0, Bits: 1},
		{ID: 1, Bits: uint64(math.Float32bits(1.5))},
		{ID: 2, Bits: 0xFFFF},
		{ID: 3, Bits: math.Float64bits(-2.25)},
		{ID: 4, Bits: 0xFFFFFFFE},
	}
	if len(req.Specializations) != len(want) {
		t.Fatalf("specializations = %+v", req.Specializations)
	}
	for i := range want {
		if req.Specializations[i] != want[i] {
			t.Errorf("specialization %d = %+v, want %+v", i, req.Specializations[i], want[i])
		}
	}
	fake.Check(t)
}

func TestCompileVertexFragment_PartialWord(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	vs := append(nativetest.Spirv("v"), 0x01)
	_, err := c.CompileVertexFragment(ctx, vs, nil, TargetHLSL, CrossCompileOptions{})
	if se := asError(t, err); se.Kind != errors.KindInvalidInput {
		t.Errorf("error = %v, want invalid_input", err)
	}
	if n := len(fake.CrossRequests()); n != 0 {
		t.Errorf("cross-compile ran with a partial word")
	}
	fake.Check(t)
}

func TestCompileVertexFragment_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	c := New(nativetest.New())

	if _, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nil, Target(9), CrossCompileOptions{}); asError(t, err).Kind != errors.KindInvalidEnum {
		t.Errorf("invalid target error = %v", err)
	}
	if _, err := c.CompileVertexFragment(ctx, nil, nil, TargetHLSL, CrossCompileOptions{}); asError(t, err).Kind != errors.KindInvalidInput {
		t.Errorf("empty vertex error = %v", err)
	}
	if _, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), []byte{}, TargetHLSL, CrossCompileOptions{}); asError(t, err).Kind != errors.KindInvalidInput {
		t.Errorf("empty fragment error = %v", err)
	}
}

func TestCompileCompute(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = nativetest.PlanetCross
	c := New(fake)

	cs := []byte("#version 450\nlayout(local_size_x = 64) in;\nvoid main() {}\n")
	res, err := c.CompileCompute(ctx, cs, TargetMSL, CrossCompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.ComputeShader, "// MSL compute") {
		t.Errorf("ComputeShader = %q", res.ComputeShader)
	}
	if len(res.Reflection.VertexElements) != 0 {
		t.Errorf("compute reflection has %d vertex elements", len(res.Reflection.VertexElements))
	}
	if len(res.Reflection.ResourceLayouts) != 2 {
		t.Errorf("ResourceLayouts = %d, want 2", len(res.Reflection.ResourceLayouts))
	}
	if reqs := fake.GlslRequests(); len(reqs) != 1 || Stage(reqs[0].Kind) != StageCompute {
		t.Errorf("GLSL requests = %+v", reqs)
	}
	if cross := fake.CrossRequests(); cross[0].Vertex != nil || cross[0].Compute == nil {
		t.Errorf("compute request slots = %+v", cross[0])
	}
	fake.Check(t)
}

func TestCompileGlslToSpirv(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	c := New(fake)

	opts := GlslCompileOptions{
		Debug:  true,
		Macros: []MacroDefinition{{Name: "USE_FOG", Value: "1"}, {Name: "HAS_SHADOWS"}},
	}
	res, err := c.CompileGlslToSpirv(ctx, []byte(vertexSource), "planet.vert", StageVertex, opts)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.SpirvBytes) != string(nativetest.Spirv(vertexSource)) {
		t.Errorf("SpirvBytes = %v", res.SpirvBytes)
	}
	req := fake.GlslRequests()[0]
	if req.FileName != "planet.vert" || !req.Debug || len(req.Macros) != 2 || req.Macros[1].Name != "HAS_SHADOWS" {
		t.Errorf("request = %+v", req)
	}

	_, err = c.CompileGlslToSpirv(ctx, []byte("#error nope"), "bad.frag", StageFragment, GlslCompileOptions{})
	se := asError(t, err)
	if se.Detail != "bad.frag:1: error: '#error' : nope" {
		t.Errorf("Detail = %q", se.Detail)
	}

	if _, err := c.CompileGlslToSpirv(ctx, []byte(vertexSource), "", Stage(42), GlslCompileOptions{}); asError(t, err).Kind != errors.KindInvalidEnum {
		t.Errorf("invalid stage error = %v", err)
	}
	fake.Check(t)
}

func TestCompiler_NullResultDiscardsGateway(t *testing.T) {
	ctx := context.Background()
	bad := nativetest.New()
	bad.NullResult = true
	c := New(bad)

	_, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{})
	if err == nil {
		t.Fatal("expected error for null result")
	}
	if bad.Freed() != 0 {
		t.Error("a null result must not be released")
	}

	_, err = c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{})
	if se := asError(t, err); se.Kind != errors.KindInternal {
		t.Errorf("error after discard = %v, want internal", err)
	}

	good := nativetest.New()
	c.WithFactory(func(context.Context) (vspirv.Gateway, error) { return good, nil })
	if _, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{}); err != nil {
		t.Fatalf("factory gateway failed: %v", err)
	}
	good.Check(t)
}

func TestCompiler_MalformedResultKeepsGateway(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.Cross = func(req abi.CrossCompileRequest) abi.Result {
		if req.Target == uint32(TargetHLSL) {
			return nativetest.Succeed(nativetest.Translate(req.Target, "vertex", req.Vertex))
		}
		return nativetest.DefaultCross(req)
	}
	c := New(fake)

	vs, fs := nativetest.Spirv("v"), nativetest.Spirv("f")
	if _, err := c.CompileVertexFragment(ctx, vs, fs, TargetHLSL, CrossCompileOptions{}); asError(t, err).Kind != errors.KindOutOfBounds {
		t.Fatalf("HLSL error = %v, want out_of_bounds", err)
	}
	for _, target := range []Target{TargetGLSL, TargetMSL} {
		res, err := c.CompileVertexFragment(ctx, vs, fs, target, CrossCompileOptions{})
		if err != nil {
			t.Fatalf("%s after malformed result: %v", target, err)
		}
		if !strings.Contains(res.FragmentShader, target.String()+" fragment") {
			t.Errorf("%s fragment = %q", target, res.FragmentShader)
		}
	}
	if _, err := c.CompileGlslToSpirv(ctx, []byte(vertexSource), "", StageVertex, GlslCompileOptions{}); err != nil {
		t.Errorf("GLSL compile after malformed result: %v", err)
	}
	fake.Check(t)
}

func TestCompiler_TrapDiscardsGatewayWithoutFactory(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.CallErr = errors.Trap("CrossCompile", stderrors.New("unreachable executed"))
	c := New(fake)

	if _, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{}); asError(t, err).Kind != errors.KindTrap {
		t.Fatalf("error = %v, want trap", err)
	}
	_, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{})
	if se := asError(t, err); se.Kind != errors.KindInternal {
		t.Errorf("error after trap = %v, want internal", err)
	}
	fake.Check(t)
}

func TestCompiler_UnknownCallErrorKeepsGatewayWithoutFactory(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.CallErr = stderrors.New("host function failed")
	c := New(fake)

	if _, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{}); err == nil {
		t.Fatal("expected call error")
	}
	if _, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{}); err != nil {
		t.Errorf("second call: %v", err)
	}
	fake.Check(t)
}

func TestTrustedAndFatal(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		trusted bool
		fatal   bool
	}{
		{"compilation", errors.Compilation(errors.PhaseCompile, "bad"), true, false},
		{"decode out of bounds", errors.OutOfBounds(errors.PhaseDecode, nil, 1, 1), true, false},
		{"decode overflow", errors.Overflow(errors.PhaseDecode, nil, 70000, 65536), true, false},
		{"decode null descriptor", errors.NilPointer(errors.PhaseDecode, nil, "BDD<byte>"), true, false},
		{"null result", errors.NilPointer(errors.PhaseCrossCompile, nil, "CompilationResult"), false, true},
		{"trap", errors.Trap("CrossCompile", stderrors.New("boom")), false, true},
		{"allocation", errors.AllocationFailed(errors.PhaseEncode, 16, 8, nil), false, false},
		{"plain", stderrors.New("boom"), false, false},
		{"aggregate with trap", errors.Aggregate("stages",
			errors.Compilation(errors.PhaseCompile, "bad"),
			errors.Trap("CompileGlslToSpirv", stderrors.New("boom"))), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trusted(tt.err); got != tt.trusted {
				t.Errorf("trusted = %v, want %v", got, tt.trusted)
			}
			if got := fatal(tt.err); got != tt.fatal {
				t.Errorf("fatal = %v, want %v", got, tt.fatal)
			}
		})
	}
}

type nullingGateway struct {
	*nativetest.Compiler
}

func (g nullingGateway) CompileGlslToSpirv(ctx context.Context, info uint32) (uint32, error) {
	return 0, errors.NilPointer(errors.PhaseRuntime, []string{"CompileGlslToSpirv"}, "CompilationResult")
}

func TestCompiler_CallErrorFreesRequest(t *testing.T) {
	ctx := context.Background()
	fake := nativetest.New()
	fake.CallErr = stderrors.New("unreachable executed")
	c := New(fake)

	_, err := c.CompileVertexFragment(ctx, nativetest.Spirv("v"), nil, TargetHLSL, CrossCompileOptions{})
	if err == nil || !strings.Contains(err.Error(), "unreachable executed") {
		t.Fatalf("error = %v", err)
	}
	fake.Check(t)

	g := nullingGateway{nativetest.New()}
	c = New(g)
	if _, err := c.CompileGlslToSpirv(ctx, []byte(vertexSource), "", StageVertex, GlslCompileOptions{}); asError(t, err).Kind != errors.KindNilPointer {
		t.Errorf("error = %v, want nil_pointer", err)
	}
	g.Check(t)
}

func TestCompiler_Concurrent(t *testing.T) {
	ctx := context.Background()
	fakes := []*nativetest.Compiler{nativetest.New(), nativetest.New()}
	c := New(fakes[0], fakes[1])

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CompileVertexFragment(ctx, []byte(vertexSource), []byte(fragmentSource), TargetHLSL, CrossCompileOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent compile failed: %v", err)
		}
	}
	total := 0
	for _, f := range fakes {
		total += len(f.CrossRequests())
		f.Check(t)
	}
	if total != 16 {
		t.Errorf("cross requests = %d, want 16", total)
	}
}

func TestCompiler_CanceledWhileWaiting(t *testing.T) {
	fake := nativetest.New()
	c := New(fake)

	g, err := c.acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CompileCompute(ctx, nativetest.Spirv("c"), TargetHLSL, CrossCompileOptions{}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	c.release(context.Background(), g, nil)
}
