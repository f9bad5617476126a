package spirv

import (
	"context"
	stderrors "errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/abi"
	"github.com/wippyai/vspirv/errors"
)

// GatewayFactory creates a replacement gateway after one was discarded.
type GatewayFactory func(ctx context.Context) (vspirv.Gateway, error)

// Compiler runs compilations against a pool of gateways. It is safe for
// concurrent use; each call holds one gateway for its whole duration, so
// the pool size bounds parallelism.
//
// A gateway whose call failed for any reason other than a compiler
// diagnostic or a malformed result is discarded and its slot refilled
// through the factory. Without a factory only trapped calls and null
// results discard the gateway.
type Compiler struct {
	pool    chan vspirv.Gateway
	factory GatewayFactory
	logger  *zap.Logger
}

// New creates a compiler over gateways. At least one gateway is required
// unless a factory is set with WithFactory.
func New(gateways ...vspirv.Gateway) *Compiler {
	c := &Compiler{
		pool:   make(chan vspirv.Gateway, max(len(gateways), 1)),
		logger: zap.NewNop(),
	}
	for _, g := range gateways {
		c.pool <- g
	}
	if len(gateways) == 0 {
		c.pool <- nil
	}
	return c
}

// NewWithFactory creates a compiler with size lazily created gateways.
func NewWithFactory(size int, factory GatewayFactory) *Compiler {
	c := &Compiler{
		pool:    make(chan vspirv.Gateway, max(size, 1)),
		factory: factory,
		logger:  zap.NewNop(),
	}
	for i := 0; i < cap(c.pool); i++ {
		c.pool <- nil
	}
	return c
}

// WithLogger sets the logger and returns c.
func (c *Compiler) WithLogger(l *zap.Logger) *Compiler {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
	return c
}

// WithFactory sets the factory used to refill discarded slots and returns c.
func (c *Compiler) WithFactory(f GatewayFactory) *Compiler {
	c.factory = f
	return c
}

// Size returns the number of gateway slots.
func (c *Compiler) Size() int { return cap(c.pool) }

func (c *Compiler) acquire(ctx context.Context) (vspirv.Gateway, error) {
	select {
	case g := <-c.pool:
		if g != nil {
			return g, nil
		}
		if c.factory == nil {
			c.pool <- nil
			return nil, errors.New(errors.PhaseRuntime, errors.KindInternal).
				Detail("no compiler instance available").
				Build()
		}
		g, err := c.factory(ctx)
		if err != nil {
			c.pool <- nil
			return nil, err
		}
		return g, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Compiler) release(ctx context.Context, g vspirv.Gateway, err error) {
	if err == nil || trusted(err) {
		c.pool <- g
		return
	}
	if c.factory == nil && !fatal(err) {
		c.logger.Debug("keeping compiler instance after failed call", zap.Error(err))
		c.pool <- g
		return
	}
	c.logger.Warn("discarding compiler instance", zap.Error(err))
	if closer, ok := g.(interface{ Close(context.Context) error }); ok {
		if cerr := closer.Close(context.WithoutCancel(ctx)); cerr != nil {
			c.logger.Debug("close discarded instance", zap.Error(cerr))
		}
	}
	c.pool <- nil
}

// trusted reports whether err leaves the guest in a known state: compiler
// diagnostics, inputs rejected before any guest call, and malformed results
// that were read and released.
func trusted(err error) bool {
	for _, e := range errors.Flatten(err) {
		var se *errors.Error
		if !stderrors.As(e, &se) {
			return false
		}
		if se.Phase == errors.PhaseDecode {
			continue
		}
		switch se.Kind {
		case errors.KindCompilation, errors.KindInvalidInput, errors.KindInvalidEnum:
		default:
			return false
		}
	}
	return true
}

// fatal reports whether err shows the guest itself is unusable: a trapped
// call or a call that returned no result.
func fatal(err error) bool {
	for _, e := range errors.Flatten(err) {
		var se *errors.Error
		if !stderrors.As(e, &se) {
			continue
		}
		if se.Kind == errors.KindTrap || (se.Kind == errors.KindNilPointer && se.Phase != errors.PhaseDecode) {
			return true
		}
	}
	return false
}

// Close closes every idle gateway that supports closing.
func (c *Compiler) Close(ctx context.Context) error {
	var err error
	for i := 0; i < cap(c.pool); i++ {
		select {
		case g := <-c.pool:
			if closer, ok := g.(interface{ Close(context.Context) error }); ok && g != nil {
				err = multierr.Append(err, closer.Close(ctx))
			}
		default:
		}
	}
	return err
}

// CompileGlslToSpirv compiles GLSL source for one stage to SPIR-V. An empty
// fileName is reported as DefaultFileName in diagnostics.
func (c *Compiler) CompileGlslToSpirv(ctx context.Context, source []byte, fileName string, stage Stage, opts GlslCompileOptions) (res *SpirvCompilationResult, err error) {
	if !stage.Valid() {
		return nil, errors.InvalidEnum(errors.PhaseValidate, []string{"stage"}, uint32(stage), "Stage")
	}
	g, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { c.release(ctx, g, err) }()

	spv, err := c.compileGlsl(ctx, g, source, fileName, stage, opts)
	if err != nil {
		return nil, err
	}
	return &SpirvCompilationResult{SpirvBytes: spv}, nil
}

// CompileVertexFragment translates a vertex and an optional fragment shader
// to target. Inputs without the SPIR-V header are compiled from GLSL
// first; both stages are attempted before any failure is returned.
func (c *Compiler) CompileVertexFragment(ctx context.Context, vs, fs []byte, target Target, opts CrossCompileOptions) (res *VertexFragmentCompilationResult, err error) {
	if !target.Valid() {
		return nil, errors.InvalidEnum(errors.PhaseValidate, []string{"target"}, uint32(target), "Target")
	}
	if len(vs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "vertex shader is empty")
	}
	if fs != nil && len(fs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "fragment shader is empty")
	}

	g, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { c.release(ctx, g, err) }()

	vsSpirv, vsErr := c.normalize(ctx, g, vs, StageVertex, target)
	var fsSpirv []byte
	var fsErr error
	if fs != nil {
		fsSpirv, fsErr = c.normalize(ctx, g, fs, StageFragment, target)
	}
	if err := stageErrors(vsErr, fsErr); err != nil {
		return nil, err
	}

	req := crossRequest(target, opts)
	req.Vertex = vsSpirv
	req.Fragment = fsSpirv

	res = &VertexFragmentCompilationResult{}
	err = c.crossCompile(ctx, g, req, func(d *abi.Decoder, r abi.CompilationResult) error {
		vsText, err := d.Buffer(r, 0)
		if err != nil {
			return err
		}
		res.VertexShader = string(vsText)
		if fs != nil {
			fsText, err := d.Buffer(r, 1)
			if err != nil {
				return err
			}
			res.FragmentShader = string(fsText)
		}
		refl, err := d.Reflection(r)
		if err != nil {
			return err
		}
		res.Reflection = reflectionFromABI(refl, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("cross-compiled vertex/fragment",
		zap.Stringer("target", target),
		zap.Int("vertex_elements", len(res.Reflection.VertexElements)),
		zap.Int("resource_layouts", len(res.Reflection.ResourceLayouts)))
	return res, nil
}

// CompileCompute translates a compute shader to target. An input without
// the SPIR-V header is compiled from GLSL first.
func (c *Compiler) CompileCompute(ctx context.Context, cs []byte, target Target, opts CrossCompileOptions) (res *ComputeCompilationResult, err error) {
	if !target.Valid() {
		return nil, errors.InvalidEnum(errors.PhaseValidate, []string{"target"}, uint32(target), "Target")
	}
	if len(cs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "compute shader is empty")
	}

	g, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { c.release(ctx, g, err) }()

	csSpirv, err := c.normalize(ctx, g, cs, StageCompute, target)
	if err != nil {
		return nil, err
	}

	req := crossRequest(target, opts)
	req.Compute = csSpirv

	res = &ComputeCompilationResult{}
	err = c.crossCompile(ctx, g, req, func(d *abi.Decoder, r abi.CompilationResult) error {
		csText, err := d.Buffer(r, 0)
		if err != nil {
			return err
		}
		res.ComputeShader = string(csText)
		refl, err := d.Reflection(r)
		if err != nil {
			return err
		}
		res.Reflection = reflectionFromABI(refl, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("cross-compiled compute",
		zap.Stringer("target", target),
		zap.Int("resource_layouts", len(res.Reflection.ResourceLayouts)))
	return res, nil
}

// normalize returns b unchanged when it is already SPIR-V and compiles it
// from GLSL otherwise.
func (c *Compiler) normalize(ctx context.Context, g vspirv.Gateway, b []byte, stage Stage, target Target) ([]byte, error) {
	if HasSpirvHeader(b) {
		return b, nil
	}
	return c.compileGlsl(ctx, g, b, "", stage, GlslCompileOptions{
		Debug: target == TargetGLSL || target == TargetESSL,
	})
}

func stageErrors(vsErr, fsErr error) error {
	switch {
	case vsErr != nil && fsErr != nil:
		return errors.Aggregate("failed to compile shader stages", vsErr, fsErr)
	case vsErr != nil:
		return vsErr
	default:
		return fsErr
	}
}

func crossRequest(target Target, opts CrossCompileOptions) abi.CrossCompileRequest {
	return abi.CrossCompileRequest{
		Target:                 uint32(target),
		FixClipSpaceZ:          opts.FixClipSpaceZ,
		InvertY:                opts.InvertVertexOutputY,
		NormalizeResourceNames: opts.NormalizeResourceNames,
		Specializations:        flattenSpecializations(opts.Specializations),
	}
}

func (c *Compiler) compileGlsl(ctx context.Context, g vspirv.Gateway, source []byte, fileName string, stage Stage, opts GlslCompileOptions) ([]byte, error) {
	if len(source) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, stage.String()+" source is empty")
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	macros := make([]abi.Macro, len(opts.Macros))
	for i, m := range opts.Macros {
		macros[i] = abi.Macro{Name: m.Name, Value: m.Value}
	}

	var spv []byte
	err := c.invoke(ctx, g, errors.PhaseCompile,
		func(e *abi.Encoder) (uint32, error) {
			return e.EncodeGlslRequest(abi.GlslRequest{
				Source:   string(source),
				FileName: fileName,
				Kind:     uint32(stage),
				Debug:    opts.Debug,
				Macros:   macros,
			})
		},
		g.CompileGlslToSpirv,
		func(d *abi.Decoder, r abi.CompilationResult) error {
			b, err := d.Buffer(r, 0)
			spv = b
			return err
		})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("compiled GLSL to SPIR-V",
		zap.String("file", fileName),
		zap.Stringer("stage", stage),
		zap.Int("bytes", len(spv)))
	return spv, nil
}

func (c *Compiler) crossCompile(ctx context.Context, g vspirv.Gateway, req abi.CrossCompileRequest, decode func(*abi.Decoder, abi.CompilationResult) error) error {
	return c.invoke(ctx, g, errors.PhaseCrossCompile,
		func(e *abi.Encoder) (uint32, error) { return e.EncodeCrossCompileRequest(req) },
		g.CrossCompile,
		decode)
}

// invoke runs one gateway call. Request blocks are freed after the call
// returns; the result is released exactly once after decode, on every
// path, and a release failure is folded into the returned error.
func (c *Compiler) invoke(
	ctx context.Context,
	g vspirv.Gateway,
	phase errors.Phase,
	encode func(*abi.Encoder) (uint32, error),
	call func(context.Context, uint32) (uint32, error),
	decode func(*abi.Decoder, abi.CompilationResult) error,
) (err error) {
	enc := abi.NewEncoder(g.Memory(), g.Allocator())
	defer enc.Free()

	info, err := encode(enc)
	if err != nil {
		return err
	}

	addr, err := call(ctx, info)
	if err != nil {
		return err
	}
	if addr == 0 {
		return errors.NilPointer(phase, []string{"result"}, "CompilationResult")
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(func() error {
		return g.FreeResult(ctx, addr)
	}))

	d := abi.NewDecoder(g.Memory())
	res, err := d.Result(addr)
	if err != nil {
		return err
	}
	if !res.Succeeded.Bool() {
		msg, err := d.Message(res)
		if err != nil {
			return err
		}
		return errors.Compilation(phase, msg)
	}
	return decode(d, res)
}
