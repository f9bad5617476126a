package variant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wippyai/vspirv/errors"
	"github.com/wippyai/vspirv/spirv"
)

// ShaderCompiler is the subset of *spirv.Compiler the builder drives.
type ShaderCompiler interface {
	CompileGlslToSpirv(ctx context.Context, source []byte, fileName string, stage spirv.Stage, opts spirv.GlslCompileOptions) (*spirv.SpirvCompilationResult, error)
	CompileVertexFragment(ctx context.Context, vs, fs []byte, target spirv.Target, opts spirv.CrossCompileOptions) (*spirv.VertexFragmentCompilationResult, error)
	CompileCompute(ctx context.Context, cs []byte, target spirv.Target, opts spirv.CrossCompileOptions) (*spirv.ComputeCompilationResult, error)
}

// Builder compiles variants into OutputPath.
type Builder struct {
	// SearchPaths are tried in order for every source file name.
	SearchPaths []string
	OutputPath  string
	Compiler    ShaderCompiler

	// WriteReflection adds {name}_ReflectionInfo.json, taken from the first
	// target that compiles.
	WriteReflection bool

	Logger *zap.Logger
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// shape is a validated stage set.
type shape struct {
	vertex   *StageDescription
	fragment *StageDescription
	compute  *StageDescription
}

// classify validates the stage set of d.
func classify(d Description) (shape, error) {
	switch len(d.Shaders) {
	case 1:
		s := d.Shaders[0]
		switch s.Stage {
		case spirv.StageVertex:
			return shape{vertex: &s}, nil
		case spirv.StageCompute:
			return shape{compute: &s}, nil
		case spirv.StageFragment:
			return shape{}, errors.MissingStage(d.Name, "vertex")
		}
	case 2:
		var sh shape
		for i := range d.Shaders {
			s := &d.Shaders[i]
			switch {
			case s.Stage == spirv.StageVertex && sh.vertex == nil:
				sh.vertex = s
			case s.Stage == spirv.StageFragment && sh.fragment == nil:
				sh.fragment = s
			}
		}
		switch {
		case sh.vertex == nil && sh.fragment == nil:
		case sh.vertex == nil:
			return shape{}, errors.MissingStage(d.Name, "vertex")
		case sh.fragment == nil:
			return shape{}, errors.MissingStage(d.Name, "fragment")
		default:
			return sh, nil
		}
	}
	return shape{}, errors.New(errors.PhaseValidate, errors.KindUnsupported).
		Value(d.Name).
		Detail("variant %q has an unsupported combination of shader stages %v", d.Name, d.Stages()).
		Build()
}

// Compile builds one variant and returns the paths it wrote. On failure the
// paths written before the failure are still returned.
func (b *Builder) Compile(ctx context.Context, d Description) ([]string, error) {
	sh, err := classify(d)
	if err != nil {
		return nil, err
	}
	if b.Compiler == nil {
		return nil, errors.Internal(errors.PhaseValidate, "builder has no compiler")
	}
	if err := os.MkdirAll(b.OutputPath, 0o755); err != nil {
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("create %s", b.OutputPath))
	}

	b.logger().Debug("compiling variant",
		zap.String("variant", d.Name),
		zap.Stringers("targets", d.Targets))

	if sh.compute != nil {
		return b.compileCompute(ctx, d, sh.compute)
	}
	return b.compileVertexFragment(ctx, d, sh.vertex, sh.fragment)
}

func (b *Builder) compileVertexFragment(ctx context.Context, d Description, vertex, fragment *StageDescription) ([]string, error) {
	var (
		written   []string
		stageErrs []error
		fsSpirv   []byte
	)
	vsSpirv, path, err := b.compileStage(ctx, d, vertex)
	if err != nil {
		stageErrs = append(stageErrs, err)
	} else {
		written = append(written, path)
	}
	if fragment != nil {
		fsSpirv, path, err = b.compileStage(ctx, d, fragment)
		if err != nil {
			stageErrs = append(stageErrs, err)
		} else {
			written = append(written, path)
		}
	}
	if len(stageErrs) > 0 {
		return written, errors.Aggregate(stageFailure, stageErrs...)
	}

	var targetErrs []error
	reflected := !b.WriteReflection
	for _, target := range d.Targets {
		ext, err := Extension(target)
		if err != nil {
			targetErrs = append(targetErrs, err)
			continue
		}
		res, err := b.Compiler.CompileVertexFragment(ctx, vsSpirv, fsSpirv, target, d.CrossCompileOptions)
		if err != nil {
			targetErrs = append(targetErrs, fmt.Errorf("%s: %w", target, err))
			continue
		}

		if res.VertexShader != "" {
			path := b.artifact(d.Name, "Vertex", ext)
			if err := writeFile(path, []byte(res.VertexShader)); err != nil {
				targetErrs = append(targetErrs, err)
			} else {
				written = append(written, path)
			}
		}
		if res.FragmentShader != "" {
			path := b.artifact(d.Name, "Fragment", ext)
			if err := writeFile(path, []byte(res.FragmentShader)); err != nil {
				targetErrs = append(targetErrs, err)
			} else {
				written = append(written, path)
			}
		}
		if !reflected {
			reflected = true
			written, targetErrs = b.saveReflection(d.Name, res.Reflection, written, targetErrs)
		}
	}
	return written, targetError(d.Name, targetErrs)
}

func (b *Builder) compileCompute(ctx context.Context, d Description, compute *StageDescription) ([]string, error) {
	csSpirv, path, err := b.compileStage(ctx, d, compute)
	if err != nil {
		return nil, errors.Aggregate(stageFailure, err)
	}
	written := []string{path}

	var targetErrs []error
	reflected := !b.WriteReflection
	for _, target := range d.Targets {
		ext, err := Extension(target)
		if err != nil {
			targetErrs = append(targetErrs, err)
			continue
		}
		res, err := b.Compiler.CompileCompute(ctx, csSpirv, target, d.CrossCompileOptions)
		if err != nil {
			targetErrs = append(targetErrs, fmt.Errorf("%s: %w", target, err))
			continue
		}

		path := b.artifact(d.Name, "Compute", ext)
		if err := writeFile(path, []byte(res.ComputeShader)); err != nil {
			targetErrs = append(targetErrs, err)
			continue
		}
		written = append(written, path)
		if !reflected {
			reflected = true
			written, targetErrs = b.saveReflection(d.Name, res.Reflection, written, targetErrs)
		}
	}
	return written, targetError(d.Name, targetErrs)
}

// compileStage resolves, compiles and writes the SPIR-V of one stage.
func (b *Builder) compileStage(ctx context.Context, d Description, s *StageDescription) ([]byte, string, error) {
	source, err := b.resolve(s.FileName)
	if err != nil {
		return nil, "", err
	}
	res, err := b.Compiler.CompileGlslToSpirv(ctx, source, s.FileName, s.Stage, spirv.GlslCompileOptions{
		Macros: d.Macros,
	})
	if err != nil {
		return nil, "", err
	}
	path := b.artifact(d.Name, s.Stage.String(), "spv")
	if err := writeFile(path, res.SpirvBytes); err != nil {
		return nil, "", err
	}
	return res.SpirvBytes, path, nil
}

// resolve reads fileName from the first search path that has it.
func (b *Builder) resolve(fileName string) ([]byte, error) {
	for _, dir := range b.SearchPaths {
		data, err := os.ReadFile(filepath.Join(dir, fileName))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("read %s", fileName))
		}
	}
	return nil, errors.NotFound(errors.PhaseIO, "shader file", fileName)
}

func (b *Builder) saveReflection(name string, r spirv.Reflection, written []string, errs []error) ([]string, []error) {
	path := filepath.Join(b.OutputPath, name+"_ReflectionInfo.json")
	if err := spirv.SaveReflection(path, r); err != nil {
		return written, append(errs, err)
	}
	return append(written, path), errs
}

func (b *Builder) artifact(name, stage, ext string) string {
	return filepath.Join(b.OutputPath, fmt.Sprintf("%s_%s.%s", name, stage, ext))
}

// Extension returns the file extension of translated source for target.
func Extension(target spirv.Target) (string, error) {
	switch target {
	case spirv.TargetHLSL:
		return "hlsl", nil
	case spirv.TargetGLSL:
		return "glsl", nil
	case spirv.TargetESSL:
		return "essl", nil
	case spirv.TargetMSL:
		return "metal", nil
	default:
		return "", errors.New(errors.PhaseValidate, errors.KindInternal).
			Value(uint32(target)).
			Detail("invalid cross-compile target %s", target).
			Build()
	}
}

const stageFailure = "errors were encountered when compiling from GLSL to SPIR-V"

func targetError(name string, errs []error) error {
	return errors.Aggregate(fmt.Sprintf("errors were encountered when compiling shader variant %q", name), errs...)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("write %s", path))
	}
	return nil
}
