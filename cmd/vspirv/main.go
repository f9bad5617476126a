package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/engine"
	"github.com/wippyai/vspirv/spirv"
	"github.com/wippyai/vspirv/variant"
)

// pathList collects a repeatable flag in order.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, string(os.PathListSeparator)) }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type options struct {
	searchPaths []string
	outputPath  string
	setPath     string
	compiler    string
	cacheDir    string
	jobs        int
	reflection  bool
	watch       bool
	verbose     bool
	interactive bool
}

func main() {
	var (
		searchPaths pathList
		outputPath  = flag.String("output-path", ".", "Directory where compiled files are placed (created if absent)")
		setPath     = flag.String("set", "", "Variant set definition (.json, .yaml, .yml or .toml)")
		compiler    = flag.String("compiler", "", "Path to "+engine.CompilerFileName+" (default: search runtimes/<os>-<arch>/native)")
		cacheDir    = flag.String("cache-dir", "", "Directory for the compiled module cache")
		jobs        = flag.Int("j", 1, "Number of variants compiled in parallel")
		reflection  = flag.Bool("reflection", false, "Also write <name>_ReflectionInfo.json for each variant")
		watch       = flag.Bool("watch", false, "Rebuild variants when their sources change")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Show build progress in a terminal UI")
	)
	flag.Var(&searchPaths, "search-path", "Directory searched for shader sources (repeatable, searched in order)")
	flag.Parse()

	if *setPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: vspirv --set <variants.json> --output-path <dir> [--search-path <dir> ...]")
		fmt.Fprintln(os.Stderr, "       vspirv --set <variants.yaml> --watch")
		fmt.Fprintln(os.Stderr, "       vspirv --set <variants.toml> -j 4 -i")
		os.Exit(2)
	}

	os.Exit(run(options{
		searchPaths: searchPaths,
		outputPath:  *outputPath,
		setPath:     *setPath,
		compiler:    *compiler,
		cacheDir:    *cacheDir,
		jobs:        max(*jobs, 1),
		reflection:  *reflection,
		watch:       *watch,
		verbose:     *verbose,
		interactive: *interactive,
	}))
}

func run(opts options) int {
	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()
	engine.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := newReporter(os.Stdout, os.Stderr)

	variants, err := variant.LoadSet(opts.setPath)
	if err != nil {
		rep.failure(err)
		return 1
	}
	if len(opts.searchPaths) == 0 {
		opts.searchPaths = []string{"."}
	}

	compiler, cleanup, err := newCompiler(ctx, opts, logger)
	if err != nil {
		rep.failure(err)
		return 1
	}
	defer cleanup()

	builder := &variant.Builder{
		SearchPaths:     opts.searchPaths,
		OutputPath:      opts.outputPath,
		Compiler:        compiler,
		WriteReflection: opts.reflection,
		Logger:          logger,
	}

	if opts.watch {
		return watch(ctx, builder, variants, opts, rep)
	}

	var paths []string
	if opts.interactive {
		paths, err = runInteractive(ctx, builder, variants, opts.jobs)
	} else {
		paths, err = builder.CompileAll(ctx, variants, opts.jobs)
	}

	manifest, merr := variant.WriteManifest(opts.outputPath, paths)
	if merr != nil {
		rep.failure(merr)
		return 1
	}
	if err != nil {
		rep.failure(err)
		return 1
	}
	rep.success(len(variants), paths, manifest)
	return 0
}

// newCompiler loads the native compiler and returns a pool with one lazily
// created instance per job.
func newCompiler(ctx context.Context, opts options, logger *zap.Logger) (*spirv.Compiler, func(), error) {
	path := opts.compiler
	if path == "" {
		var err error
		if path, err = engine.Locate(); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug("loading compiler", zap.String("path", path))

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{CacheDir: opts.cacheDir})
	if err != nil {
		return nil, nil, err
	}
	mod, err := eng.LoadCompilerFile(ctx, path)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, err
	}

	compiler := spirv.NewWithFactory(opts.jobs, func(ctx context.Context) (vspirv.Gateway, error) {
		inst, err := mod.Instantiate(ctx)
		if err != nil {
			return nil, err
		}
		return inst, nil
	}).WithLogger(logger)

	cleanup := func() {
		bg := context.Background()
		if err := compiler.Close(bg); err != nil {
			logger.Debug("close compiler instances", zap.Error(err))
		}
		_ = mod.Close(bg)
		_ = eng.Close(bg)
	}
	return compiler, cleanup, nil
}

func watch(ctx context.Context, b *variant.Builder, variants []variant.Description, opts options, rep *reporter) int {
	all := variant.NewPathSet()
	err := variant.Watch(ctx, b, variants, opts.jobs, func(vs []variant.Description, paths []string, err error) {
		all.Add(paths...)
		manifest, merr := variant.WriteManifest(opts.outputPath, all.Sorted())
		switch {
		case merr != nil:
			rep.failure(merr)
		case err != nil:
			rep.failure(err)
		default:
			rep.success(len(vs), paths, manifest)
		}
	})
	if err != nil && !stderrors.Is(err, context.Canceled) {
		rep.failure(err)
		return 1
	}
	return 0
}
