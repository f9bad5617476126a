package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/vspirv/errors"
)

// CompilerFileName is the file name of the compiler module.
const CompilerFileName = "libveldrid-spirv.wasm"

// EnvCompiler names an environment variable holding an explicit compiler
// module path. It takes precedence over every search directory.
const EnvCompiler = "VSPIRV_COMPILER"

// PlatformDir returns the platform-specific directory, relative to a
// search directory, that holds the compiler module.
func PlatformDir() string {
	return filepath.Join("runtimes", runtime.GOOS+"-"+runtime.GOARCH, "native")
}

// Locate resolves the compiler module for the current platform. It checks
// $VSPIRV_COMPILER, then for each dir the platform directory and the dir
// itself. With no dirs it searches the executable's directory and the
// working directory.
func Locate(dirs ...string) (string, error) {
	if p := os.Getenv(EnvCompiler); p != "" {
		if isFile(p) {
			return p, nil
		}
		return "", errors.New(errors.PhaseLoad, errors.KindNotFound).
			Value(p).
			Detail("compiler module %q named by %s not found", p, EnvCompiler).
			Build()
	}

	if len(dirs) == 0 {
		dirs = defaultDirs()
	}

	var searched []string
	for _, dir := range dirs {
		for _, candidate := range []string{
			filepath.Join(dir, PlatformDir(), CompilerFileName),
			filepath.Join(dir, CompilerFileName),
		} {
			searched = append(searched, candidate)
			if isFile(candidate) {
				Logger().Debug("located compiler module", zap.String("path", candidate))
				return candidate, nil
			}
		}
	}

	return "", errors.New(errors.PhaseLoad, errors.KindNotFound).
		Value(CompilerFileName).
		Detail("compiler module %q not found for %s/%s (searched %s)",
			CompilerFileName, runtime.GOOS, runtime.GOARCH, strings.Join(searched, ", ")).
		Build()
}

func defaultDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
