package variant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/vspirv/errors"
)

// ManifestFileName is the artifact list written into the output directory.
const ManifestFileName = "vspv_generated_files.txt"

// Event reports the outcome of one variant during CompileAll.
type Event struct {
	Variant string
	Paths   []string
	Err     error
}

// CompileAll builds variants with at most jobs running at once. A failing
// variant does not stop the others. The returned paths are every artifact
// written, deduplicated and sorted; the error aggregates each variant
// failure, tagged with the variant name.
func (b *Builder) CompileAll(ctx context.Context, variants []Description, jobs int) ([]string, error) {
	return b.CompileAllNotify(ctx, variants, jobs, nil)
}

// CompileAllNotify is CompileAll with a callback invoked as each variant
// finishes. notify may be called from several goroutines at once.
func (b *Builder) CompileAllNotify(ctx context.Context, variants []Description, jobs int, notify func(Event)) ([]string, error) {
	if jobs < 1 {
		jobs = 1
	}
	set := NewPathSet()
	errs := make([]error, len(variants))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, d := range variants {
		g.Go(func() error {
			var (
				paths []string
				err   error
			)
			if err = ctx.Err(); err == nil {
				paths, err = b.Compile(ctx, d)
			}
			set.Add(paths...)
			if err != nil {
				errs[i] = fmt.Errorf("variant %q: %w", d.Name, err)
				b.logger().Warn("variant failed", zap.String("variant", d.Name), zap.Error(err))
			} else {
				b.logger().Info("variant compiled", zap.String("variant", d.Name), zap.Int("artifacts", len(paths)))
			}
			if notify != nil {
				notify(Event{Variant: d.Name, Paths: paths, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	return set.Sorted(), errors.Aggregate("failed to compile shader variants", errs...)
}

// WriteManifest writes paths to ManifestFileName in outputDir, one per
// line with no trailing newline, and returns the manifest path.
func WriteManifest(outputDir string, paths []string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("create %s", outputDir))
	}
	path := filepath.Join(outputDir, ManifestFileName)
	if err := writeFile(path, []byte(strings.Join(paths, "\n"))); err != nil {
		return "", err
	}
	return path, nil
}
