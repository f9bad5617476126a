package variant

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/vspirv/errors"
)

const watchDebounce = 150 * time.Millisecond

// BuildFunc receives the outcome of every build Watch runs.
type BuildFunc func(variants []Description, paths []string, err error)

// Watch builds every variant once, then rebuilds the variants that
// reference a source file whenever it changes in any search path. It
// returns when ctx is done.
func Watch(ctx context.Context, b *Builder, variants []Description, jobs int, onBuild BuildFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.PhaseIO, errors.KindInternal, err, "create file watcher")
	}
	defer watcher.Close()

	index := sourceIndex(b.SearchPaths, variants)
	dirs := make(map[string]bool)
	for path := range index {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrap(errors.PhaseIO, errors.KindInternal, err, "watch "+dir)
		}
		dirs[dir] = true
	}

	build := func(vs []Description) {
		paths, err := b.CompileAll(ctx, vs, jobs)
		if onBuild != nil {
			onBuild(vs, paths, err)
		}
	}
	build(variants)

	pending := make(map[int]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			refs := index[filepath.Clean(event.Name)]
			if len(refs) == 0 {
				continue
			}
			b.logger().Debug("source changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			for _, i := range refs {
				pending[i] = true
			}
			timer.Reset(watchDebounce)
		case <-timer.C:
			vs := make([]Description, 0, len(pending))
			for i := range variants {
				if pending[i] {
					vs = append(vs, variants[i])
				}
			}
			clear(pending)
			build(vs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger().Warn("file watcher error", zap.Error(err))
		}
	}
}

// sourceIndex maps every candidate source path to the indexes of the
// variants that reference it.
func sourceIndex(searchPaths []string, variants []Description) map[string][]int {
	index := make(map[string][]int)
	for i, d := range variants {
		for _, s := range d.Shaders {
			for _, dir := range searchPaths {
				path := filepath.Clean(filepath.Join(dir, s.FileName))
				refs := index[path]
				if len(refs) == 0 || refs[len(refs)-1] != i {
					index[path] = append(refs, i)
				}
			}
		}
	}
	return index
}
