package source

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// DefaultDebounce coalesces bursts of file events.
const DefaultDebounce = 100 * time.Millisecond

// FileFetcher reads a JSON or YAML payload from disk. The request is
// ignored.
type FileFetcher struct {
	Path     string
	Debounce time.Duration
	Logger   *zap.Logger
}

func (f *FileFetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, _ Request) (graph.Payload, error) {
	if err := ctx.Err(); err != nil {
		return graph.Payload{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError(f.Path, err)
	}
	p, err := Decode(data, FormatFromPath(f.Path))
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError(f.Path, err)
	}
	return p, nil
}

// Watch calls onChange with the reloaded payload whenever the file is
// written, until ctx is done. Events are debounced. The parent directory is
// watched so editors that replace the file by rename are seen too.
func (f *FileFetcher) Watch(ctx context.Context, onChange func(graph.Payload, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	wait := f.Debounce
	if wait <= 0 {
		wait = DefaultDebounce
	}
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			debounce.Reset(wait)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger().Warn("watcher error", zap.Error(err))

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			p, err := f.Fetch(ctx, Request{})
			f.logger().Info("dataset changed", zap.String("path", f.Path), zap.Int("nodes", len(p.Nodes)), zap.Error(err))
			onChange(p, err)
		}
	}
}
