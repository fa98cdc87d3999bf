package project

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/vex/internal/source"
)

// Walk lists every regular file under f.Root that the filter lets through.
// Skipped directories are not descended into and symbolic links are never
// followed. Any error reading a directory or an entry aborts the walk.
func Walk(ctx context.Context, f Filter, logger *slog.Logger) ([]source.Path, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &walker{filter: f, logger: logger}
	if err := w.walk(ctx, f.Root); err != nil {
		return nil, err
	}
	return w.paths, nil
}

type walker struct {
	filter Filter
	logger *slog.Logger
	paths  []source.Path
}

func (w *walker) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.logger.Debug("walking", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &source.IOError{Path: w.pretty(dir), Action: source.ActionRead, Err: err}
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Lstat(path)
		if err != nil {
			return &source.IOError{Path: w.pretty(path), Action: source.ActionRead, Err: err}
		}

		rel := w.pretty(path)
		if verdict := w.filter.Classify(rel); verdict.Skip() {
			marker := ""
			if info.IsDir() {
				marker = "/"
			}
			w.logger.Info("ignoring", "path", rel+marker, "reason", verdict.String())
			continue
		}

		switch mode := info.Mode(); {
		case mode&os.ModeSymlink != 0:
			w.logger.Info("ignoring", "path", rel, "reason", "symlink")
		case mode.IsDir():
			if err := w.walk(ctx, path); err != nil {
				return err
			}
		case mode.IsRegular():
			w.paths = append(w.paths, source.NewPath(path, w.filter.Root))
		default:
			w.logger.Debug("ignoring", "path", rel, "reason", "not a regular file")
		}
	}
	return nil
}

func (w *walker) pretty(path string) string {
	return source.NewPath(path, w.filter.Root).Pretty
}
