// Package writer writes rendered artifacts to their output location. It
// works against the gopherfs fs.Writer abstraction so tests can supply their
// own filesystem.
package writer

import (
	"context"
	"path/filepath"

	"github.com/gopherfs/fs"
	osfs "github.com/gopherfs/fs/io/os"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/y0rk9s/cangen/internal/render"
)

// Writer writes rendered files under a target directory.
type Writer struct {
	fs  fs.Writer
	dir string
	log *zap.Logger
}

type writerOption func(w *Writer)

// WithFS uses the fs passed to write files to.
func WithFS(fsys fs.Writer) writerOption {
	return func(w *Writer) {
		w.fs = fsys
	}
}

// WithDir sets the directory files are written under. Defaults to the
// current directory.
func WithDir(dir string) writerOption {
	return func(w *Writer) {
		w.dir = dir
	}
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(l *zap.Logger) writerOption {
	return func(w *Writer) {
		w.log = l
	}
}

// New creates a new Writer.
func New(options ...writerOption) (*Writer, error) {
	w := &Writer{dir: ".", log: zap.NewNop()}
	for _, o := range options {
		o(w)
	}
	if w.fs == nil {
		fsys, err := osfs.New()
		if err != nil {
			return nil, errors.Wrap(err, "could not create an osfs")
		}
		w.fs = fsys
	}
	return w, nil
}

// Write writes all rendered files. Stops at the first failure.
func (w *Writer) Write(ctx context.Context, files []render.File) error {
	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p := filepath.Join(w.dir, f.Name)
		if err := w.fs.WriteFile(p, f.Content, 0600); err != nil {
			return errors.Wrapf(err, "problem writing artifact %s", p)
		}
		w.log.Info("wrote artifact", zap.String("path", p), zap.Int("bytes", len(f.Content)))
	}
	return nil
}
