package kinetex

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"
)

// Writer persists documents and skips writes that would not change the
// destination.
type Writer struct {
	fs     afero.Fs
	logger *slog.Logger
	perm   fs.FileMode
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPerm sets the mode of newly created files.
func WithPerm(perm fs.FileMode) WriterOption {
	return func(w *Writer) { w.perm = perm }
}

func NewWriter(fsys afero.Fs, opts ...WriterOption) *Writer {
	w := &Writer{fs: fsys, logger: slog.Default(), perm: 0o644}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores text at dest verbatim. It reports false without touching the
// file when the content is already identical. Parent directories must exist.
func (w *Writer) Write(text, dest string) (bool, error) {
	current, err := afero.ReadFile(w.fs, dest)
	exists := true
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return false, fmt.Errorf("%w: read %s: %w", ErrIO, dest, err)
	case bytes.Equal(current, []byte(text)):
		w.logger.Debug("document up to date", "path", dest)
		return false, nil
	}

	if err := afero.WriteFile(w.fs, dest, []byte(text), w.perm); err != nil {
		return false, fmt.Errorf("%w: write %s: %w", ErrIO, dest, err)
	}
	if exists {
		w.logger.Info("document updated", "path", dest, "bytes", len(text))
	} else {
		w.logger.Info("document created", "path", dest, "bytes", len(text))
	}
	return true, nil
}
