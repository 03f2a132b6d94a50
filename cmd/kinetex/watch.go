package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/kinetex"
)

func (a *app) watchCmd() *cobra.Command {
	var combine bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the whole model every time the model file changes",
		Long: `Render the whole model like "all", then keep watching the model file and
render again after every change. Unchanged documents are not rewritten.
Requires --out. Stops on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.outPath == "" {
				return errors.New("watch: --out is required")
			}
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer w.Close()

			// Editors often replace the file, so watch its directory.
			if err := w.Add(filepath.Dir(a.modelPath)); err != nil {
				return fmt.Errorf("watch %s: %w", a.modelPath, err)
			}
			a.renderOnce(combine)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return a.watchLoop(ctx, w.Events, w.Errors, func() { a.renderOnce(combine) })
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&combine, "combine", false, "write one document with section headers")
	return cmd
}

// renderOnce renders and persists the whole model. Failures are logged so a
// broken edit does not end the watch.
func (a *app) renderOnce(combine bool) {
	err := a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
		return a.renderAll(c, opts, combine)
	})
	if err != nil {
		a.logger.Error("render failed", "model", a.modelPath, "error", err)
	}
}

// watchLoop calls render for every write, create or rename of the model
// file until ctx is done or the channels close.
func (a *app) watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, render func()) error {
	target := filepath.Clean(a.modelPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				a.logger.Debug("model changed", "path", ev.Name, "op", ev.Op.String())
				render()
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)
		}
	}
}
