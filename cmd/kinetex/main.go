// cmd/kinetex/main.go — render kinetic models to LaTeX
//
// Usage:
//
//	kinetex -m model.yaml odes
//	kinetex -m model.yaml -o out/model all --combine
//	kinetex -m model.yaml -o out/model watch
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(afero.NewOsFs(), os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
