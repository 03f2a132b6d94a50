package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/njchilds90/kinetex"
	"github.com/njchilds90/kinetex/modelfile"
)

// app carries flag values and I/O shared by every command.
type app struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	modelPath string
	outPath   string
	math      []string
	noAlign   bool
	noReduce  bool
	logLevel  string
}

func newRootCmd(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	a := &app{fs: fs, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "kinetex",
		Short: "Render kinetic models as LaTeX",
		Long: `kinetex reads a kinetic model from a YAML file and renders its reactions,
derived quantities and ODE system as LaTeX equations.

Without --out the document is printed. With --out it is written to a .txt
file, and only when its content changed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.modelPath, "model", "m", "model.yaml", "model file to render")
	pf.StringVarP(&a.outPath, "out", "o", "", "destination file, written with a .txt extension")
	pf.StringArrayVar(&a.math, "math", nil, "display override as name=markup (repeatable)")
	pf.BoolVar(&a.noAlign, "no-align", false, "join sides with = instead of &=")
	pf.BoolVar(&a.noReduce, "no-reduce", false, "render rule bindings as separate lines")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.singleCmd(),
		a.odeCmd(),
		a.collectionCmd("reactions", "Render every reaction rate", (*kinetex.Composer).Reactions),
		a.collectionCmd("odes", "Render the ODE system", (*kinetex.Composer).ODEs),
		a.collectionCmd("derived", "Render every derived quantity", (*kinetex.Composer).DerivedQuantities),
		a.customCmd(),
		a.allCmd(),
		a.watchCmd(),
	)
	return root
}

// withModel loads the model and hands it to body. Misspelt names get a
// suggestion.
func (a *app) withModel(body func(*kinetex.Model, *kinetex.Composer, []kinetex.Option) error) error {
	opts, err := a.renderOptions()
	if err != nil {
		return err
	}
	m, err := modelfile.Load(a.fs, a.modelPath)
	if err != nil {
		return err
	}
	return explain(m, body(m, kinetex.NewComposer(m), opts))
}

func (a *app) renderOptions() ([]kinetex.Option, error) {
	overrides := make(map[string]string, len(a.math))
	for _, kv := range a.math {
		name, markup, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--math %q: want name=markup", kv)
		}
		overrides[name] = markup
	}
	return []kinetex.Option{
		kinetex.WithOverrides(overrides),
		kinetex.WithAlign(!a.noAlign),
		kinetex.WithReduce(!a.noReduce),
	}, nil
}

// emit prints text, or persists it when --out is set.
func (a *app) emit(text string) error {
	if a.outPath == "" {
		_, err := fmt.Fprintln(a.stdout, text)
		return err
	}
	_, err := kinetex.Persist(a.writer(), text, a.outPath)
	return err
}

func (a *app) writer() *kinetex.Writer {
	return kinetex.NewWriter(a.fs, kinetex.WithLogger(a.logger))
}

// explain appends the closest known identifier to name lookup failures.
func explain(m *kinetex.Model, err error) error {
	var ne *kinetex.NameError
	if !kinetex.IsNotFound(err) || !errors.As(err, &ne) || m.Has(ne.Name) {
		return err
	}
	if s := kinetex.Suggest(m, ne.Name); s != "" {
		return fmt.Errorf("%w (did you mean %q?)", err, s)
	}
	return err
}
