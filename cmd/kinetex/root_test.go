package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/kinetex"
)

const testModel = `
parameters:
  - {name: k_in, value: 1}
  - {name: k1, value: 0.5}
variables:
  - {name: S, initial: 0}
  - {name: P, initial: 0}
reactions:
  - {name: v0, params: [k], body: k, args: [k_in], stoichiometry: {S: 1}}
  - {name: v1, params: [s, k], body: k * s, args: [S, k1], stoichiometry: {S: -1, P: 1}}
derived:
  - {name: total, params: [a, b], body: a + b, args: [S, P]}
symbols:
  k1: k_{1}
`

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "model.yaml", []byte(testModel), 0o644))
	return fs
}

func execute(fs afero.Fs, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(fs, &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLI_ODEs(t *testing.T) {
	out, _, err := execute(newTestFs(t), "odes", "--no-align")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`\frac{\mathrm{d}S}{\mathrm{d}t} = v0 - v1 \\`,
		`\frac{\mathrm{d}P}{\mathrm{d}t} = v1 \\`,
	}, "\n")+"\n", out)
}

func TestCLI_SingleWithMathOverride(t *testing.T) {
	out, _, err := execute(newTestFs(t), "single", "v1", "--math", "v1=v_{1}", "--math", "S=[S]")
	require.NoError(t, err)
	assert.Equal(t, "v_{1} &= k_{1} \\cdot [S]\n", out)
}

func TestCLI_ODE(t *testing.T) {
	out, _, err := execute(newTestFs(t), "-m", "model.yaml", "ode", "P")
	require.NoError(t, err)
	assert.Equal(t, "\\frac{\\mathrm{d}P}{\\mathrm{d}t} &= v1\n", out)
}

func TestCLI_Custom(t *testing.T) {
	out, _, err := execute(newTestFs(t), "custom", "k1", "S", "total")
	require.NoError(t, err)
	assert.Equal(t, "k1 &= k_{1} \\\\\nS \\\\\ntotal &= S + P \\\\\n", out)
}

func TestCLI_UnknownNameSuggests(t *testing.T) {
	out, stderr, err := execute(newTestFs(t), "custom", "k1", "v11")
	require.ErrorIs(t, err, kinetex.ErrNameNotFound)
	assert.Empty(t, out)
	assert.Contains(t, stderr, `did you mean "v1"?`)
}

func TestCLI_AllToFiles(t *testing.T) {
	fs := newTestFs(t)
	_, _, err := execute(fs, "all", "-o", "out/model", "--log-level", "error")
	require.NoError(t, err)

	for _, name := range []string{"out/model_ODEs.txt", "out/model_reactions.txt", "out/model_derived.txt"} {
		ok, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	derived, err := afero.ReadFile(fs, "out/model_derived.txt")
	require.NoError(t, err)
	assert.Equal(t, `total &= S + P \\`, string(derived))

	_, _, err = execute(fs, "all", "--combine", "-o", "out/model", "--log-level", "error")
	require.NoError(t, err)
	combined, err := afero.ReadFile(fs, "out/model.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(combined), "ODE System:\n"))
	assert.Contains(t, string(combined), "\n\nDerived:\ntotal &= S + P \\\\")
}

func TestCLI_AllPrintsCombined(t *testing.T) {
	out, _, err := execute(newTestFs(t), "all")
	require.NoError(t, err)
	assert.Contains(t, out, "ODE System:\n")
	assert.Contains(t, out, "\n\nReactions:\nv0 &= k_{in} \\\\\n")
}

func TestCLI_WritesOnlyOnChange(t *testing.T) {
	fs := newTestFs(t)
	_, stderr, err := execute(fs, "reactions", "-o", "rx", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "document created")

	_, stderr, err = execute(fs, "reactions", "-o", "rx", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "document up to date")
}

func TestCLI_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad math", []string{"odes", "--math", "v1"}, "want name=markup"},
		{"bad level", []string{"odes", "--log-level", "loud"}, "--log-level"},
		{"missing model", []string{"odes", "-m", "nope.yaml"}, "nope.yaml"},
		{"watch without out", []string{"watch"}, "--out is required"},
		{"arity", []string{"single"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(newTestFs(t), tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

// ============================================================
// Watch loop
// ============================================================

func TestWatchLoop_RendersOnModelChanges(t *testing.T) {
	a := &app{
		modelPath: "models/model.yaml",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	renders := make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.watchLoop(ctx, events, errs, func() { renders <- struct{}{} })
	}()

	events <- fsnotify.Event{Name: "models/other.yaml", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "models/model.yaml", Op: fsnotify.Chmod}
	errs <- assert.AnError
	events <- fsnotify.Event{Name: "models/./model.yaml", Op: fsnotify.Write}

	select {
	case <-renders:
	case <-time.After(time.Second):
		t.Fatal("no render after a write to the model file")
	}
	assert.Empty(t, renders, "unrelated events must not render")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop on cancel")
	}
}

func TestWatchLoop_StopsWhenEventsClose(t *testing.T) {
	a := &app{modelPath: "model.yaml", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	events := make(chan fsnotify.Event)
	close(events)
	err := a.watchLoop(context.Background(), events, nil, func() {})
	assert.NoError(t, err)
}
