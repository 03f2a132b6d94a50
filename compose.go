package kinetex

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Section headers used by Sections.Combined.
const (
	headerODEs      = "ODE System:"
	headerReactions = "Reactions:"
	headerDerived   = "Derived:"
)

// lineBreak ends every line of a composed document.
const lineBreak = ` \\`

// Composer assembles documents out of rendered lines. Collections follow
// model declaration order.
type Composer struct {
	src Source
	r   *Renderer
}

func NewComposer(src Source) *Composer {
	return &Composer{src: src, r: NewRenderer(src)}
}

// Renderer exposes the renderer the composer draws lines from.
func (c *Composer) Renderer() *Renderer { return c.r }

// JoinLines ends each line with a row break and joins them with newlines.
// No lines give empty text.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l)
		sb.WriteString(lineBreak)
	}
	return sb.String()
}

// Single renders one entity of any kind.
func (c *Composer) Single(name string, opts ...Option) (string, error) {
	return c.r.Render(name, opts...)
}

// SingleODE renders the differential equation of one variable.
func (c *Composer) SingleODE(variable string, opts ...Option) (string, error) {
	return c.r.ODE(variable, opts...)
}

func (c *Composer) collect(names []string, render func(string, ...Option) (string, error), opts []Option) (string, error) {
	lines := make([]string, 0, len(names))
	for _, n := range names {
		l, err := render(n, opts...)
		if err != nil {
			return "", err
		}
		lines = append(lines, l)
	}
	return JoinLines(lines), nil
}

func (c *Composer) Reactions(opts ...Option) (string, error) {
	return c.collect(c.src.ReactionNames(), c.r.Render, opts)
}

func (c *Composer) ODEs(opts ...Option) (string, error) {
	return c.collect(c.src.VariableNames(), c.r.ODE, opts)
}

func (c *Composer) DerivedQuantities(opts ...Option) (string, error) {
	return c.collect(c.src.DerivedNames(), c.r.Render, opts)
}

// Custom renders names in the given order. Reactions and derived quantities
// render as equations, variables as their symbol and parameters as an
// identity line. The first failure aborts the whole call.
func (c *Composer) Custom(names []string, opts ...Option) (string, error) {
	return c.collect(names, func(name string, opts ...Option) (string, error) {
		kind, ok := c.src.Kind(name)
		if !ok {
			return "", newNameError("compose", name)
		}
		if kind == KindParameter {
			return c.r.Identity(name, opts...)
		}
		return c.r.Render(name, opts...)
	}, opts)
}

// Sections holds the three parts of a full model document.
type Sections struct {
	ODEs      string
	Reactions string
	Derived   string
}

// All renders every section. Any failure aborts the call.
func (c *Composer) All(opts ...Option) (Sections, error) {
	var (
		s   Sections
		err error
	)
	if s.ODEs, err = c.ODEs(opts...); err != nil {
		return Sections{}, err
	}
	if s.Reactions, err = c.Reactions(opts...); err != nil {
		return Sections{}, err
	}
	if s.Derived, err = c.DerivedQuantities(opts...); err != nil {
		return Sections{}, err
	}
	return s, nil
}

// Combined merges the sections into one document under headers, separated
// by blank lines.
func (s Sections) Combined() string {
	parts := []string{
		headerODEs + "\n" + s.ODEs,
		headerReactions + "\n" + s.Reactions,
		headerDerived + "\n" + s.Derived,
	}
	return strings.Join(parts, "\n\n")
}

// textPath gives dest the .txt extension, replacing any other.
func textPath(dest string) string {
	if ext := filepath.Ext(dest); ext != ".txt" {
		return strings.TrimSuffix(dest, ext) + ".txt"
	}
	return dest
}

// Persist writes text to dest with a .txt extension and reports whether the
// file changed.
func Persist(w *Writer, text, dest string) (bool, error) {
	return w.Write(text, textPath(dest))
}

// PersistSections writes s either combined into dest or split into
// <stem>_ODEs.txt, <stem>_reactions.txt and <stem>_derived.txt.
func PersistSections(w *Writer, s Sections, dest string, combine bool) error {
	if combine {
		_, err := Persist(w, s.Combined(), dest)
		return err
	}
	stem := strings.TrimSuffix(dest, filepath.Ext(dest))
	for _, part := range []struct{ suffix, text string }{
		{"_ODEs", s.ODEs},
		{"_reactions", s.Reactions},
		{"_derived", s.Derived},
	} {
		if _, err := w.Write(part.text, stem+part.suffix+".txt"); err != nil {
			return fmt.Errorf("persist sections: %w", err)
		}
	}
	return nil
}
