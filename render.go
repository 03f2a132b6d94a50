package kinetex

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Option tunes a single render call.
type Option func(*options)

type options struct {
	overrides Overrides
	align     bool
	reduce    bool
}

func newOptions(opts []Option) options {
	o := options{align: true, reduce: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithOverrides supplies markup that beats every other naming layer for the
// duration of one call. Repeated use merges, later entries winning.
func WithOverrides(m map[string]string) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = Overrides{}
		}
		for k, v := range m {
			o.overrides[k] = v
		}
	}
}

// WithAlign chooses "&=" (true, the default) or "=" between the two sides.
func WithAlign(align bool) Option { return func(o *options) { o.align = align } }

// WithReduce chooses whether rule bindings are inlined (true, the default).
func WithReduce(reduce bool) Option { return func(o *options) { o.reduce = reduce } }

// ============================================================
// Equation
// ============================================================

type Equation struct{ LHS, RHS string }

func (e Equation) Markup(align bool) string {
	if align {
		return e.LHS + " &= " + e.RHS
	}
	return e.LHS + " = " + e.RHS
}

// ============================================================
// Renderer
// ============================================================

// Renderer turns single model entities into markup. It reads the source on
// every call and keeps no state of its own.
type Renderer struct {
	src Source
}

func NewRenderer(src Source) *Renderer { return &Renderer{src: src} }

// sources lists the naming layers, highest priority first.
func (r *Renderer) sources(o options) []SymbolSource {
	srcs := []SymbolSource{o.overrides, SourceFunc(r.math)}
	if t := r.src.Symbols(); t != nil {
		srcs = append(srcs, t)
	}
	return srcs
}

// math looks up the display markup attached to a reaction or derived
// quantity.
func (r *Renderer) math(name string) (string, bool) {
	kind, _ := r.src.Kind(name)
	switch kind {
	case KindReaction:
		if rx, ok := r.src.Reaction(name); ok && rx.Math != "" {
			return rx.Math, true
		}
	case KindDerived:
		if d, ok := r.src.Derived(name); ok && d.Math != "" {
			return d.Math, true
		}
	}
	return "", false
}

// Symbol resolves the display markup for name.
func (r *Renderer) Symbol(name string, opts ...Option) string {
	return Resolve(name, r.sources(newOptions(opts))...)
}

func (r *Renderer) resolveAll(names []string, o options) []string {
	srcs := r.sources(o)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Resolve(n, srcs...)
	}
	return out
}

// annotate attaches the entity name to compiler failures.
func annotate(name string, err error) error {
	var ue *UnsupportedExpressionError
	if errors.As(err, &ue) {
		if ue.Entity == "" {
			ue.Entity = name
		}
		return err
	}
	return fmt.Errorf("render %q: %w", name, err)
}

func (r *Renderer) compile(name string, rule *Rule, args []string, o options) (string, error) {
	rhs, err := CompileRule(rule, r.resolveAll(args, o), o.reduce)
	if err != nil {
		return "", annotate(name, err)
	}
	return rhs, nil
}

// ruleOf returns the rule and arguments behind a reaction or derived
// quantity.
func (r *Renderer) ruleOf(name string) (*Rule, []string, error) {
	kind, ok := r.src.Kind(name)
	if !ok {
		return nil, nil, newNameError("render", name)
	}
	switch kind {
	case KindReaction:
		if rx, ok := r.src.Reaction(name); ok {
			return rx.Rule, rx.Args, nil
		}
	case KindDerived:
		if d, ok := r.src.Derived(name); ok {
			return d.Rule, d.Args, nil
		}
	default:
		return nil, nil, fmt.Errorf("render %q: %w: %s has no rule", name, ErrWrongKind, kind)
	}
	return nil, nil, newNameError("render", name)
}

// Equation renders both sides for a reaction or derived quantity. Without
// reduction the right-hand side carries the binding lines.
func (r *Renderer) Equation(name string, opts ...Option) (Equation, error) {
	o := newOptions(opts)
	rule, args, err := r.ruleOf(name)
	if err != nil {
		return Equation{}, err
	}
	rhs, err := r.compile(name, rule, args, o)
	if err != nil {
		return Equation{}, err
	}
	return Equation{LHS: Resolve(name, r.sources(o)...), RHS: rhs}, nil
}

// Render produces the markup for name. Reactions and derived quantities
// render as equations; parameters and variables render as their bare
// symbol. Without reduction, every binding of the rule gets a line of its
// own ahead of the final equation.
func (r *Renderer) Render(name string, opts ...Option) (string, error) {
	o := newOptions(opts)
	kind, ok := r.src.Kind(name)
	if !ok {
		return "", newNameError("render", name)
	}
	if kind == KindParameter || kind == KindVariable {
		return Resolve(name, r.sources(o)...), nil
	}
	rule, args, err := r.ruleOf(name)
	if err != nil {
		return "", err
	}
	lhs := Resolve(name, r.sources(o)...)
	if o.reduce || len(rule.Bindings) == 0 {
		rhs, err := r.compile(name, rule, args, o)
		if err != nil {
			return "", err
		}
		return Equation{LHS: lhs, RHS: rhs}.Markup(o.align), nil
	}

	steps, result, err := CompileRuleSteps(rule, r.resolveAll(args, o))
	if err != nil {
		return "", annotate(name, err)
	}
	lines := make([]string, 0, len(steps)+1)
	for _, st := range steps {
		lines = append(lines, st.Markup(o.align))
	}
	lines = append(lines, Equation{LHS: lhs, RHS: result}.Markup(o.align))
	return strings.Join(lines, lineBreak+"\n"), nil
}

// Identity renders name = symbol, with the escaped identifier on the left.
func (r *Renderer) Identity(name string, opts ...Option) (string, error) {
	o := newOptions(opts)
	if _, ok := r.src.Kind(name); !ok {
		return "", newNameError("render", name)
	}
	return Equation{LHS: Escape(name), RHS: Resolve(name, r.sources(o)...)}.Markup(o.align), nil
}

// ============================================================
// ODE assembly
// ============================================================

// ODE renders d(variable)/dt as the signed sum of every reaction touching
// it, in reaction declaration order.
func (r *Renderer) ODE(variable string, opts ...Option) (string, error) {
	o := newOptions(opts)
	kind, ok := r.src.Kind(variable)
	if !ok {
		return "", newNameError("render ODE", variable)
	}
	if kind != KindVariable {
		return "", &NameError{
			Op:   "render ODE",
			Name: variable,
			Err:  fmt.Errorf("%w: %w: is a %s", ErrNameNotFound, ErrWrongKind, kind),
		}
	}

	var rhs strings.Builder
	terms := 0
	for _, rn := range r.src.ReactionNames() {
		rx, ok := r.src.Reaction(rn)
		if !ok {
			continue
		}
		c, ok := rx.Stoichiometry[variable]
		if !ok {
			continue
		}
		term, negative, err := r.term(rn, c, o)
		if err != nil {
			return "", err
		}
		if term == "" {
			continue
		}
		switch {
		case terms == 0 && negative:
			rhs.WriteString("-" + term)
		case terms == 0:
			rhs.WriteString(term)
		case negative:
			rhs.WriteString(" - " + term)
		default:
			rhs.WriteString(" + " + term)
		}
		terms++
	}
	if terms == 0 {
		rhs.WriteString("0")
	}

	lhs := `\frac{\mathrm{d}` + Resolve(variable, r.sources(o)...) + `}{\mathrm{d}t}`
	return Equation{LHS: lhs, RHS: rhs.String()}.Markup(o.align), nil
}

// term renders the unsigned contribution of one reaction. An empty term
// means the coefficient is zero.
func (r *Renderer) term(reaction string, c Coefficient, o options) (string, bool, error) {
	rate := Resolve(reaction, r.sources(o)...)
	if !c.IsSymbolic() {
		if c.Value == 0 {
			return "", false, nil
		}
		mag := math.Abs(c.Value)
		if mag == 1 {
			return rate, c.Value < 0, nil
		}
		factor := formatCoefficient(mag)
		if leadsWithDigit(rate) {
			return factor + ` \cdot ` + rate, c.Value < 0, nil
		}
		return factor + " " + rate, c.Value < 0, nil
	}

	// Coefficients are always inlined; a row break cannot sit inside a group.
	factor, err := CompileRule(c.Rule, r.resolveAll(c.Args, o), true)
	if err != nil {
		return "", false, annotate(reaction, err)
	}
	inlined := c.Rule.Inline()
	if displayPrec(inlined) < precMul || startsNegative(inlined) {
		factor = group(factor)
	}
	return factor + ` \cdot ` + rate, false, nil
}

func formatCoefficient(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return NFloat(v).LaTeX()
}
