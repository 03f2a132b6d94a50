package kinetex

import "fmt"

// Binding is a named intermediate value inside a rule body.
type Binding struct {
	Name  string
	Value Expr
}

// Rule is a function over named parameters: zero or more local bindings
// followed by a result expression.
type Rule struct {
	Params   []string
	Bindings []Binding
	Result   Expr
}

// identityRule backs symbolic stoichiometric coefficients given by name.
var identityRule = &Rule{Params: []string{"x"}, Result: S("x")}

// NewRule validates that the body references only parameters, earlier
// bindings and the constants pi and e.
func NewRule(params []string, result Expr, bindings ...Binding) (*Rule, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: missing result expression", ErrInvalidRule)
	}
	scope := make(map[string]struct{}, len(params)+len(bindings))
	for _, p := range params {
		if _, dup := scope[p]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidRule, p)
		}
		scope[p] = struct{}{}
	}
	for _, b := range bindings {
		if err := checkScope(b.Value, scope); err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Name, err)
		}
		scope[b.Name] = struct{}{}
	}
	if err := checkScope(result, scope); err != nil {
		return nil, err
	}
	return &Rule{Params: params, Bindings: bindings, Result: result}, nil
}

// MustRule is like NewRule but panics on error. It simplifies package-level
// rule declarations.
func MustRule(params []string, result Expr, bindings ...Binding) *Rule {
	r, err := NewRule(params, result, bindings...)
	if err != nil {
		panic(err)
	}
	return r
}

func checkScope(e Expr, scope map[string]struct{}) error {
	for _, name := range SortedSymbols(e) {
		if _, ok := scope[name]; ok {
			continue
		}
		if _, ok := constants[name]; ok {
			continue
		}
		return fmt.Errorf("%w %q", ErrUnknownSymbol, name)
	}
	return nil
}

func (r *Rule) Arity() int { return len(r.Params) }

// Inline substitutes every binding into the result, yielding one expression.
// Bindings are substituted last to first, so a binding may shadow a
// parameter or an earlier binding of the same name.
func (r *Rule) Inline() Expr {
	e := r.Result
	for i := len(r.Bindings) - 1; i >= 0; i-- {
		e = e.Sub(r.Bindings[i].Name, r.Bindings[i].Value)
	}
	return e
}

func (r *Rule) String() string {
	s := ""
	for _, b := range r.Bindings {
		s += b.Name + " = " + b.Value.String() + "; "
	}
	return s + r.Result.String()
}
