package kinetex

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Kind is the namespace an identifier belongs to.
type Kind int

const (
	KindParameter Kind = iota + 1
	KindVariable
	KindReaction
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindVariable:
		return "variable"
	case KindReaction:
		return "reaction"
	case KindDerived:
		return "derived"
	}
	return "unknown"
}

// timeName is reserved for the integration time.
const timeName = "time"

// Coefficient is a stoichiometric weight: either a plain number or a rule
// over model identifiers.
type Coefficient struct {
	Value float64
	Rule  *Rule
	Args  []string
}

func Coef(v float64) Coefficient { return Coefficient{Value: v} }

// CoefSymbol weights a reaction by the identifier name.
func CoefSymbol(name string) Coefficient {
	return Coefficient{Rule: identityRule, Args: []string{name}}
}

func CoefRule(rule *Rule, args ...string) Coefficient { return Coefficient{Rule: rule, Args: args} }

func (c Coefficient) IsSymbolic() bool { return c.Rule != nil }

// Reaction is a rate backed by a rule and the variables it changes.
type Reaction struct {
	Name          string
	Rule          *Rule
	Args          []string
	Stoichiometry map[string]Coefficient
	Math          string
}

// Derived is an algebraic quantity backed by a rule.
type Derived struct {
	Name string
	Rule *Rule
	Args []string
	Math string
}

// Source is the model surface the renderer reads.
type Source interface {
	Kind(name string) (Kind, bool)
	ParameterNames() []string
	VariableNames() []string
	ReactionNames() []string
	DerivedNames() []string
	Reaction(name string) (*Reaction, bool)
	Derived(name string) (*Derived, bool)
	Symbols() *SymbolTable
}

// Model is an in-memory kinetic model. It keeps declaration order for every
// kind. It is not safe for concurrent mutation.
type Model struct {
	ids        map[string]Kind
	parameters []string
	values     map[string]float64
	variables  []string
	initial    map[string]float64
	reactions  []string
	reactionBy map[string]*Reaction
	derived    []string
	derivedBy  map[string]*Derived
	symbols    *SymbolTable
}

func NewModel() *Model {
	m := &Model{
		ids:        map[string]Kind{},
		values:     map[string]float64{},
		initial:    map[string]float64{},
		reactionBy: map[string]*Reaction{},
		derivedBy:  map[string]*Derived{},
	}
	m.symbols = NewSymbolTable(m)
	return m
}

// EntityOption configures a reaction or derived quantity on insertion.
type EntityOption func(*entityOptions)

type entityOptions struct {
	math string
}

// WithMath sets the display markup of the entity itself.
func WithMath(markup string) EntityOption {
	return func(o *entityOptions) { o.math = markup }
}

func (m *Model) insertID(name string, kind Kind) error {
	if name == timeName {
		return fmt.Errorf("add %s %q: %w", kind, name, ErrProtectedName)
	}
	if existing, ok := m.ids[name]; ok {
		return fmt.Errorf("add %s %q: %w as %s", kind, name, ErrDuplicateName, existing)
	}
	m.ids[name] = kind
	return nil
}

func (m *Model) AddParameter(name string, value float64) error {
	if err := m.insertID(name, KindParameter); err != nil {
		return err
	}
	m.parameters = append(m.parameters, name)
	m.values[name] = value
	return nil
}

func (m *Model) AddVariable(name string, initial float64) error {
	if err := m.insertID(name, KindVariable); err != nil {
		return err
	}
	m.variables = append(m.variables, name)
	m.initial[name] = initial
	return nil
}

func checkArity(kind Kind, name string, rule *Rule, args []string) error {
	if rule == nil {
		return fmt.Errorf("add %s %q: %w: missing rule", kind, name, ErrInvalidRule)
	}
	if rule.Arity() != len(args) {
		return fmt.Errorf("add %s %q: %w: rule takes %d arguments, got %d",
			kind, name, ErrArityMismatch, rule.Arity(), len(args))
	}
	return nil
}

func (m *Model) AddReaction(name string, rule *Rule, args []string, stoich map[string]Coefficient, opts ...EntityOption) error {
	if err := checkArity(KindReaction, name, rule, args); err != nil {
		return err
	}
	for variable, c := range stoich {
		if c.IsSymbolic() {
			if err := checkArity(KindReaction, name+"/"+variable, c.Rule, c.Args); err != nil {
				return err
			}
		} else if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return fmt.Errorf("add reaction %q: %w: non-finite coefficient for %q", name, ErrInvalidRule, variable)
		}
	}
	if err := m.insertID(name, KindReaction); err != nil {
		return err
	}
	var o entityOptions
	for _, opt := range opts {
		opt(&o)
	}
	m.reactions = append(m.reactions, name)
	m.reactionBy[name] = &Reaction{
		Name:          name,
		Rule:          rule,
		Args:          slices.Clone(args),
		Stoichiometry: maps.Clone(stoich),
		Math:          o.math,
	}
	return nil
}

func (m *Model) AddDerived(name string, rule *Rule, args []string, opts ...EntityOption) error {
	if err := checkArity(KindDerived, name, rule, args); err != nil {
		return err
	}
	if err := m.insertID(name, KindDerived); err != nil {
		return err
	}
	var o entityOptions
	for _, opt := range opts {
		opt(&o)
	}
	m.derived = append(m.derived, name)
	m.derivedBy[name] = &Derived{Name: name, Rule: rule, Args: slices.Clone(args), Math: o.math}
	return nil
}

// SetMath updates the display markup of a reaction or derived quantity.
// An empty markup clears it.
func (m *Model) SetMath(name, markup string) error {
	switch m.ids[name] {
	case KindReaction:
		m.reactionBy[name].Math = markup
	case KindDerived:
		m.derivedBy[name].Math = markup
	case KindParameter, KindVariable:
		return fmt.Errorf("set math %q: %w: %s", name, ErrWrongKind, m.ids[name])
	default:
		return newNameError("set math", name)
	}
	return nil
}

// Remove deletes an identifier of any kind. It fails with ErrNameInUse while
// a reaction or derived quantity still refers to the name. Symbol table
// entries for it are left in place.
func (m *Model) Remove(name string) error {
	kind, ok := m.ids[name]
	if !ok {
		return newNameError("remove", name)
	}
	if user := m.referrer(name); user != "" {
		return fmt.Errorf("remove %s %q: %w by %q", kind, name, ErrNameInUse, user)
	}
	drop := func(names []string) []string {
		return slices.DeleteFunc(names, func(n string) bool { return n == name })
	}
	switch kind {
	case KindParameter:
		m.parameters = drop(m.parameters)
		delete(m.values, name)
	case KindVariable:
		m.variables = drop(m.variables)
		delete(m.initial, name)
	case KindReaction:
		m.reactions = drop(m.reactions)
		delete(m.reactionBy, name)
	case KindDerived:
		m.derived = drop(m.derived)
		delete(m.derivedBy, name)
	}
	delete(m.ids, name)
	return nil
}

// referrer returns the first reaction or derived quantity, in declaration
// order, whose arguments or stoichiometry mention name.
func (m *Model) referrer(name string) string {
	for _, dn := range m.derived {
		if slices.Contains(m.derivedBy[dn].Args, name) {
			return dn
		}
	}
	for _, rn := range m.reactions {
		rx := m.reactionBy[rn]
		if slices.Contains(rx.Args, name) {
			return rn
		}
		for variable, c := range rx.Stoichiometry {
			if variable == name || slices.Contains(c.Args, name) {
				return rn
			}
		}
	}
	return ""
}

func (m *Model) Has(name string) bool { _, ok := m.ids[name]; return ok }

func (m *Model) Kind(name string) (Kind, bool) {
	k, ok := m.ids[name]
	return k, ok
}

func (m *Model) ParameterNames() []string { return slices.Clone(m.parameters) }
func (m *Model) VariableNames() []string  { return slices.Clone(m.variables) }
func (m *Model) ReactionNames() []string  { return slices.Clone(m.reactions) }
func (m *Model) DerivedNames() []string   { return slices.Clone(m.derived) }
func (m *Model) Symbols() *SymbolTable    { return m.symbols }

func (m *Model) Reaction(name string) (*Reaction, bool) {
	r, ok := m.reactionBy[name]
	return r, ok
}

func (m *Model) Derived(name string) (*Derived, bool) {
	d, ok := m.derivedBy[name]
	return d, ok
}

// Value returns a parameter value or a variable's initial condition.
func (m *Model) Value(name string) (float64, bool) {
	if v, ok := m.values[name]; ok {
		return v, true
	}
	v, ok := m.initial[name]
	return v, ok
}
