// Package modelfile loads kinetic models from YAML documents.
//
// A document lists parameters, variables, derived quantities and reactions
// in declaration order. Rule bodies use the expression syntax accepted by
// kinetex.ParseRule.
//
//	parameters:
//	  - {name: k1, value: 1.0}
//	variables:
//	  - {name: S, initial: 1}
//	reactions:
//	  - name: v1
//	    params: [s, k]
//	    body: k * s
//	    args: [S, k1]
//	    stoichiometry: {S: -1, P: 1}
//	symbols:
//	  k1: k_{1}
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/kinetex"
)

// ErrInvalidFile is returned for documents that do not describe a model.
var ErrInvalidFile = errors.New("invalid model file")

// timeArg may appear as a rule argument without being declared.
const timeArg = "time"

type File struct {
	Parameters []Parameter       `yaml:"parameters"`
	Variables  []Variable        `yaml:"variables"`
	Derived    []Derived         `yaml:"derived"`
	Reactions  []Reaction        `yaml:"reactions"`
	Symbols    map[string]string `yaml:"symbols"`
}

type Parameter struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

type Variable struct {
	Name    string  `yaml:"name"`
	Initial float64 `yaml:"initial"`
}

// RuleSpec is a rule written out in the document.
type RuleSpec struct {
	Params []string `yaml:"params"`
	Body   string   `yaml:"body"`
	Args   []string `yaml:"args"`
}

type Derived struct {
	Name     string `yaml:"name"`
	RuleSpec `yaml:",inline"`
	Math     string `yaml:"math"`
}

type Reaction struct {
	Name          string                   `yaml:"name"`
	RuleSpec      `yaml:",inline"`
	Stoichiometry map[string]Stoichiometry `yaml:"stoichiometry"`
	Math          string                   `yaml:"math"`
}

// Stoichiometry is one entry of a reaction's stoichiometry. In the document
// it is a number, an identifier, or a rule mapping.
type Stoichiometry struct {
	Value  float64
	Symbol string
	Rule   *RuleSpec
}

func (s *Stoichiometry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int", "!!float":
			return node.Decode(&s.Value)
		case "!!str":
			if node.Value == "" {
				return fmt.Errorf("line %d: %w: empty stoichiometry", node.Line, ErrInvalidFile)
			}
			s.Symbol = node.Value
			return nil
		}
	case yaml.MappingNode:
		var spec RuleSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		s.Rule = &spec
		return nil
	}
	return fmt.Errorf("line %d: %w: stoichiometry must be a number, a name or a rule", node.Line, ErrInvalidFile)
}

func (s Stoichiometry) coefficient() (kinetex.Coefficient, error) {
	switch {
	case s.Rule != nil:
		rule, err := kinetex.ParseRule(s.Rule.Params, s.Rule.Body)
		if err != nil {
			return kinetex.Coefficient{}, err
		}
		return kinetex.CoefRule(rule, s.Rule.Args...), nil
	case s.Symbol != "":
		return kinetex.CoefSymbol(s.Symbol), nil
	}
	return kinetex.Coef(s.Value), nil
}

// Parse decodes a document. Unknown keys are rejected. An empty document is
// an empty model.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return &f, nil
}

// Build creates the model the document describes. Every rule argument must
// name a declared identifier.
func (f *File) Build() (*kinetex.Model, error) {
	m := kinetex.NewModel()
	for _, p := range f.Parameters {
		if err := m.AddParameter(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	for _, v := range f.Variables {
		if err := m.AddVariable(v.Name, v.Initial); err != nil {
			return nil, err
		}
	}
	for _, d := range f.Derived {
		rule, err := kinetex.ParseRule(d.Params, d.Body)
		if err != nil {
			return nil, fmt.Errorf("derived %q: %w", d.Name, err)
		}
		if err := m.AddDerived(d.Name, rule, d.Args, kinetex.WithMath(d.Math)); err != nil {
			return nil, err
		}
	}
	for _, r := range f.Reactions {
		rule, err := kinetex.ParseRule(r.Params, r.Body)
		if err != nil {
			return nil, fmt.Errorf("reaction %q: %w", r.Name, err)
		}
		stoich := make(map[string]kinetex.Coefficient, len(r.Stoichiometry))
		for variable, s := range r.Stoichiometry {
			c, err := s.coefficient()
			if err != nil {
				return nil, fmt.Errorf("reaction %q: stoichiometry of %q: %w", r.Name, variable, err)
			}
			stoich[variable] = c
		}
		if err := m.AddReaction(r.Name, rule, r.Args, stoich, kinetex.WithMath(r.Math)); err != nil {
			return nil, err
		}
	}
	if err := checkReferences(m); err != nil {
		return nil, err
	}
	if err := m.Symbols().InsertMany(f.Symbols); err != nil {
		return nil, err
	}
	return m, nil
}

// checkReferences makes sure every argument and stoichiometry key names a
// declared identifier, suggesting the closest one when it does not.
func checkReferences(m *kinetex.Model) error {
	check := func(owner, name string) error {
		if name == timeArg || m.Has(name) {
			return nil
		}
		err := &kinetex.NameError{Op: owner, Name: name, Err: kinetex.ErrNameNotFound}
		if s := kinetex.Suggest(m, name); s != "" {
			return fmt.Errorf("%w (did you mean %q?)", err, s)
		}
		return err
	}
	for _, name := range m.DerivedNames() {
		d, _ := m.Derived(name)
		for _, a := range d.Args {
			if err := check("derived "+name, a); err != nil {
				return err
			}
		}
	}
	for _, name := range m.ReactionNames() {
		r, _ := m.Reaction(name)
		for _, a := range r.Args {
			if err := check("reaction "+name, a); err != nil {
				return err
			}
		}
		variables := make([]string, 0, len(r.Stoichiometry))
		for v := range r.Stoichiometry {
			variables = append(variables, v)
		}
		slices.Sort(variables)
		for _, v := range variables {
			if err := check("reaction "+name+" stoichiometry", v); err != nil {
				return err
			}
			if kind, _ := m.Kind(v); kind != kinetex.KindVariable {
				return fmt.Errorf("reaction %q: stoichiometry of %q: %w: is a %s", name, v, kinetex.ErrWrongKind, kind)
			}
			for _, a := range r.Stoichiometry[v].Args {
				if err := check("reaction "+name+" stoichiometry", a); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Load reads and builds the model stored at path.
func Load(fs afero.Fs, path string) (*kinetex.Model, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", kinetex.ErrIO, path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
