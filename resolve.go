package kinetex

import "strings"

// SymbolSource is one naming layer consulted while resolving an identifier.
type SymbolSource interface {
	Lookup(name string) (markup string, ok bool)
}

// Overrides is a caller-supplied mapping from identifier to markup. Empty
// values count as absent.
type Overrides map[string]string

func (o Overrides) Lookup(name string) (string, bool) {
	m, ok := o[name]
	return m, ok && m != ""
}

// SourceFunc adapts a function to SymbolSource.
type SourceFunc func(name string) (string, bool)

func (f SourceFunc) Lookup(name string) (string, bool) { return f(name) }

// Resolve returns the markup of the first source that knows name, falling
// back to the escaped identifier. Sources are consulted in order, so callers
// pass them highest priority first.
func Resolve(name string, sources ...SymbolSource) string {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if m, ok := src.Lookup(name); ok {
			return m
		}
	}
	return Escape(name)
}

var specialChars = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`#`, `\#`,
	`$`, `\$`,
	`%`, `\%`,
	`&`, `\&`,
	`{`, `\{`,
	`}`, `\}`,
	`_`, `\_`,
	`^`, `\^{}`,
	`~`, `\~{}`,
)

// Escape makes a raw identifier safe to typeset. The first underscore opens a
// subscript group, so k_cat becomes k_{cat} and k_cat_f becomes k_{cat\_f}.
func Escape(name string) string {
	base, sub, ok := strings.Cut(name, "_")
	if !ok || base == "" || sub == "" {
		return specialChars.Replace(name)
	}
	return specialChars.Replace(base) + "_{" + specialChars.Replace(sub) + "}"
}
