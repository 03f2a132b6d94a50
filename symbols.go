package kinetex

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// IdentifierSet reports whether a name is known to a model.
type IdentifierSet interface {
	Has(name string) bool
}

// SymbolTable stores per-model display markup for identifiers. Entries are
// only ever added or removed explicitly and only for names the owning model
// knows.
type SymbolTable struct {
	ids     IdentifierSet
	entries map[string]string
}

func NewSymbolTable(ids IdentifierSet) *SymbolTable {
	return &SymbolTable{ids: ids, entries: map[string]string{}}
}

// Get returns a copy of all entries.
func (t *SymbolTable) Get() map[string]string { return maps.Clone(t.entries) }

// Lookup treats an empty entry as absent.
func (t *SymbolTable) Lookup(name string) (string, bool) {
	m, ok := t.entries[name]
	return m, ok && m != ""
}

func (t *SymbolTable) Len() int { return len(t.entries) }

func (t *SymbolTable) Insert(name, markup string) error {
	if !t.ids.Has(name) {
		return newNameError("insert symbol", name)
	}
	t.entries[name] = markup
	return nil
}

// InsertMany adds all entries or none: every name is checked before the
// table is touched.
func (t *SymbolTable) InsertMany(entries map[string]string) error {
	var missing []string
	for name := range entries {
		if !t.ids.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &NameError{
			Op:   "insert symbols",
			Name: strings.Join(missing, ", "),
			Err:  ErrNameNotFound,
		}
	}
	maps.Copy(t.entries, entries)
	return nil
}

func (t *SymbolTable) Remove(name string) error {
	if _, ok := t.entries[name]; !ok {
		return fmt.Errorf("remove symbol %q: %w", name, ErrKeyNotFound)
	}
	delete(t.entries, name)
	return nil
}
