// internal/facts/store.go

package facts

import (
	"fmt"
	"sort"
)

// Reader gives read access to facts.
type Reader interface {
	Get(name string) (Value, bool)
}

// Store holds the facts of a single evaluation run. It is not safe for
// concurrent use; every run owns its own Store.
type Store struct {
	values map[string]Value
}

// NewStore creates an empty fact store.
func NewStore() *Store {
	return &Store{values: make(map[string]Value)}
}

// FromMap seeds a store from caller-supplied input. Null entries are skipped.
func FromMap(input map[string]interface{}) (*Store, error) {
	s := NewStore()
	for name, raw := range input {
		v, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("fact %q: %w", name, err)
		}
		if v == nil {
			continue
		}
		s.values[name] = v
	}
	return s, nil
}

// Set writes a fact and reports whether the stored value changed. Null and
// unsupported values are ignored; facts are never deleted.
func (s *Store) Set(name string, v interface{}) bool {
	nv, err := Normalize(v)
	if err != nil || nv == nil {
		return false
	}
	if old, ok := s.values[name]; ok && Equal(old, nv) {
		return false
	}
	s.values[name] = nv
	return true
}

// Get returns the value stored under name.
func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Len returns the number of stored facts.
func (s *Store) Len() int {
	return len(s.values)
}

// Names returns the fact names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the stored facts.
func (s *Store) Snapshot() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for name, v := range s.values {
		out[name] = clone(v)
	}
	return out
}
