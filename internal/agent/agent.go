// Package agent holds agent definitions and their allow-listed binaries.
package agent

import (
	"errors"
	"sort"
)

// ErrNotFound is returned by Store.Get for an unknown agent.
var ErrNotFound = errors.New("agent not found")

// Binary is an executable an agent may invoke.
type Binary struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Definition describes one agent.
type Definition struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Binaries    []Binary `yaml:"binaries"`
}

// Store looks up agent definitions.
type Store interface {
	Get(id string) (*Definition, error)
}

// StaticStore is an in-memory Store. Its contents are fixed at
// construction, so it is safe for concurrent use.
type StaticStore struct {
	agents map[string]Definition
}

// NewStaticStore returns a store holding defs. Later duplicates of an ID
// replace earlier ones.
func NewStaticStore(defs []Definition) *StaticStore {
	agents := make(map[string]Definition, len(defs))
	for _, d := range defs {
		agents[d.ID] = d
	}
	return &StaticStore{agents: agents}
}

// Get returns a copy of the definition for id.
func (s *StaticStore) Get(id string) (*Definition, error) {
	d, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Binaries = append([]Binary(nil), d.Binaries...)
	return &d, nil
}

// IDs returns the known agent IDs in sorted order.
func (s *StaticStore) IDs() []string {
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
