package bridge

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML description of a type hierarchy:
//
//	types:
//	  - name: Actor
//	  - name: Pawn
//	    bases: [Actor]
//	    aliases: [APawn]
type Manifest struct {
	Types []TypeSpec `yaml:"types"`
}

// TypeSpec is one manifest entry.
type TypeSpec struct {
	Name    string   `yaml:"name"`
	Bases   []string `yaml:"bases,omitempty"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// LoadManifest decodes a manifest. Unknown fields are rejected.
func LoadManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &m, nil
		}
		return nil, fmt.Errorf("bridge: decode manifest: %w", err)
	}
	return &m, nil
}

// Apply registers every type of m, in order.
func (r *TypeRegistry) Apply(m *Manifest) error {
	for i, t := range m.Types {
		if err := r.register(t.Name, TypeDef{Bases: t.Bases, Aliases: t.Aliases}); err != nil {
			return fmt.Errorf("bridge: manifest type %d (%q): %w", i, t.Name, err)
		}
	}
	return nil
}
