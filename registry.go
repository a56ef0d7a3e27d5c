package bridge

import (
	"fmt"
	"reflect"
	"slices"
)

// typeNode is one registered type name and its ordered direct bases.
type typeNode struct {
	name  string
	bases []string
	def   TypeDef
	ready bool // Setup has run
}

// TypeRegistry holds the per-runtime type hierarchy.
type TypeRegistry struct {
	nodes   map[string]*typeNode
	aliases map[string]string       // alias -> canonical name
	goTypes map[reflect.Type]string // bound Go type -> name
	paths   map[castKey][]int       // cached embedding paths for casts
}

func newTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		nodes:   make(map[string]*typeNode),
		aliases: make(map[string]string),
		goTypes: make(map[reflect.Type]string),
		paths:   make(map[castKey][]int),
	}
}

// TypeDef describes a type exposed to script.
type TypeDef struct {
	// Bases lists the direct base type names, in order.
	Bases []string

	// Aliases are extra names that match this type in name based checks.
	Aliases []string

	// Finalize runs when the wrapper of an AutoRelease raw value of this
	// type is reclaimed, unless the host already destroyed the value.
	Finalize func(v any)

	// Setup runs once, on the first push of a value with this tag. It may
	// push values itself.
	Setup func(b *Bridge)
}

// RegisterType adds name with the given bases. Registering the same name
// again with the same bases is a no-op; different bases fail with
// ErrTypeConflict. Bases need not be registered yet.
func (r *TypeRegistry) RegisterType(name string, bases ...string) error {
	return r.register(name, TypeDef{Bases: bases})
}

func (r *TypeRegistry) register(name string, def TypeDef) error {
	if name == "" {
		return &Error{Kind: ErrTypeConflict, Msg: "empty type name"}
	}
	if canon, ok := r.aliases[name]; ok {
		return &Error{Kind: ErrTypeConflict, Want: name, Msg: fmt.Sprintf("%q is an alias of %q", name, canon)}
	}
	if n, ok := r.nodes[name]; ok {
		if !slices.Equal(n.bases, def.Bases) {
			return &Error{Kind: ErrTypeConflict, Want: name,
				Msg: fmt.Sprintf("type %q already registered with bases %v", name, n.bases)}
		}
		if def.Finalize != nil {
			n.def.Finalize = def.Finalize
		}
		if def.Setup != nil {
			n.def.Setup = def.Setup
		}
	} else {
		r.nodes[name] = &typeNode{name: name, bases: slices.Clone(def.Bases), def: def}
	}
	for _, a := range def.Aliases {
		if err := r.Alias(a, name); err != nil {
			return err
		}
	}
	return nil
}

// Alias makes alias match name in every name based check.
func (r *TypeRegistry) Alias(alias, name string) error {
	if _, ok := r.nodes[alias]; ok {
		return &Error{Kind: ErrTypeConflict, Want: alias, Msg: fmt.Sprintf("alias %q is a registered type", alias)}
	}
	if prev, ok := r.aliases[alias]; ok && prev != name {
		return &Error{Kind: ErrTypeConflict, Want: alias, Msg: fmt.Sprintf("alias %q already names %q", alias, prev)}
	}
	r.aliases[alias] = name
	return nil
}

// canonical resolves an alias to its type name.
func (r *TypeRegistry) canonical(name string) string {
	if c, ok := r.aliases[name]; ok {
		return c
	}
	return name
}

// Known reports whether name (or the type it aliases) is registered.
func (r *TypeRegistry) Known(name string) bool {
	_, ok := r.nodes[r.canonical(name)]
	return ok
}

// Bases returns the direct bases of name.
func (r *TypeRegistry) Bases(name string) []string {
	if n, ok := r.nodes[r.canonical(name)]; ok {
		return slices.Clone(n.bases)
	}
	return nil
}

// Ancestors returns name followed by its transitive bases, breadth first,
// each name once.
func (r *TypeRegistry) Ancestors(name string) []string {
	name = r.canonical(name)
	seen := map[string]bool{name: true}
	chain := []string{name}
	for i := 0; i < len(chain); i++ {
		n, ok := r.nodes[chain[i]]
		if !ok {
			continue
		}
		for _, b := range n.bases {
			b = r.canonical(b)
			if !seen[b] {
				seen[b] = true
				chain = append(chain, b)
			}
		}
	}
	return chain
}

// IsBaseTypeOf reports whether target is candidate or one of its
// transitive bases.
func (r *TypeRegistry) IsBaseTypeOf(candidate, target string) bool {
	if candidate == "" || target == "" {
		return false
	}
	target = r.canonical(target)
	return slices.Contains(r.Ancestors(candidate), target)
}

// NameOf returns the name bound to a Go type by DefineType.
func (r *TypeRegistry) NameOf(t reflect.Type) (string, bool) {
	name, ok := r.goTypes[t]
	return name, ok
}

func (r *TypeRegistry) finalizer(tag string) func(any) {
	if n, ok := r.nodes[r.canonical(tag)]; ok {
		return n.def.Finalize
	}
	return nil
}

// setupOnce returns the Setup hook for tag the first time it is asked.
func (r *TypeRegistry) setupOnce(tag string) func(*Bridge) {
	n, ok := r.nodes[r.canonical(tag)]
	if !ok || n.ready {
		return nil
	}
	n.ready = true
	return n.def.Setup
}

// DefineType registers name and binds the Go type T to it, so that
// CheckedGet[T] checks values against name's hierarchy.
func DefineType[T any](b *Bridge, name string, def TypeDef) error {
	if err := b.types.register(name, def); err != nil {
		return err
	}
	t := reflect.TypeFor[T]()
	if prev, ok := b.types.goTypes[t]; ok && prev != name {
		return &Error{Kind: ErrTypeConflict, Want: name, Msg: fmt.Sprintf("%v already bound to %q", t, prev)}
	}
	b.types.goTypes[t] = name
	b.log.Debug("define type", "name", name, "go", t.String(), "bases", def.Bases)
	return nil
}

// MatchType reports whether v is a boxed value whose type tag is
// name or derives from it.
func (b *Bridge) MatchType(v *Obj, name string) bool {
	h, _, err := b.resolve(v)
	if err != nil {
		return false
	}
	return h.tag == name || b.types.IsBaseTypeOf(h.tag, name)
}
