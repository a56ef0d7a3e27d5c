// Package host is a small managed object system used as the host side of
// the bridge: objects with classes, a mark and sweep heap with roots, and
// referencers that report (and null) slots holding managed objects.
//
// It models the contract an engine-style host offers to embedded scripting:
// objects can be destroyed out of band, the collector only keeps what is
// reachable from roots, and composite values can hand their embedded
// references to the collector so they stay alive or get cleared.
package host

type objState uint8

const (
	stateUnregistered objState = iota
	stateLive
	statePendingKill
	stateDestroyed
)

// Managed is implemented by every value that lives in the host's managed
// object system. Embedding Object satisfies it.
type Managed interface {
	Header() *Object
}

// Object is the header shared by all managed values.
type Object struct {
	class *Class
	name  string
	heap  *Heap
	state objState
}

// Header returns the receiver, so that any struct embedding Object is
// Managed. The method cannot be named Object: the embedded field of that
// name would hide it.
func (o *Object) Header() *Object { return o }

// Class returns the object's class, nil before registration.
func (o *Object) Class() *Class {
	if o == nil {
		return nil
	}
	return o.class
}

// Name returns the object's instance name.
func (o *Object) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// IsValid reports whether the object is registered and not destroyed or
// pending destruction.
func (o *Object) IsValid() bool {
	return o != nil && o.state == stateLive
}

// Class is a node of the host's single inheritance class tree.
type Class struct {
	name  string
	super *Class
}

// NewClass creates a class deriving from super (nil for a root class).
func NewClass(name string, super *Class) *Class {
	return &Class{name: name, super: super}
}

func (c *Class) Name() string  { return c.name }
func (c *Class) Super() *Class { return c.super }

// IsChildOf reports whether c is base or derives from it.
func (c *Class) IsChildOf(base *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == base {
			return true
		}
	}
	return false
}

// IsA reports whether m is a valid object whose class derives from class.
func IsA(m Managed, class *Class) bool {
	if m == nil {
		return false
	}
	o := m.Header()
	return o.IsValid() && o.class.IsChildOf(class)
}

// Cast is the host's dynamic downcast: it succeeds only for valid objects
// whose dynamic type is T.
func Cast[T Managed](m Managed) (T, bool) {
	var zero T
	if m == nil || !m.Header().IsValid() {
		return zero, false
	}
	t, ok := m.(T)
	return t, ok
}
