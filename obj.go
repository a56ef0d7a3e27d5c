package bridge

// Obj is a script value.
// It has a string representation and an optional internal representation.
// Script identity is pointer identity: two pushes of the same native value
// return the same *Obj while the first one is still reachable.
type Obj struct {
	bytes  string  // string representation ("" = regenerate from intrep)
	intrep ObjType // internal representation (nil = pure string)
}

// ObjType defines the core behavior for an internal representation.
type ObjType interface {
	// Name returns the type name (e.g., "table", or a userdata's type tag).
	Name() string

	// UpdateString regenerates string representation from this internal rep.
	UpdateString() string

	// Dup creates a copy of this internal representation.
	Dup() ObjType
}

// NewString creates a pure string value.
func NewString(s string) *Obj {
	return &Obj{bytes: s}
}

// String returns the string representation of the object.
func (o *Obj) String() string {
	if o == nil {
		return ""
	}
	if o.bytes == "" && o.intrep != nil {
		o.bytes = o.intrep.UpdateString()
	}
	return o.bytes
}

// Type returns the type name of the object.
// Returns "nil" for the nil value and "string" for pure strings.
func (o *Obj) Type() string {
	if o == nil {
		return "nil"
	}
	if o.intrep == nil {
		return "string"
	}
	return o.intrep.Name()
}

// InternalRep returns the internal representation of the object.
// Returns nil for pure string objects.
func (o *Obj) InternalRep() ObjType {
	if o == nil {
		return nil
	}
	return o.intrep
}

// invalidate clears the cached string representation.
// Should be called after mutating the internal representation.
func (o *Obj) invalidate() {
	if o == nil {
		return
	}
	o.bytes = ""
}

// Copy creates a shallow copy of the object.
// Userdata values are references: copying one returns the receiver, so a
// handle is never boxed by two script values.
func (o *Obj) Copy() *Obj {
	if o == nil {
		return nil
	}
	if _, ok := o.intrep.(*UserdataType); ok {
		return o
	}
	if o.intrep == nil {
		return &Obj{bytes: o.bytes}
	}
	return &Obj{bytes: o.bytes, intrep: o.intrep.Dup()}
}

// Handle returns the boxed handle of a userdata value.
func (o *Obj) Handle() (*Handle, bool) {
	if u, ok := o.InternalRep().(*UserdataType); ok {
		return u.h, true
	}
	return nil, false
}
