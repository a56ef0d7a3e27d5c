package bridge

import (
	"reflect"

	"github.com/feather-lang/bridge/host"
)

// resolve finds the handle boxed by v, directly or through the instance
// field of a wrapper table. exposed is the type name the value shows to
// script.
func (b *Bridge) resolve(v *Obj) (h *Handle, exposed string, err error) {
	if u, ok := v.InternalRep().(*UserdataType); ok {
		return u.h, u.name, nil
	}
	if _, ok := v.InternalRep().(*TableType); ok {
		if u, ok := Field(v, b.field).InternalRep().(*UserdataType); ok {
			return u.h, u.name, nil
		}
	}
	return nil, "", &Error{Kind: ErrNotAHandle, Got: v.Type()}
}

// CheckedGet returns the value boxed by v as a T.
//
// It fails with ErrUseAfterFree if the native value was destroyed and
// requireLive is set; without requireLive a freed handle yields the zero
// value and no error, for use while the runtime is collecting. It fails with
// ErrNotAHandle if v boxes nothing, and with ErrTypeMismatch if the boxed
// type is neither T's registered type nor derived from it. Script nil is
// accepted only for nillable T.
//
// Host managed values are matched by their dynamic Go type first and by
// their exposed type name second. Other values are matched by name, against
// the tag they were pushed with, whenever T is bound with DefineType.
func CheckedGet[T any](b *Bridge, v *Obj, requireLive bool) (T, error) {
	var zero T
	rt := reflect.TypeFor[T]()
	want, bound := b.types.NameOf(rt)
	if !bound {
		want = rt.String()
	}

	if v == nil {
		if nillable(rt) {
			return zero, nil
		}
		return zero, &Error{Kind: ErrNilRejected, Want: want}
	}
	h, exposed, err := b.resolve(v)
	if err != nil {
		return zero, err
	}
	if h.Freed() || h.finalized {
		if requireLive {
			return zero, &Error{Kind: ErrUseAfterFree, Got: h.tag, Addr: h.addr}
		}
		return zero, nil
	}
	val := unboxGet(h)
	mismatch := &Error{Kind: ErrTypeMismatch, Want: want, Got: exposed, Addr: h.addr}

	if h.Has(IsHostOwned) {
		if m, ok := val.(host.Managed); ok && !m.Header().IsValid() {
			if requireLive {
				return zero, &Error{Kind: ErrUseAfterFree, Got: h.tag, Addr: h.addr}
			}
			return zero, nil
		}
		if t, ok := val.(T); ok {
			return t, nil
		}
		if bound && b.types.IsBaseTypeOf(exposed, want) {
			if t, ok := upcast[T](b.types, val); ok {
				return t, nil
			}
		}
		return zero, mismatch
	}

	if !bound {
		if t, ok := val.(T); ok {
			return t, nil
		}
		return zero, mismatch
	}
	if h.tag != want && !b.types.IsBaseTypeOf(h.tag, want) {
		return zero, mismatch
	}
	if t, ok := upcast[T](b.types, val); ok {
		return t, nil
	}
	return zero, mismatch
}

// CheckArg checks argument pos (1-based) of a bound function call.
// A missing argument is script nil.
func CheckArg[T any](b *Bridge, args []*Obj, pos int) (T, error) {
	var v *Obj
	if pos >= 1 && pos <= len(args) {
		v = args[pos-1]
	}
	t, err := CheckedGet[T](b, v, true)
	if err != nil {
		return t, at(err, pos)
	}
	return t, nil
}

// CheckSelf checks the receiver of a bound method call.
func CheckSelf[T any](b *Bridge, args []*Obj) (T, error) {
	return CheckArg[T](b, args, 1)
}

// CheckOpt is the optional variant of CheckedGet: it returns def and false
// instead of failing. Script nil yields def and false as well.
func CheckOpt[T any](b *Bridge, v *Obj, def T) (T, bool) {
	if v == nil {
		return def, false
	}
	t, err := CheckedGet[T](b, v, true)
	if err != nil {
		return def, false
	}
	return t, true
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}
