package bridge

import (
	"fmt"
	"reflect"
	"runtime"
)

// Addr is the native address of a boxed value. It is an identity key only
// and never dereferenced; the boxed value itself is kept on the Handle.
type Addr uintptr

// AddrOf returns the address of a pointer-like value (pointer, map, chan,
// func, slice or unsafe.Pointer). It returns 0 for nil and for values that
// have no address.
func AddrOf(v any) Addr {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Slice:
		return Addr(rv.Pointer())
	}
	return 0
}

func (a Addr) String() string { return fmt.Sprintf("%#x", uintptr(a)) }

// Flags are independent handle bits.
type Flags uint8

const (
	// AutoRelease makes reclamation of the wrapper run the release logic
	// of the handle's ownership kind.
	AutoRelease Flags = 1 << iota
	// HadFree marks the native value as destroyed. It is never cleared.
	HadFree
	// IsHostOwned marks a value of the host's managed object system.
	IsHostOwned
)

func (f Flags) String() string {
	s := ""
	for _, n := range []struct {
		f    Flags
		name string
	}{{AutoRelease, "autorelease"}, {HadFree, "hadfree"}, {IsHostOwned, "hostowned"}} {
		if f&n.f != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// OwnershipKind classifies how a boxed value's lifetime is managed.
type OwnershipKind uint8

const (
	// KindRaw is a plain native pointer; the script owns it only with
	// AutoRelease.
	KindRaw OwnershipKind = iota
	// KindSharedNotThreadSafe is a boxed Shared reference with a plain count.
	KindSharedNotThreadSafe
	// KindSharedThreadSafe is a boxed Shared reference with an atomic count.
	KindSharedThreadSafe
	// KindHostManaged is an object of the host's managed object system.
	KindHostManaged
)

func (k OwnershipKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindSharedNotThreadSafe:
		return "shared"
	case KindSharedThreadSafe:
		return "shared-threadsafe"
	case KindHostManaged:
		return "host"
	default:
		return "unknown"
	}
}

// Ownership is the boxed ownership variant of a Handle. The concrete
// variants are rawOwnership, hostOwnership and *sharedOwnership; finalize
// selects the release logic with a type switch.
type Ownership interface {
	Kind() OwnershipKind
	isOwnership()
}

type rawOwnership struct{}

func (rawOwnership) Kind() OwnershipKind { return KindRaw }
func (rawOwnership) isOwnership()        {}

type hostOwnership struct{}

func (hostOwnership) Kind() OwnershipKind { return KindHostManaged }
func (hostOwnership) isOwnership()        {}

// Raw is the ownership of a plain native pointer. With AutoRelease the
// script owns it and the type's Finalize callback runs on reclamation.
func Raw() Ownership { return rawOwnership{} }

// HostManaged is the ownership of an object living in the host's managed
// object system. With AutoRelease the handle roots the object for as long
// as the wrapper lives.
func HostManaged() Ownership { return hostOwnership{} }

// Handle is one boxed exposure of a native value.
type Handle struct {
	addr      Addr
	value     any
	tag       string
	flags     Flags
	own       Ownership
	parent    Addr
	finalized bool
	tracked   bool
	cleanup   *runtime.Cleanup
}

func (h *Handle) Addr() Addr          { return h.addr }
func (h *Handle) Tag() string         { return h.tag }
func (h *Handle) Flags() Flags        { return h.flags }
func (h *Handle) Has(f Flags) bool    { return h.flags&f == f }
func (h *Handle) Kind() OwnershipKind { return h.own.Kind() }
func (h *Handle) Freed() bool         { return h.flags&HadFree != 0 }
func (h *Handle) Finalized() bool     { return h.finalized }

// Parent returns the address this handle's storage is aliased into, or 0.
func (h *Handle) Parent() Addr { return h.parent }

// Value returns the boxed native value (for shared handles, the target of
// the boxed reference). It does not check HadFree; use CheckedGet.
func (h *Handle) Value() any { return unboxGet(h) }

// markFreed sets HadFree. It reports whether the flag was newly set.
func (h *Handle) markFreed() bool {
	if h.flags&HadFree != 0 {
		return false
	}
	h.flags |= HadFree
	return true
}

func (h *Handle) String() string {
	return fmt.Sprintf("<%s:%s %s %s>", h.tag, h.addr, h.own.Kind(), h.flags)
}
