package bridge

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/feather-lang/bridge/host"
)

// PushHandle boxes v for script, or returns the wrapper already boxing it.
//
// The identity cache is consulted first: while a wrapper for v's address is
// reachable, pushing v again under the same tag and ownership kind returns
// that same *Obj. A cached borrowed wrapper never stands in for an owning
// push (AutoRelease); such a push, like one under another tag, is boxed
// uncached.
// An empty tag means the name bound to v's Go type by DefineType, or the
// Go type's name. Pushing nil yields the script nil value (nil, nil).
// HadFree cannot be set by the caller.
func (b *Bridge) PushHandle(v any, tag string, own Ownership, flags Flags) (*Obj, error) {
	if own == nil {
		own = Raw()
	}
	return b.push(v, AddrOf(v), tag, own.Kind(), func() Ownership { return own }, flags)
}

// PushOwned boxes a raw value the script owns: reclaiming the wrapper runs
// the type's Finalize callback.
func (b *Bridge) PushOwned(v any, tag string) (*Obj, error) {
	return b.PushHandle(v, tag, Raw(), AutoRelease)
}

// PushObject boxes a host managed object strongly: the object is rooted in
// the host collector until the wrapper is reclaimed.
func (b *Bridge) PushObject(m host.Managed, tag string) (*Obj, error) {
	if err := checkLive(m, tag); err != nil {
		return nil, err
	}
	return b.PushHandle(m, tag, HostManaged(), AutoRelease|IsHostOwned)
}

// PushBorrowed boxes a host managed object without rooting it. Its handle
// is invalidated when the host destroys the object.
func (b *Bridge) PushBorrowed(m host.Managed, tag string) (*Obj, error) {
	if err := checkLive(m, tag); err != nil {
		return nil, err
	}
	return b.PushHandle(m, tag, HostManaged(), IsHostOwned)
}

func checkLive(m host.Managed, tag string) error {
	if isNil(m) {
		return nil
	}
	if !m.Header().IsValid() {
		return &Error{Kind: ErrUseAfterFree, Got: tag, Addr: AddrOf(m)}
	}
	return nil
}

// PushAndLink boxes v, a value aliasing storage owned by parent (an
// embedded field, an element). When parent is destroyed, v's handle is
// invalidated with it. Linking to a parent the host already destroyed fails
// with ErrUseAfterFree.
func (b *Bridge) PushAndLink(parent any, v any, tag string) (*Obj, error) {
	if p := AddrOf(parent); p != 0 && !b.closed && b.freedAt(p) {
		return nil, &Error{Kind: ErrUseAfterFree, Got: tag, Addr: p,
			Msg: fmt.Sprintf("parent %s of %s had been freed, can't be used", p, tag)}
	}
	obj, err := b.PushHandle(v, tag, Raw(), 0)
	if err != nil || obj == nil {
		return obj, err
	}
	h, _ := obj.Handle()
	if p := AddrOf(parent); p != 0 && h.parent == 0 {
		b.links.link(p, h)
		b.log.Debug("link", "parent", p, "child", h.addr, "tag", h.tag)
	}
	return obj, nil
}

// freedAt reports whether addr is known destroyed: it is boxed, and every
// handle boxing it is freed.
func (b *Bridge) freedAt(addr Addr) bool {
	b.drain()
	hs := b.arena.at(addr)
	for _, h := range hs {
		if !h.Freed() {
			return false
		}
	}
	return len(hs) > 0
}

// satisfies reports whether cached handle h can be returned for a push of
// tag with the given kind and flags.
func (h *Handle) satisfies(tag string, kind OwnershipKind, flags Flags) bool {
	return h.tag == tag && h.own.Kind() == kind && flags&AutoRelease&^h.flags == 0
}

func (b *Bridge) push(v any, addr Addr, tag string, kind OwnershipKind, own func() Ownership, flags Flags) (*Obj, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if isNil(v) {
		return nil, nil
	}
	b.drain()
	if tag == "" {
		tag = b.tagFor(v)
	}

	cacheable := addr != 0
	if cacheable {
		if obj, h, ok := b.cache.lookup(addr); ok {
			if h.satisfies(tag, kind, flags) {
				b.log.Debug("cache hit", "addr", addr, "tag", tag)
				return obj, nil
			}
			// a first embedded field shares its parent's address, or the
			// cached box does not own what this push must own
			cacheable = false
		}
	}

	if b.maxLive > 0 && b.arena.len() >= b.maxLive {
		return nil, &Error{Kind: ErrOutOfMemory, Want: tag, Addr: addr,
			Msg: fmt.Sprintf("handle quota of %d exhausted", b.maxLive)}
	}

	h := &Handle{addr: addr, value: v, tag: tag, flags: flags &^ HadFree, own: own()}
	obj := newUserdata(h)

	if setup := b.types.setupOnce(tag); setup != nil {
		setup(b)
	}

	if cacheable {
		winner, inserted := b.cache.insert(addr, obj, h)
		if !inserted {
			wh, _ := winner.Handle()
			if wh.satisfies(tag, kind, flags) {
				b.discard(h)
				b.log.Debug("re-entrant push", "addr", addr, "tag", tag)
				return winner, nil
			}
		}
	}

	b.arena.add(h)
	if b.roots.addRoot(addr, h) {
		b.log.Debug("add root", "addr", addr, "tag", tag)
	}
	b.attach(obj, h)
	b.log.Debug("box", "addr", addr, "tag", tag, "kind", h.own.Kind().String(), "flags", h.flags.String())
	return obj, nil
}

// discard undoes a box that lost the identity race before it was exposed.
func (b *Bridge) discard(h *Handle) {
	h.finalized = true
	if s, ok := h.own.(*sharedOwnership); ok {
		s.releaseOnce()
	}
}

// attach watches obj with the Go collector. The cleanup only queues the
// handle; finalization happens on the bridge's thread.
func (b *Bridge) attach(obj *Obj, h *Handle) {
	if !b.collector {
		return
	}
	q := b.pending
	c := runtime.AddCleanup(obj, func(h *Handle) { q.push(h) }, h)
	h.cleanup = &c
}

func (b *Bridge) tagFor(v any) string {
	t := reflect.TypeOf(v)
	if name, ok := b.types.NameOf(t); ok {
		return name
	}
	return t.String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Slice, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
