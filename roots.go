package bridge

import "github.com/feather-lang/bridge/host"

// Host is the managed object system the bridge roots values in.
// *host.Heap implements it.
type Host interface {
	AddRoot(m host.Managed) host.RootToken
	RemoveRoot(t host.RootToken)
	AddReferencer(r host.Referencer)
	RemoveReferencer(r host.Referencer)
	OnDestroy(fn func(host.Managed)) (cancel func())
}

type rootEntry struct {
	h     *Handle
	token host.RootToken
}

// rootRegistrar keeps strongly exposed host values reachable for the host
// collector while script holds their wrappers.
type rootRegistrar struct {
	host    Host
	roots   map[Addr][]rootEntry
	buffers map[*Handle]host.Referencer
}

func newRootRegistrar(h Host) *rootRegistrar {
	return &rootRegistrar{
		host:    h,
		roots:   make(map[Addr][]rootEntry),
		buffers: make(map[*Handle]host.Referencer),
	}
}

// wantsRoot reports whether h is a strongly exposed host managed or shared
// value.
func wantsRoot(h *Handle) bool {
	if h.flags&AutoRelease == 0 {
		return false
	}
	switch h.own.(type) {
	case hostOwnership, *sharedOwnership:
		return true
	}
	return false
}

// addRoot roots h's value if it is a managed object. It reports whether a
// root was registered.
func (r *rootRegistrar) addRoot(addr Addr, h *Handle) bool {
	if r.host == nil || !wantsRoot(h) {
		return false
	}
	m, ok := unboxGet(h).(host.Managed)
	if !ok {
		return false
	}
	t := r.host.AddRoot(m)
	if t == 0 {
		return false
	}
	r.roots[addr] = append(r.roots[addr], rootEntry{h: h, token: t})
	return true
}

// removeRoot drops h's root, if any.
func (r *rootRegistrar) removeRoot(h *Handle) bool {
	entries := r.roots[h.addr]
	for i, e := range entries {
		if e.h != h {
			continue
		}
		r.host.RemoveRoot(e.token)
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(r.roots, h.addr)
		} else {
			r.roots[h.addr] = entries
		}
		return true
	}
	return false
}

func (r *rootRegistrar) rooted(addr Addr) bool { return len(r.roots[addr]) > 0 }

func (r *rootRegistrar) len() int {
	n := 0
	for _, e := range r.roots {
		n += len(e)
	}
	return n
}
