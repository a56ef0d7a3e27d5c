package bridge

import "weak"

type cacheEntry struct {
	ref weak.Pointer[Obj]
	h   *Handle
}

// identityCache maps native addresses to the one live wrapper boxing them.
// Wrappers are held weakly: a cached wrapper stays alive only through
// script references, and its entry is removed once its reclamation is seen.
type identityCache struct {
	entries map[Addr]cacheEntry
}

func newIdentityCache() *identityCache {
	return &identityCache{entries: make(map[Addr]cacheEntry)}
}

// lookup returns the live wrapper cached for addr.
func (c *identityCache) lookup(addr Addr) (*Obj, *Handle, bool) {
	e, ok := c.entries[addr]
	if !ok {
		return nil, nil, false
	}
	obj := e.ref.Value()
	if obj == nil {
		return nil, nil, false
	}
	return obj, e.h, true
}

// insert caches obj for addr. If a live wrapper is already cached (a
// re-entrant push got there first) that earlier wrapper wins and is
// returned with inserted false.
func (c *identityCache) insert(addr Addr, obj *Obj, h *Handle) (winner *Obj, inserted bool) {
	if prev, _, ok := c.lookup(addr); ok {
		return prev, false
	}
	c.entries[addr] = cacheEntry{ref: weak.Make(obj), h: h}
	return obj, true
}

// remove drops the entry for addr if it belongs to h. A late removal for a
// collected wrapper never evicts its successor.
func (c *identityCache) remove(addr Addr, h *Handle) bool {
	e, ok := c.entries[addr]
	if !ok || e.h != h {
		return false
	}
	delete(c.entries, addr)
	return true
}

func (c *identityCache) len() int { return len(c.entries) }
