package bridge

// NotifyFreed is called by the host when it destroys the native value at
// addr out of band. Every handle boxing addr is marked freed and dropped from
// the identity cache, and the invalidation cascades to linked children. The
// wrappers stay reachable; any further checked access fails with
// ErrUseAfterFree. It returns the number of handles newly marked.
func (b *Bridge) NotifyFreed(addr Addr) int {
	if b.closed || addr == 0 {
		return 0
	}
	b.drain()
	n := b.invalidate(addr)
	if n > 0 {
		b.log.Debug("notify freed", "addr", addr, "marked", n)
	}
	return n
}

// NotifyFreedObject is NotifyFreed for the address of v.
func (b *Bridge) NotifyFreedObject(v any) int {
	return b.NotifyFreed(AddrOf(v))
}

// Reclaim finalizes the handle boxed by v: the script runtime's hook for a
// collected wrapper. Reclaiming twice is a no-op.
func (b *Bridge) Reclaim(v *Obj) {
	if b.closed {
		return
	}
	h, _, err := b.resolve(v)
	if err != nil {
		return
	}
	b.finalize(h)
}

// Collect finalizes the handles whose wrappers the Go collector has
// reclaimed since the last call. It returns how many were finalized.
func (b *Bridge) Collect() int {
	if b.closed {
		return 0
	}
	return b.drain()
}

func (b *Bridge) drain() int {
	hs := b.pending.take()
	for _, h := range hs {
		b.finalize(h)
	}
	return len(hs)
}

// finalize runs h's release logic once, selected by its ownership variant,
// then removes every trace of h from the bridge.
func (b *Bridge) finalize(h *Handle) {
	if h.finalized {
		return
	}
	h.finalized = true
	if h.cleanup != nil {
		h.cleanup.Stop()
		h.cleanup = nil
	}

	// dead: the storage children alias died with this handle
	dead := false
	switch o := h.own.(type) {
	case *sharedOwnership:
		dead = finalizeShared(h, o)
	case hostOwnership:
		// the host decides the object's lifetime; only the root goes
	case rawOwnership:
		if h.flags&AutoRelease != 0 && h.markFreed() {
			if fn := b.types.finalizer(h.tag); fn != nil {
				fn(h.value)
			}
			dead = true
		}
	}

	if b.roots.removeRoot(h) {
		b.log.Debug("remove root", "addr", h.addr, "tag", h.tag)
	}
	b.UnregisterTrackedBuffer(h)
	b.cache.remove(h.addr, h)
	b.links.unlink(h)
	if dead {
		// other tags boxing the same storage die with it
		b.invalidate(h.addr)
	}
	b.arena.remove(h)
	b.log.Debug("finalize", "addr", h.addr, "tag", h.tag, "kind", h.own.Kind().String(), "dead", dead)
}

// invalidate marks every handle boxing addr as freed, drops them from the
// identity cache and cascades to linked children. It returns the number of
// handles newly marked.
func (b *Bridge) invalidate(addr Addr) int {
	n := 0
	for _, h := range b.arena.at(addr) {
		if h.markFreed() {
			n++
		}
		b.cache.remove(addr, h)
	}
	return n + b.cascade(addr)
}

func (b *Bridge) cascade(parent Addr) int {
	return b.links.cascadeFree(parent, func(c *Handle) {
		b.cache.remove(c.addr, c)
		b.log.Debug("cascade", "parent", parent, "child", c.addr, "tag", c.tag)
	})
}
