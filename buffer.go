package bridge

import (
	"fmt"

	"github.com/feather-lang/bridge/host"
)

// Buffer is a boxed byte snapshot of a composite value. Refs holds the host
// managed references embedded in it; while the buffer is tracked, the host
// collector keeps them alive and clears those whose target is destroyed.
type Buffer struct {
	Data []byte
	Refs []host.Managed
}

// NewBuffer copies data into a new buffer with room for refs references.
func NewBuffer(data []byte, refs int) *Buffer {
	return &Buffer{Data: append([]byte(nil), data...), Refs: make([]host.Managed, refs)}
}

// AddReferencedObjects reports every reference slot.
func (s *Buffer) AddReferencedObjects(c *host.Collector) {
	for i := range s.Refs {
		c.AddReference(&s.Refs[i])
	}
}

// RegisterTrackedBuffer hands h's value to the host collector's traversal.
// The value must implement host.Referencer.
func (b *Bridge) RegisterTrackedBuffer(h *Handle) error {
	if b.closed {
		return ErrClosed
	}
	if h.tracked {
		return nil
	}
	r, ok := unboxGet(h).(host.Referencer)
	if !ok {
		return &Error{Kind: ErrTypeMismatch, Want: "host.Referencer", Got: fmt.Sprintf("%T", unboxGet(h))}
	}
	if b.roots.host == nil {
		return fmt.Errorf("bridge: no host to track buffer %s", h.addr)
	}
	b.roots.host.AddReferencer(r)
	b.roots.buffers[h] = r
	h.tracked = true
	b.log.Debug("track buffer", "addr", h.addr, "tag", h.tag)
	return nil
}

// UnregisterTrackedBuffer removes h's value from the host collector's
// traversal. Untracked handles are ignored.
func (b *Bridge) UnregisterTrackedBuffer(h *Handle) {
	r, ok := b.roots.buffers[h]
	if !ok {
		return
	}
	b.roots.host.RemoveReferencer(r)
	delete(b.roots.buffers, h)
	h.tracked = false
	b.log.Debug("untrack buffer", "addr", h.addr, "tag", h.tag)
}

// PushBuffer boxes buf as a script owned value and tracks its references.
func (b *Bridge) PushBuffer(buf *Buffer, tag string) (*Obj, error) {
	obj, err := b.PushOwned(buf, tag)
	if err != nil || obj == nil {
		return obj, err
	}
	h, _ := obj.Handle()
	if err := b.RegisterTrackedBuffer(h); err != nil {
		b.finalize(h)
		return nil, err
	}
	return obj, nil
}
