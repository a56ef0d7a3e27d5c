package host

import (
	"errors"
	"fmt"
	"log/slog"
)

// RootToken identifies one root registration. The zero token is never issued.
type RootToken uint64

// Referencer reports the managed objects it holds to a collection pass.
type Referencer interface {
	AddReferencedObjects(c *Collector)
}

// Collector is handed to referencers during Heap.Collect.
type Collector struct {
	heap   *Heap
	marked map[*Object]bool
	queue  []Managed
}

// AddReference reports one slot holding a managed object. Live targets are
// kept alive; a slot whose target was destroyed is set to nil.
func (c *Collector) AddReference(slot *Managed) {
	if slot == nil || *slot == nil {
		return
	}
	o := (*slot).Header()
	if !o.IsValid() {
		*slot = nil
		return
	}
	if o.heap != c.heap || c.marked[o] {
		return
	}
	c.marked[o] = true
	c.queue = append(c.queue, *slot)
}

type listener struct {
	id int
	fn func(Managed)
}

// Heap owns managed objects and decides their lifetime.
// A Heap is not safe for concurrent use.
type Heap struct {
	objects     map[*Object]Managed
	roots       map[RootToken]Managed
	nextToken   RootToken
	referencers map[Referencer]struct{}
	listeners   []listener
	nextID      int
	log         *slog.Logger
}

// Option configures a Heap.
type Option func(*Heap)

// WithLogger sets the heap's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHeap creates an empty heap.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		objects:     make(map[*Object]Managed),
		roots:       make(map[RootToken]Managed),
		referencers: make(map[Referencer]struct{}),
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds m to the heap under class.
func (h *Heap) Register(m Managed, class *Class, name string) error {
	if m == nil {
		return errors.New("host: register nil object")
	}
	o := m.Header()
	if o.state != stateUnregistered {
		return fmt.Errorf("host: object %q already registered", o.name)
	}
	o.class = class
	o.name = name
	o.heap = h
	o.state = stateLive
	h.objects[o] = m
	return nil
}

// Len returns the number of objects the heap still owns.
func (h *Heap) Len() int { return len(h.objects) }

// Live reports whether m is owned by this heap and valid.
func (h *Heap) Live(m Managed) bool {
	if m == nil {
		return false
	}
	o := m.Header()
	_, ok := h.objects[o]
	return ok && o.IsValid()
}

// AddRoot keeps m alive until the returned token is removed. It returns the
// zero token for objects that are not live in this heap.
func (h *Heap) AddRoot(m Managed) RootToken {
	if !h.Live(m) {
		return 0
	}
	h.nextToken++
	h.roots[h.nextToken] = m
	h.log.Debug("add root", "object", m.Header().name, "token", uint64(h.nextToken))
	return h.nextToken
}

// RemoveRoot drops a root registration. Unknown tokens are ignored.
func (h *Heap) RemoveRoot(t RootToken) {
	if m, ok := h.roots[t]; ok {
		delete(h.roots, t)
		h.log.Debug("remove root", "object", m.Header().name, "token", uint64(t))
	}
}

// Rooted reports whether any root registration holds m.
func (h *Heap) Rooted(m Managed) bool {
	for _, r := range h.roots {
		if r.Header() == m.Header() {
			return true
		}
	}
	return false
}

// AddReferencer registers r with every subsequent collection pass.
func (h *Heap) AddReferencer(r Referencer) {
	h.referencers[r] = struct{}{}
}

// RemoveReferencer unregisters r.
func (h *Heap) RemoveReferencer(r Referencer) {
	delete(h.referencers, r)
}

// OnDestroy subscribes fn to destruction of any object, whether destroyed
// explicitly or swept by Collect. The returned function unsubscribes.
func (h *Heap) OnDestroy(fn func(Managed)) (cancel func()) {
	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

func (h *Heap) notify(m Managed) {
	// listeners may unsubscribe while being notified
	ls := append([]listener(nil), h.listeners...)
	for _, l := range ls {
		l.fn(m)
	}
}

// Destroy marks m as pending destruction and notifies listeners. The
// object's memory stays owned by the heap until the next Collect, which
// nulls every reported reference to it.
func (h *Heap) Destroy(m Managed) {
	if !h.Live(m) {
		return
	}
	o := m.Header()
	o.state = statePendingKill
	h.log.Debug("destroy", "object", o.name)
	h.notify(m)
}

// Collect marks everything reachable from roots and referencers and sweeps
// the rest. It returns the number of objects released.
func (h *Heap) Collect() int {
	c := &Collector{heap: h, marked: make(map[*Object]bool)}
	for t, m := range h.roots {
		if !m.Header().IsValid() {
			delete(h.roots, t)
			continue
		}
		slot := m
		c.AddReference(&slot)
	}
	for r := range h.referencers {
		r.AddReferencedObjects(c)
	}
	for len(c.queue) > 0 {
		m := c.queue[len(c.queue)-1]
		c.queue = c.queue[:len(c.queue)-1]
		if r, ok := m.(Referencer); ok {
			r.AddReferencedObjects(c)
		}
	}

	var swept []Managed
	released := 0
	for o, m := range h.objects {
		if c.marked[o] {
			continue
		}
		// pending kill objects were already announced by Destroy
		if o.state == stateLive {
			swept = append(swept, m)
		}
		o.state = stateDestroyed
		delete(h.objects, o)
		released++
	}
	for _, m := range swept {
		h.notify(m)
	}
	h.log.Debug("collect", "released", released, "live", len(h.objects))
	return released
}
