package bridge

import (
	"log/slog"
	"sync"

	"github.com/feather-lang/bridge/host"
	"github.com/google/uuid"
)

// DefaultInstanceField is the table field a wrapper table keeps its boxed
// userdata in.
const DefaultInstanceField = "__inst"

// Bridge is the per-runtime context: identity cache, type registry, link
// graph and root table of one script runtime.
//
// Create a bridge with [New] and always call [Bridge.Close] when the runtime
// shuts down. A Bridge is not safe for concurrent use; reclamation noticed by
// the Go collector is queued and applied on the bridge's own thread.
type Bridge struct {
	id    string
	log   *slog.Logger
	types *TypeRegistry
	cache *identityCache
	links *linkTracker
	roots *rootRegistrar

	arena     *arena
	field     string
	maxLive   int
	collector bool
	pending   *reclaimQueue
	unsub     func()
	closed    bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithHost connects the bridge to a host object system: strongly exposed
// managed values get rooted, and host destruction is forwarded to
// NotifyFreedObject.
func WithHost(h Host) Option {
	return func(b *Bridge) { b.roots.host = h }
}

// WithInstanceField sets the table field wrapper tables expose their
// userdata through.
func WithInstanceField(name string) Option {
	return func(b *Bridge) {
		if name != "" {
			b.field = name
		}
	}
}

// WithMaxHandles bounds the number of live handles. Pushes beyond the bound
// fail with ErrOutOfMemory. Zero means unbounded.
func WithMaxHandles(n int) Option {
	return func(b *Bridge) { b.maxLive = n }
}

// WithCollector controls whether wrappers are watched by the Go garbage
// collector. When disabled, only Reclaim and Close finalize handles.
// Enabled by default.
func WithCollector(enabled bool) Option {
	return func(b *Bridge) { b.collector = enabled }
}

// New creates a bridge for one script runtime.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		id:        uuid.NewString(),
		log:       slog.New(slog.DiscardHandler),
		types:     newTypeRegistry(),
		cache:     newIdentityCache(),
		links:     newLinkTracker(),
		roots:     newRootRegistrar(nil),
		arena:     newArena(),
		field:     DefaultInstanceField,
		collector: true,
		pending:   &reclaimQueue{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("bridge", b.id)
	if b.roots.host != nil {
		b.unsub = b.roots.host.OnDestroy(func(m host.Managed) {
			b.NotifyFreedObject(m)
		})
	}
	b.log.Debug("bridge init", "host", b.roots.host != nil, "collector", b.collector)
	return b
}

// ID returns the runtime id used in log records.
func (b *Bridge) ID() string { return b.id }

// Types returns the bridge's type registry.
func (b *Bridge) Types() *TypeRegistry { return b.types }

// InstanceField returns the wrapper table field name.
func (b *Bridge) InstanceField() string { return b.field }

// Close finalizes every live handle and detaches from the host.
// Close is idempotent.
func (b *Bridge) Close() {
	if b.closed {
		return
	}
	b.drain()
	for _, h := range b.arena.all() {
		b.finalize(h)
	}
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
	b.closed = true
	b.log.Debug("bridge closed")
}

// Stats is a snapshot of the bridge's bookkeeping.
type Stats struct {
	Handles int // live handles
	Cached  int // identity cache entries
	Roots   int // host roots held
	Links   int // parent/child edges
	Buffers int // tracked buffers
	Pending int // reclamations waiting for Collect
}

// Stats returns the current counts.
func (b *Bridge) Stats() Stats {
	return Stats{
		Handles: b.arena.len(),
		Cached:  b.cache.len(),
		Roots:   b.roots.len(),
		Links:   b.links.len(),
		Buffers: len(b.roots.buffers),
		Pending: b.pending.len(),
	}
}

// reclaimQueue collects handles whose wrappers the Go collector reclaimed.
// Cleanups run on a runtime goroutine; the queue is the only state they
// touch.
type reclaimQueue struct {
	mu      sync.Mutex
	handles []*Handle
}

func (q *reclaimQueue) push(h *Handle) {
	q.mu.Lock()
	q.handles = append(q.handles, h)
	q.mu.Unlock()
}

func (q *reclaimQueue) take() []*Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	hs := q.handles
	q.handles = nil
	return hs
}

func (q *reclaimQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}
