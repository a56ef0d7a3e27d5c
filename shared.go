package bridge

import (
	"sync/atomic"
	"unsafe"
)

// ShareMode selects how a Shared reference counts its owners.
type ShareMode uint8

const (
	NotThreadSafe ShareMode = iota
	ThreadSafe
)

// controlBlock is the shared state behind every Shared reference. The two
// modes differ only in the type of the strong count.
type controlBlock[C any] struct {
	strong  C
	target  any
	dispose func(any)
}

type localBlock struct{ controlBlock[int32] }
type atomicBlock struct{ controlBlock[atomic.Int32] }

// Generic handle code treats both blocks as one record; their sizes must match.
const (
	_ = uint(unsafe.Sizeof(localBlock{}) - unsafe.Sizeof(atomicBlock{}))
	_ = uint(unsafe.Sizeof(atomicBlock{}) - unsafe.Sizeof(localBlock{}))
)

type refBlock interface {
	retain()
	release() int32
	count() int32
	get() any
	mode() ShareMode
}

func (b *localBlock) retain()         { b.strong++ }
func (b *localBlock) count() int32    { return b.strong }
func (b *localBlock) get() any        { return b.target }
func (b *localBlock) mode() ShareMode { return NotThreadSafe }
func (b *localBlock) release() int32 {
	b.strong--
	n := b.strong
	if n == 0 && b.dispose != nil {
		b.dispose(b.target)
	}
	return n
}

func (b *atomicBlock) retain()         { b.strong.Add(1) }
func (b *atomicBlock) count() int32    { return b.strong.Load() }
func (b *atomicBlock) get() any        { return b.target }
func (b *atomicBlock) mode() ShareMode { return ThreadSafe }
func (b *atomicBlock) release() int32 {
	n := b.strong.Add(-1)
	if n == 0 && b.dispose != nil {
		b.dispose(b.target)
	}
	return n
}

// Shared is a counted strong reference to a host value, the host side
// shared pointer the bridge can box.
//
// In ThreadSafe mode only the count is atomic. The target returned by Get is
// not protected against concurrent mutation; that is the caller's concern.
type Shared[T any] struct {
	blk refBlock
}

// NewShared creates a reference with a strong count of one. dispose, if not
// nil, runs when the count reaches zero.
func NewShared[T any](v T, mode ShareMode, dispose func(T)) Shared[T] {
	var d func(any)
	if dispose != nil {
		d = func(x any) { dispose(x.(T)) }
	}
	if mode == ThreadSafe {
		b := &atomicBlock{controlBlock[atomic.Int32]{target: v, dispose: d}}
		b.strong.Store(1)
		return Shared[T]{blk: b}
	}
	return Shared[T]{blk: &localBlock{controlBlock[int32]{strong: 1, target: v, dispose: d}}}
}

// Valid reports whether s refers to a value.
func (s Shared[T]) Valid() bool { return s.blk != nil }

// Get returns the target. It does not change the count.
func (s Shared[T]) Get() T {
	if s.blk == nil {
		var zero T
		return zero
	}
	return s.blk.get().(T)
}

// Clone returns a new owner of the same target.
func (s Shared[T]) Clone() Shared[T] {
	if s.blk != nil {
		s.blk.retain()
	}
	return s
}

// Release drops this owner.
func (s Shared[T]) Release() {
	if s.blk != nil {
		s.blk.release()
	}
}

// StrongCount returns the number of owners.
func (s Shared[T]) StrongCount() int32 {
	if s.blk == nil {
		return 0
	}
	return s.blk.count()
}

func (s Shared[T]) Mode() ShareMode {
	if s.blk == nil {
		return NotThreadSafe
	}
	return s.blk.mode()
}

// sharedOwnership is the boxed strong reference held by a shared Handle.
type sharedOwnership struct {
	blk      refBlock
	released bool
}

func (o *sharedOwnership) Kind() OwnershipKind { return shareKind(o.blk.mode()) }

func shareKind(m ShareMode) OwnershipKind {
	if m == ThreadSafe {
		return KindSharedThreadSafe
	}
	return KindSharedNotThreadSafe
}

func (o *sharedOwnership) isOwnership() {}

// boxShared takes a new strong reference for the box.
func boxShared(blk refBlock) *sharedOwnership {
	blk.retain()
	return &sharedOwnership{blk: blk}
}

// releaseOnce drops the box's strong reference. It reports whether the
// target died with it.
func (o *sharedOwnership) releaseOnce() (dead bool) {
	if o.released {
		return false
	}
	o.released = true
	return o.blk.release() == 0
}

// unboxGet returns the boxed value. For shared handles it is the target of
// the reference; its validity is bounded by the handle's.
func unboxGet(h *Handle) any {
	if s, ok := h.own.(*sharedOwnership); ok {
		return s.blk.get()
	}
	return h.value
}

// finalizeShared releases the boxed reference and marks the handle freed.
// Repeated calls are no-ops.
func finalizeShared(h *Handle, o *sharedOwnership) (dead bool) {
	if o.released {
		return false
	}
	h.markFreed()
	return o.releaseOnce()
}

// PushShared boxes a shared reference. A cache hit on a shared wrapper of
// the same mode returns it without retaining. Otherwise the box takes its
// own strong reference, released exactly once when the wrapper is
// reclaimed. A raw or host wrapper cached for the target holds no reference
// and is not reused; the shared box is then uncached.
func PushShared[T any](b *Bridge, ref Shared[T], tag string) (*Obj, error) {
	if !ref.Valid() {
		return nil, nil
	}
	target := ref.blk.get()
	addr := AddrOf(target)
	if addr == 0 {
		addr = blockAddr(ref.blk)
	}
	own := func() Ownership { return boxShared(ref.blk) }
	return b.push(target, addr, tag, shareKind(ref.blk.mode()), own, AutoRelease)
}

func blockAddr(blk refBlock) Addr {
	switch b := blk.(type) {
	case *localBlock:
		return Addr(unsafe.Pointer(b))
	case *atomicBlock:
		return Addr(unsafe.Pointer(b))
	}
	return 0
}
