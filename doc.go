// Package bridge exposes native Go and host values to an embedded script
// runtime behind one opaque handle type.
//
// # Overview
//
// A native value reaches script as a boxed [Handle] wrapped in an [*Obj].
// bridge keeps three promises about those handles:
//
//   - Identity: pushing the same native value twice returns the same *Obj
//     while the first one is reachable
//   - Liveness: a handle whose value the host destroyed never hands the
//     value out again; access fails with [ErrUseAfterFree]
//   - Type safety: typed reads check the registered type hierarchy
//
// Values have one of four ownership kinds: raw pointers, shared references
// counted with or without atomics, and objects of the host's managed object
// system (package host).
//
// # Quick Start
//
//	import "github.com/feather-lang/bridge"
//
//	func main() {
//	    b := bridge.New()
//	    defer b.Close()
//
//	    bridge.DefineType[*Base](b, "Base", bridge.TypeDef{})
//	    bridge.DefineType[*Derived](b, "Derived", bridge.TypeDef{Bases: []string{"Base"}})
//
//	    d := &Derived{}
//	    v, _ := b.PushOwned(d, "Derived")
//	    w, _ := b.PushOwned(d, "Derived") // v == w
//
//	    base, _ := bridge.CheckedGet[*Base](b, v, true) // &d.Base
//	}
//
// # Ownership
//
// Raw values are pushed with [Bridge.PushHandle] or [Bridge.PushOwned]. An
// owned value runs its type's Finalize callback when the wrapper is
// reclaimed:
//
//	bridge.DefineType[*File](b, "File", bridge.TypeDef{
//	    Finalize: func(v any) { v.(*File).Close() },
//	})
//
// Shared references take a strong count for the lifetime of the wrapper:
//
//	ref := bridge.NewShared(tex, bridge.ThreadSafe, nil)
//	v, _ := bridge.PushShared(b, ref, "Texture") // count 2
//	ref.Release()                                // count 1, held by v
//
// Host managed objects are pushed strongly with [Bridge.PushObject], which
// roots them in the host collector, or weakly with [Bridge.PushBorrowed].
//
// # Invalidation
//
// When the host destroys a value it calls [Bridge.NotifyFreed] (a bridge
// created [WithHost] subscribes to this itself). Values aliasing storage of
// a parent are pushed with [Bridge.PushAndLink]; freeing the parent
// invalidates them:
//
//	p, _ := b.PushObject(actor, "Actor")
//	t, _ := b.PushAndLink(actor, &actor.Transform, "Transform")
//	heap.Destroy(actor)
//	_, err := bridge.CheckedGet[*Transform](b, t, true) // ErrUseAfterFree
//
// # Reclamation
//
// The identity cache holds wrappers weakly. Reclamation by the Go collector
// is queued and applied by [Bridge.Collect], or at the start of the next
// push. Runtimes with their own collector call [Bridge.Reclaim] instead.
package bridge
