package bridge_test

import (
	"errors"
	"fmt"

	"github.com/feather-lang/bridge"
	"github.com/feather-lang/bridge/host"
)

// Widget and Button form a two level hierarchy: a *Button is usable
// wherever script expects a Widget.
type Widget struct {
	Label string
}

type Button struct {
	Widget
	Clicks int
}

// This example shows identity preservation and casting to a base type.
func Example_identityAndCast() {
	b := bridge.New()
	defer b.Close()

	bridge.DefineType[*Widget](b, "Widget", bridge.TypeDef{})
	bridge.DefineType[*Button](b, "Button", bridge.TypeDef{Bases: []string{"Widget"}})

	btn := &Button{Widget: Widget{Label: "ok"}}
	v1, _ := b.PushOwned(btn, "Button")
	v2, _ := b.PushOwned(btn, "Button")
	fmt.Println("same wrapper:", v1 == v2)

	w, _ := bridge.CheckedGet[*Widget](b, v1, true)
	fmt.Println("base label:", w.Label)

	_, err := bridge.CheckedGet[*Texture](b, v1, true)
	fmt.Println(err)

	// Output:
	// same wrapper: true
	// base label: ok
	// type mismatch: expect userdata *bridge_test.Texture, but got Button
}

// This example shows a bound method checking its receiver. Bound functions
// receive script arguments as a slice; position 1 is the receiver.
func Example_boundMethod() {
	b := bridge.New()
	defer b.Close()
	bridge.DefineType[*Button](b, "Button", bridge.TypeDef{})

	click := func(args []*bridge.Obj) error {
		btn, err := bridge.CheckSelf[*Button](b, args)
		if err != nil {
			return err
		}
		btn.Clicks++
		return nil
	}

	btn := &Button{}
	v, _ := b.PushOwned(btn, "Button")
	click([]*bridge.Obj{v})
	click([]*bridge.Obj{v})
	fmt.Println("clicks:", btn.Clicks)

	fmt.Println(click([]*bridge.Obj{bridge.NewString("button")}))

	// Output:
	// clicks: 2
	// arg 1: not a handle: expect userdata, got string
}

// This example shows a host destroying an object out of band while script
// still holds it and a value aliasing its storage.
func Example_hostDestroy() {
	heap := host.NewHeap()
	b := bridge.New(bridge.WithHost(heap))
	defer b.Close()

	a := &Actor{}
	heap.Register(a, host.NewClass("Actor", nil), "hero")

	actor, _ := b.PushObject(a, "Actor")
	tr, _ := b.PushAndLink(a, &a.Transform, "Transform")

	heap.Destroy(a)

	_, err := bridge.CheckedGet[*Actor](b, actor, true)
	fmt.Println(errors.Is(err, bridge.ErrUseAfterFree))
	_, err = bridge.CheckedGet[*Transform](b, tr, true)
	fmt.Println(errors.Is(err, bridge.ErrUseAfterFree))

	// Output:
	// true
	// true
}
