package bridge

import "fmt"

// UserdataType is the internal representation of a boxed native value.
// Its Name is the type name exposed to script.
type UserdataType struct {
	h    *Handle
	name string
}

func (t *UserdataType) Name() string { return t.name }

// Dup shares the handle: copies of a userdata box the same native value.
func (t *UserdataType) Dup() ObjType { return t }

func (t *UserdataType) UpdateString() string {
	return fmt.Sprintf("<%s:%s>", t.name, t.h.addr)
}

// Handle returns the boxed handle.
func (t *UserdataType) Handle() *Handle { return t.h }

func newUserdata(h *Handle) *Obj {
	return &Obj{intrep: &UserdataType{h: h, name: h.tag}}
}
