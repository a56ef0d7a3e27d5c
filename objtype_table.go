package bridge

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// TableType is the internal representation for table values. Script side
// wrappers are tables that keep their boxed userdata in an instance field.
type TableType struct {
	Items map[string]*Obj
	Order []string
	inst  string // instance field, set for wrappers made by NewWrapper
}

// NewTable creates an empty table value.
func NewTable() *Obj {
	return &Obj{intrep: &TableType{Items: make(map[string]*Obj)}}
}

// NewWrapper creates a table exposing inst through the bridge's instance field.
func (b *Bridge) NewWrapper(inst *Obj) *Obj {
	t := NewTable()
	t.intrep.(*TableType).inst = b.field
	SetField(t, b.field, inst)
	return t
}

func (t *TableType) Name() string { return "table" }

func (t *TableType) Dup() ObjType {
	return &TableType{Items: maps.Clone(t.Items), Order: slices.Clone(t.Order), inst: t.inst}
}

// UpdateString renders a wrapper as table(<Tag:addr>) followed by its other
// fields, and a plain table as {k=v, ...}.
func (t *TableType) UpdateString() string {
	var sb strings.Builder
	wrapped := false
	if v, ok := t.Items[t.inst]; ok && t.inst != "" {
		fmt.Fprintf(&sb, "table(%s)", v)
		wrapped = true
	}
	rest := 0
	for _, key := range t.Order {
		if wrapped && key == t.inst {
			continue
		}
		if rest == 0 {
			sb.WriteByte('{')
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", key, t.Items[key])
		rest++
	}
	switch {
	case rest > 0:
		sb.WriteByte('}')
	case !wrapped:
		sb.WriteString("{}")
	}
	return sb.String()
}

// SetField sets a field on a table value. Non-table values are left unchanged.
func SetField(tbl *Obj, key string, val *Obj) {
	t, ok := tbl.InternalRep().(*TableType)
	if !ok {
		return
	}
	if _, exists := t.Items[key]; !exists {
		t.Order = append(t.Order, key)
	}
	t.Items[key] = val
	tbl.invalidate()
}

// Field returns a table field, or nil if the value is not a table or the
// field is unset.
func Field(tbl *Obj, key string) *Obj {
	t, ok := tbl.InternalRep().(*TableType)
	if !ok {
		return nil
	}
	return t.Items[key]
}
