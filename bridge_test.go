package bridge_test

import (
	"testing"

	"github.com/feather-lang/bridge"
	"github.com/feather-lang/bridge/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID int
}

type Derived struct {
	Base
	Name string
}

type Unrelated struct {
	N int
}

type Actor struct {
	host.Object
	Transform Transform
}

type Pawn struct {
	Actor
	Speed float64
}

var _ host.Managed = (*Pawn)(nil)

type Transform struct {
	X, Y float64
}

type Texture struct {
	Name string
}

// newBridge returns a bridge that only finalizes on Reclaim and Close.
func newBridge(t *testing.T, opts ...bridge.Option) *bridge.Bridge {
	t.Helper()
	b := bridge.New(append([]bridge.Option{bridge.WithCollector(false)}, opts...)...)
	t.Cleanup(b.Close)
	return b
}

func defineHierarchy(t *testing.T, b *bridge.Bridge) {
	t.Helper()
	require.NoError(t, bridge.DefineType[*Base](b, "Base", bridge.TypeDef{}))
	require.NoError(t, bridge.DefineType[*Derived](b, "Derived", bridge.TypeDef{Bases: []string{"Base"}}))
	require.NoError(t, bridge.DefineType[*Unrelated](b, "Unrelated", bridge.TypeDef{}))
}

func handleOf(t *testing.T, v *bridge.Obj) *bridge.Handle {
	t.Helper()
	h, ok := v.Handle()
	require.True(t, ok, "%s is not userdata", v.Type())
	return h
}

func TestNewAndClose(t *testing.T) {
	b := bridge.New()
	assert.NotEmpty(t, b.ID())
	assert.Equal(t, bridge.DefaultInstanceField, b.InstanceField())

	b.Close()
	b.Close()

	_, err := b.PushOwned(&Base{}, "Base")
	assert.ErrorIs(t, err, bridge.ErrClosed)
	assert.Equal(t, 0, b.Collect())
	assert.Equal(t, 0, b.NotifyFreed(1))
}

func TestBridgesAreIndependent(t *testing.T) {
	b1 := newBridge(t)
	b2 := newBridge(t)
	assert.NotEqual(t, b1.ID(), b2.ID())

	require.NoError(t, b1.Types().RegisterType("Base"))
	assert.True(t, b1.Types().Known("Base"))
	assert.False(t, b2.Types().Known("Base"))

	d := &Derived{}
	v1, err := b1.PushOwned(d, "Derived")
	require.NoError(t, err)
	v2, err := b2.PushOwned(d, "Derived")
	require.NoError(t, err)
	assert.NotSame(t, v1, v2)
}

func TestCloseFinalizesEverything(t *testing.T) {
	b := bridge.New(bridge.WithCollector(false))
	finalized := 0
	require.NoError(t, bridge.DefineType[*Base](b, "Base", bridge.TypeDef{
		Finalize: func(any) { finalized++ },
	}))

	var keep []*bridge.Obj
	for range 3 {
		v, err := b.PushOwned(&Base{}, "Base")
		require.NoError(t, err)
		keep = append(keep, v)
	}
	assert.Equal(t, 3, b.Stats().Handles)

	b.Close()
	assert.Equal(t, 3, finalized)
	assert.Equal(t, bridge.Stats{}, b.Stats())
	for _, v := range keep {
		assert.True(t, handleOf(t, v).Finalized())
	}
}

func TestStringForms(t *testing.T) {
	b := newBridge(t)
	d := &Derived{}
	v, err := b.PushHandle(d, "Derived", bridge.Raw(), 0)
	require.NoError(t, err)

	assert.Equal(t, "Derived", v.Type())
	assert.Equal(t, "<Derived:"+bridge.AddrOf(d).String()+">", v.String())

	w := b.NewWrapper(v)
	assert.Equal(t, "table", w.Type())
	assert.Equal(t, "table("+v.String()+")", w.String())
	bridge.SetField(w, "name", bridge.NewString("ok"))
	assert.Equal(t, "table("+v.String()+"){name=ok}", w.String())

	plain := bridge.NewTable()
	assert.Equal(t, "{}", plain.String())
	bridge.SetField(plain, "__inst", v)
	bridge.SetField(plain, "n", bridge.NewString("1"))
	assert.Equal(t, "{__inst="+v.String()+", n=1}", plain.String())
	assert.Equal(t, plain.String(), plain.Copy().String())

	var nilObj *bridge.Obj
	assert.Equal(t, "nil", nilObj.Type())
	assert.Equal(t, "string", bridge.NewString("x").Type())
	assert.Same(t, v, v.Copy())
}
