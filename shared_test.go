package bridge_test

import (
	"sync"
	"testing"

	"github.com/feather-lang/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedCounts(t *testing.T) {
	for _, mode := range []bridge.ShareMode{bridge.NotThreadSafe, bridge.ThreadSafe} {
		disposed := 0
		ref := bridge.NewShared(&Texture{Name: "t"}, mode, func(*Texture) { disposed++ })
		assert.True(t, ref.Valid())
		assert.Equal(t, mode, ref.Mode())
		assert.Equal(t, int32(1), ref.StrongCount())

		c := ref.Clone()
		assert.Equal(t, int32(2), ref.StrongCount())
		assert.Same(t, ref.Get(), c.Get())

		c.Release()
		assert.Equal(t, 0, disposed)
		ref.Release()
		assert.Equal(t, 1, disposed)
		assert.Equal(t, int32(0), ref.StrongCount())
	}

	var zero bridge.Shared[*Texture]
	assert.False(t, zero.Valid())
	assert.Nil(t, zero.Get())
	assert.Equal(t, int32(0), zero.StrongCount())
	zero.Release()
}

func TestSharedThreadSafeCount(t *testing.T) {
	ref := bridge.NewShared(&Texture{}, bridge.ThreadSafe, nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				ref.Clone().Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ref.StrongCount())
}

func TestPushSharedFinalizeOnce(t *testing.T) {
	for _, tc := range []struct {
		mode bridge.ShareMode
		kind bridge.OwnershipKind
	}{
		{bridge.NotThreadSafe, bridge.KindSharedNotThreadSafe},
		{bridge.ThreadSafe, bridge.KindSharedThreadSafe},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			b := newBridge(t)
			require.NoError(t, bridge.DefineType[*Texture](b, "Texture", bridge.TypeDef{}))

			disposed := 0
			tex := &Texture{Name: "grass"}
			ref := bridge.NewShared(tex, tc.mode, func(*Texture) { disposed++ })

			v, err := bridge.PushShared(b, ref, "Texture")
			require.NoError(t, err)
			h := handleOf(t, v)
			assert.Equal(t, tc.kind, h.Kind())
			assert.True(t, h.Has(bridge.AutoRelease))
			assert.Equal(t, int32(2), ref.StrongCount())

			// a cache hit does not retain again
			again, err := bridge.PushShared(b, ref.Clone(), "Texture")
			require.NoError(t, err)
			assert.Same(t, v, again)
			assert.Equal(t, int32(3), ref.StrongCount())
			ref.Release()

			got, err := bridge.CheckedGet[*Texture](b, v, true)
			require.NoError(t, err)
			assert.Same(t, tex, got)
			assert.Equal(t, int32(2), ref.StrongCount())

			b.Reclaim(v)
			assert.True(t, h.Freed())
			assert.Equal(t, int32(1), ref.StrongCount())

			b.Reclaim(v)
			assert.Equal(t, int32(1), ref.StrongCount())
			assert.Equal(t, 0, disposed)

			ref.Release()
			assert.Equal(t, 1, disposed)

			_, err = bridge.CheckedGet[*Texture](b, v, true)
			assert.ErrorIs(t, err, bridge.ErrUseAfterFree)
		})
	}
}

func TestPushSharedValueTarget(t *testing.T) {
	b := newBridge(t)
	ref := bridge.NewShared(42, bridge.NotThreadSafe, nil)

	v, err := bridge.PushShared(b, ref, "Answer")
	require.NoError(t, err)
	// non pointer targets are keyed by their control block
	assert.NotZero(t, handleOf(t, v).Addr())
	again, err := bridge.PushShared(b, ref, "Answer")
	require.NoError(t, err)
	assert.Same(t, v, again)

	n, err := bridge.CheckedGet[int](b, v, true)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	none, err := bridge.PushShared(b, bridge.Shared[int]{}, "Answer")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSharedParentCascadesWhenLastOwnerGoes(t *testing.T) {
	b := newBridge(t)
	a := &Actor{}
	ref := bridge.NewShared(a, bridge.NotThreadSafe, nil)

	p, err := bridge.PushShared(b, ref, "Actor")
	require.NoError(t, err)
	c, err := b.PushAndLink(a, &a.Transform, "Transform")
	require.NoError(t, err)

	// the host still owns a reference: the child stays valid
	ref2 := ref.Clone()
	ref.Release()
	b.Reclaim(p)
	_, err = bridge.CheckedGet[*Transform](b, c, true)
	require.NoError(t, err)
	ref2.Release()

	ref3 := bridge.NewShared(a, bridge.NotThreadSafe, nil)
	q, err := bridge.PushShared(b, ref3, "Actor")
	require.NoError(t, err)
	ref3.Release()
	assert.Equal(t, int32(1), ref3.StrongCount())
	d, err := b.PushAndLink(a, &a.Transform, "Transform")
	require.NoError(t, err)
	assert.Same(t, c, d)

	b.Reclaim(q)
	_, err = bridge.CheckedGet[*Transform](b, d, true)
	assert.ErrorIs(t, err, bridge.ErrUseAfterFree)
}

func TestPushSharedOverRawWrapper(t *testing.T) {
	b := newBridge(t)
	disposed := false
	tex := &Texture{}
	ref := bridge.NewShared(tex, bridge.NotThreadSafe, func(*Texture) { disposed = true })

	raw, err := b.PushHandle(tex, "Texture", bridge.Raw(), 0)
	require.NoError(t, err)
	v, err := bridge.PushShared(b, ref, "Texture")
	require.NoError(t, err)
	assert.NotSame(t, raw, v)
	assert.Equal(t, bridge.KindSharedNotThreadSafe, handleOf(t, v).Kind())
	assert.Equal(t, int32(2), ref.StrongCount())

	again, err := b.PushHandle(tex, "Texture", bridge.Raw(), 0)
	require.NoError(t, err)
	assert.Same(t, raw, again)

	// the box keeps the target alive after the host lets go
	ref.Release()
	assert.False(t, disposed)
	got, err := bridge.CheckedGet[*Texture](b, v, true)
	require.NoError(t, err)
	assert.Same(t, tex, got)

	b.Reclaim(v)
	assert.True(t, disposed)
	_, err = bridge.CheckedGet[*Texture](b, raw, true)
	assert.ErrorIs(t, err, bridge.ErrUseAfterFree)
}

func TestPushSharedModeMismatchBoxesUncached(t *testing.T) {
	b := newBridge(t)
	tex := &Texture{}
	local := bridge.NewShared(tex, bridge.NotThreadSafe, nil)
	atomic := bridge.NewShared(tex, bridge.ThreadSafe, nil)

	v1, err := bridge.PushShared(b, local, "Texture")
	require.NoError(t, err)
	v2, err := bridge.PushShared(b, atomic, "Texture")
	require.NoError(t, err)
	assert.NotSame(t, v1, v2)
	assert.Equal(t, int32(2), atomic.StrongCount())
	assert.Equal(t, 1, b.Stats().Cached)
}
