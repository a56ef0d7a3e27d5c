package bridge

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityCacheEarlierInsertWins(t *testing.T) {
	c := newIdentityCache()
	h1 := &Handle{addr: 0x10, tag: "T"}
	h2 := &Handle{addr: 0x10, tag: "T"}
	o1 := newUserdata(h1)
	o2 := newUserdata(h2)

	winner, inserted := c.insert(0x10, o1, h1)
	assert.True(t, inserted)
	assert.Same(t, o1, winner)

	winner, inserted = c.insert(0x10, o2, h2)
	assert.False(t, inserted)
	assert.Same(t, o1, winner)

	obj, h, ok := c.lookup(0x10)
	require.True(t, ok)
	assert.Same(t, o1, obj)
	assert.Same(t, h1, h)
	runtime.KeepAlive(o1)
}

func TestIdentityCacheRemoveOwnerOnly(t *testing.T) {
	c := newIdentityCache()
	h1 := &Handle{addr: 0x20}
	stale := &Handle{addr: 0x20}
	o1 := newUserdata(h1)
	c.insert(0x20, o1, h1)

	assert.False(t, c.remove(0x20, stale))
	assert.Equal(t, 1, c.len())
	assert.True(t, c.remove(0x20, h1))
	assert.Equal(t, 0, c.len())
	assert.False(t, c.remove(0x20, h1))
	runtime.KeepAlive(o1)
}

func TestIdentityCacheHoldsWeakly(t *testing.T) {
	c := newIdentityCache()
	h1 := &Handle{addr: 0x30}
	func() {
		c.insert(0x30, newUserdata(h1), h1)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		_, _, ok := c.lookup(0x30)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	// the dead entry is still there until removed, and is overwritten
	assert.Equal(t, 1, c.len())
	h2 := &Handle{addr: 0x30}
	o2 := newUserdata(h2)
	_, inserted := c.insert(0x30, o2, h2)
	assert.True(t, inserted)
	assert.False(t, c.remove(0x30, h1))
	runtime.KeepAlive(o2)
}
