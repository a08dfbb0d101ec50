package arena_test

import (
	"testing"

	"github.com/gostack-vm/ivm/pkg/arena"
	"github.com/stretchr/testify/require"
)

func TestAllocateReturnRoundTrip(t *testing.T) {
	a := arena.New(64)
	before := a.Offset()

	buf := a.Allocate(8)
	require.Len(t, buf, 8)
	require.Greater(t, a.Offset(), before)

	a.Return()
	require.Equal(t, before, a.Offset())
	require.Equal(t, 0, a.Pos())
}

func TestNestedAllocationsUnwindLIFO(t *testing.T) {
	a := arena.New(64)

	b1 := a.Allocate(8)
	off1 := a.Offset()
	b2 := a.Allocate(8)
	off2 := a.Offset()
	b3 := a.Allocate(8)

	require.NotEqual(t, off1, off2)
	b1[0], b2[0], b3[0] = 1, 2, 3

	a.Return() // undoes b3
	require.Equal(t, off2, a.Offset())
	a.Return() // undoes b2
	require.Equal(t, off1, a.Offset())
	a.Return() // undoes b1
	require.Equal(t, 0, a.Offset())
}

func TestAllocateGrowsIntoNewBlock(t *testing.T) {
	a := arena.New(32)
	require.Equal(t, 1, a.NumBlocks())

	a.Allocate(16)
	a.Allocate(16) // does not fit in the remaining 8 bytes alongside its offset word

	require.Equal(t, 2, a.NumBlocks())
	require.Equal(t, 1, a.Pos())
}

func TestAllocateReusesReturnedBlockBeforeAppending(t *testing.T) {
	a := arena.New(32)

	a.Allocate(16)
	a.Allocate(16) // forces a second block
	require.Equal(t, 2, a.NumBlocks())

	a.Return()
	a.Return()
	require.Equal(t, 0, a.Pos())

	a.Allocate(16)
	a.Allocate(16) // should reuse block 1, not append a third
	require.Equal(t, 2, a.NumBlocks())
	require.Equal(t, 1, a.Pos())
}

func TestAllocateLargerThanBlockPanics(t *testing.T) {
	a := arena.New(16)
	require.Panics(t, func() {
		a.Allocate(32)
	})
}
