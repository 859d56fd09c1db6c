package stk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	s := New(&IDAllocator{})

	a := s.Push()
	b := s.Push()

	got, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)

	got, err = s.Pop()
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
}

func TestPopEmptyUnderflow(t *testing.T) {
	s := New(&IDAllocator{})

	_, err := s.Pop()
	require.Error(t, err)

	var su *StackUnderflow
	require.ErrorAs(t, err, &su)
	require.Equal(t, 1, su.Depth)
}

func TestInsertArgsAtBottomOrder(t *testing.T) {
	s := New(&IDAllocator{})

	ids := s.InsertArgsAtBottom(2)
	require.Equal(t, []string{"arg0", "arg1"}, ids)

	// a subsequent pop yields the last synthesized argument first
	v, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, "arg1", v.ID)

	v, err = s.Pop()
	require.NoError(t, err)
	require.Equal(t, "arg0", v.ID)
}

func TestXchg(t *testing.T) {
	s := New(&IDAllocator{})

	a := s.Push()
	b := s.Push()

	require.NoError(t, s.Xchg(0, 1))

	top, _ := s.Pop()
	require.Equal(t, a.ID, top.ID)

	bottom, _ := s.Pop()
	require.Equal(t, b.ID, bottom.ID)
}

func TestBlkPushDuplicatesSameID(t *testing.T) {
	s := New(&IDAllocator{})

	a := s.Push()

	require.NoError(t, s.BlkPush(2, 0))
	require.Equal(t, 3, s.Len())

	v1, _ := s.Pop()
	v2, _ := s.Pop()
	v3, _ := s.Pop()

	require.Equal(t, a.ID, v1.ID)
	require.Equal(t, a.ID, v2.ID)
	require.Equal(t, a.ID, v3.ID)
}

func TestBlkPop(t *testing.T) {
	s := New(&IDAllocator{})

	bottom := s.Push()
	_ = s.Push()
	top := s.Push()

	// pop top 2, swapping with depth 1 (the middle one) each time
	require.NoError(t, s.BlkPop(2, 1))
	require.Equal(t, 1, s.Len())

	remaining, _ := s.Pop()
	_ = top
	require.Equal(t, bottom.ID, remaining.ID)
}

func TestReverse(t *testing.T) {
	s := New(&IDAllocator{})

	a := s.Push()
	b := s.Push()
	c := s.Push()

	require.NoError(t, s.Reverse(3, 0))

	v1, _ := s.Pop()
	v2, _ := s.Pop()
	v3, _ := s.Pop()

	require.Equal(t, a.ID, v1.ID)
	require.Equal(t, b.ID, v2.ID)
	require.Equal(t, c.ID, v3.ID)
}

func TestGuardFinalizesOnEqualArms(t *testing.T) {
	s := New(&IDAllocator{})

	s.EnsureGuard(0, 2)
	require.NoError(t, s.AppendToGuardArm(0, "p0"))
	require.NoError(t, s.AppendToGuardArm(1, "p1"))

	merged := s.TryFinalizeGuard()
	require.Len(t, merged, 1)
	require.False(t, s.HasGuard())
}

func TestGuardDoesNotFinalizeOnUnequalArms(t *testing.T) {
	s := New(&IDAllocator{})

	s.EnsureGuard(0, 2)
	require.NoError(t, s.AppendToGuardArm(0, "p0", "p1"))
	require.NoError(t, s.AppendToGuardArm(1, "p0"))

	merged := s.TryFinalizeGuard()
	require.Nil(t, merged)
	require.True(t, s.HasGuard())
}

func TestGuardBlocksPopBelowBoundary(t *testing.T) {
	s := New(&IDAllocator{})

	s.Push()
	s.EnsureGuard(0, 1)

	_, err := s.Pop()
	var gu *ErrGuardUnresolved
	require.ErrorAs(t, err, &gu)
}

func TestEnsureGuardTakesMostRestrictiveDepth(t *testing.T) {
	s := New(&IDAllocator{})

	s.Push()
	s.Push()

	s.EnsureGuard(1, 2)
	s.EnsureGuard(0, 2)

	require.Equal(t, 0, s.guard.Depth)
}
