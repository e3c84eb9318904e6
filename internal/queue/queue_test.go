package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundedDropsWhenFull(t *testing.T) {
	q := NewBounded[int](2)
	require.True(t, q.TrySend(1))
	require.True(t, q.TrySend(2))
	require.False(t, q.TrySend(3))
	require.Equal(t, uint64(1), q.Dropped())
}

func TestBoundedFIFOOrder(t *testing.T) {
	q := NewBounded[int](3)
	q.TrySend(1)
	q.TrySend(2)
	v, ok := q.TryRecv()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = q.TryRecv()
	require.True(t, ok)
	require.Equal(t, 2, v)
	_, ok = q.TryRecv()
	require.False(t, ok)
}

func TestDrainLatestKeepsNewest(t *testing.T) {
	q := NewBounded[int](5)
	q.TrySend(1)
	q.TrySend(2)
	q.TrySend(3)
	v, ok, skipped := q.DrainLatest()
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 2, skipped)
	require.Equal(t, 0, q.Len())
}

func TestDrainLatestEmpty(t *testing.T) {
	q := NewBounded[int](5)
	_, ok, skipped := q.DrainLatest()
	require.False(t, ok)
	require.Equal(t, 0, skipped)
}

func TestPressure(t *testing.T) {
	q := NewBounded[int](100)
	for i := 0; i < 81; i++ {
		q.TrySend(i)
	}
	require.InDelta(t, 0.81, q.Pressure(), 1e-9)
}
