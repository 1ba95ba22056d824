package instance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, l1.ID())

	require.NoError(t, l1.Release())

	l2, err := Acquire(dir)
	require.NoError(t, err)
	require.NotEqual(t, l1.ID(), l2.ID())
	require.NoError(t, l2.Release())
}

func TestAcquireTwiceFails(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir)
	require.NoError(t, err)
	defer l1.Release()

	_, err = Acquire(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), l1.ID().String())
}
