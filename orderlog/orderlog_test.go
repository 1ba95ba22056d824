package orderlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRecordGetRoundTrip(t *testing.T) {
	log := openTestLog(t)

	e := Entry{
		Id: 7, Scope: 2, Route: 1,
		OrderBody: []byte("order"),
		Error:     0,
		Elapsed:   12345,
		ReplyBody: []byte("reply"),
	}
	require.NoError(t, log.Record(e))

	got, ok, err := log.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, e, got)
}

func TestGetMissingIdReturnsNotOk(t *testing.T) {
	log := openTestLog(t)

	_, ok, err := log.Get(99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecordOverwritesSameId(t *testing.T) {
	log := openTestLog(t)

	require.NoError(t, log.Record(Entry{Id: 1, OrderBody: []byte("a")}))
	require.NoError(t, log.Record(Entry{Id: 1, OrderBody: []byte("bb")}))

	got, ok, err := log.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("bb"), got.OrderBody)
}

func TestReplayVisitsInIncreasingIdOrder(t *testing.T) {
	log := openTestLog(t)

	ids := []uint64{5, 1, 3}
	for _, id := range ids {
		require.NoError(t, log.Record(Entry{Id: id, OrderBody: []byte("x")}))
	}

	var seen []uint64
	require.NoError(t, log.Replay(0, func(e Entry) bool {
		seen = append(seen, e.Id)
		return true
	}))
	require.Equal(t, []uint64{1, 3, 5}, seen)
}

func TestReplayStopsWhenFnReturnsFalse(t *testing.T) {
	log := openTestLog(t)

	for _, id := range []uint64{1, 2, 3, 4} {
		require.NoError(t, log.Record(Entry{Id: id}))
	}

	var seen []uint64
	require.NoError(t, log.Replay(0, func(e Entry) bool {
		seen = append(seen, e.Id)
		return e.Id < 2
	}))
	require.Equal(t, []uint64{1, 2}, seen)
}

func TestReplayFromSkipsEarlierIds(t *testing.T) {
	log := openTestLog(t)

	for _, id := range []uint64{1, 2, 3} {
		require.NoError(t, log.Record(Entry{Id: id}))
	}

	var seen []uint64
	require.NoError(t, log.Replay(2, func(e Entry) bool {
		seen = append(seen, e.Id)
		return true
	}))
	require.Equal(t, []uint64{2, 3}, seen)
}
