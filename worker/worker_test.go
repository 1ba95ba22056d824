package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingStore struct {
	calls   atomic.Int64
	release chan struct{}
}

func (s *blockingStore) Work() (bool, error) {
	s.calls.Add(1)
	<-s.release
	return true, nil
}

func TestTriggerDedupsConcurrentCalls(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	sched := New(map[string]Workable{"x": store})

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			did, err := sched.Trigger("x")
			require.NoError(t, err)
			results[i] = did
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.Equal(t, int64(1), store.calls.Load())
	for _, did := range results {
		require.True(t, did)
	}
}

type countingStore struct{ calls atomic.Int64 }

func (s *countingStore) Work() (bool, error) {
	s.calls.Add(1)
	return false, nil
}

func TestTriggerUnknownStoreIsNoop(t *testing.T) {
	sched := New(map[string]Workable{})
	did, err := sched.Trigger("missing")
	require.NoError(t, err)
	require.False(t, did)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	store := &countingStore{}
	sched := New(map[string]Workable{"x": store})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	cancel()
	<-done

	require.GreaterOrEqual(t, store.calls.Load(), int64(2))
}
