package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_UpdatePublishesWholeSnapshot(t *testing.T) {
	s := NewStore(Defaults())

	got := s.Update(func(st Settings) Settings {
		st.AccumulatedSeconds = 42
		st.LiveDistanceCm = 31.5
		return st
	})

	require.Equal(t, uint64(42), got.AccumulatedSeconds)
	require.Equal(t, 31.5, got.LiveDistanceCm)
	require.Equal(t, got, s.Current())
}

func TestStore_SubscriberSeesCurrentImmediately(t *testing.T) {
	s := NewStore(Defaults())
	s.Update(func(st Settings) Settings {
		st.AccumulatedSeconds = 7
		return st
	})

	sub := s.Subscribe()
	t.Cleanup(sub.Close)

	select {
	case snap := <-sub.Updates():
		require.Equal(t, uint64(7), snap.AccumulatedSeconds)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot delivered")
	}
}

func TestStore_ConflationKeepsLatestOnly(t *testing.T) {
	s := NewStore(Defaults())
	sub := s.Subscribe()
	t.Cleanup(sub.Close)

	// Drain the initial snapshot, then commit without consuming.
	<-sub.Updates()
	for i := 1; i <= 100; i++ {
		n := uint64(i)
		s.Update(func(st Settings) Settings {
			st.AccumulatedSeconds = n
			return st
		})
	}

	snap := <-sub.Updates()
	require.Equal(t, uint64(100), snap.AccumulatedSeconds,
		"slow subscriber must receive only the latest snapshot")
}

func TestStore_SubscriberObservesCommitOrderSubsequence(t *testing.T) {
	s := NewStore(Defaults())
	sub := s.Subscribe()

	const commits = 500
	done := make(chan struct{})
	var observed []uint64
	go func() {
		defer close(done)
		for snap := range sub.Updates() {
			observed = append(observed, snap.AccumulatedSeconds)
		}
	}()

	for i := 1; i <= commits; i++ {
		s.Update(func(st Settings) Settings {
			st.AccumulatedSeconds++
			return st
		})
	}
	s.Close()
	<-done

	require.NotEmpty(t, observed)
	for i := 1; i < len(observed); i++ {
		require.Greater(t, observed[i], observed[i-1],
			"snapshots must be a subsequence of commit order")
	}
	require.Equal(t, uint64(commits), observed[len(observed)-1])
}

func TestStore_ConcurrentProducersNeverTear(t *testing.T) {
	s := NewStore(Defaults())

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				s.Update(func(st Settings) Settings {
					// Two fields that must always move together.
					st.AccumulatedSeconds++
					st.LiveDistanceCm = float64(st.AccumulatedSeconds)
					return st
				})
			}
		}()
	}
	wg.Wait()

	final := s.Current()
	require.Equal(t, uint64(1000), final.AccumulatedSeconds)
	require.Equal(t, float64(1000), final.LiveDistanceCm)
}

func TestStore_UpdateAfterCloseIsNoop(t *testing.T) {
	s := NewStore(Defaults())
	s.Close()

	before := s.Current()
	after := s.Update(func(st Settings) Settings {
		st.AccumulatedSeconds = 999
		return st
	})
	require.Equal(t, before, after)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	s := NewStore(Defaults())
	sub := s.Subscribe()
	sub.Close()
	sub.Close() // must not panic
}
