package sched

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		id, err := s.ScheduleEvery("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, id)
		require.Equal(t, 1, s.Len())
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		_, err = s.ScheduleEvery("test", 0, func() {})
		require.Error(t, err)
	})
}

func TestScheduler_ScheduleAt(t *testing.T) {
	t.Run("fires once", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		fired := make(chan struct{})
		_, err = s.ScheduleAt("test", time.Now().Add(20*time.Millisecond), func() {
			close(fired)
		})
		require.NoError(t, err)
		s.Start(context.Background())

		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("one-shot job never fired")
		}
	})

	t.Run("rejects zero time", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		_, err = s.ScheduleAt("test", time.Time{}, func() {})
		require.Error(t, err)
	})
}

func TestScheduler_Remove(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	id, err := s.ScheduleEvery("test", time.Hour, func() {})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	s.Remove(id)
	require.Equal(t, 0, s.Len())

	// Unknown job is tolerated.
	s.Remove(uuid.New())
}
