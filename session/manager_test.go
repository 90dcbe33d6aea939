package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowgate/errors"
)

func newTestManager() *Manager {
	return NewManager("test-adapter", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestManager_OpenAndGet(t *testing.T) {
	m := newTestManager()

	s := m.Open("conn-1")
	require.NotNil(t, s)
	assert.Equal(t, "conn-1", s.ID())
	assert.Equal(t, 1, m.OpenCount())

	got, ok := m.Get("conn-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = m.Get("conn-2")
	assert.False(t, ok)
}

func TestManager_OpenSameIDReturnsExisting(t *testing.T) {
	m := newTestManager()

	s1 := m.Open("conn-1")
	s2 := m.Open("conn-1")
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.OpenCount())
}

func TestSession_TrackAndComplete(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Track("req-1", cancel))
	assert.Equal(t, 1, s.InFlight())
	assert.Equal(t, 1, m.InFlightCount())

	require.NoError(t, s.Complete("req-1"))
	assert.Equal(t, 0, s.InFlight())
	assert.Equal(t, 0, m.InFlightCount())
}

func TestSession_DuplicateTrackRejected(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")

	require.NoError(t, s.Track("req-1", func() {}))
	err := s.Track("req-1", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in flight")
}

func TestSession_CompleteUnknownRequest(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")

	err := s.Complete("req-unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestManager_CloseCancelsInFlight(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	require.NoError(t, s.Track("req-1", cancel1))
	require.NoError(t, s.Track("req-2", cancel2))

	cancelled := m.Close("conn-1")
	sort.Strings(cancelled)
	assert.Equal(t, []string{"req-1", "req-2"}, cancelled)

	select {
	case <-ctx1.Done():
	default:
		t.Fatal("first request context should be cancelled")
	}
	select {
	case <-ctx2.Done():
	default:
		t.Fatal("second request context should be cancelled")
	}

	assert.Equal(t, 0, m.OpenCount())
	assert.Equal(t, 0, m.InFlightCount())
}

func TestSession_RejectsAfterClose(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")
	require.NoError(t, s.Track("req-1", func() {}))

	m.Close("conn-1")

	err := s.Track("req-2", func() {})
	assert.ErrorIs(t, err, errors.ErrSessionClosed)

	// The late completion for the request that was in flight at close time
	// surfaces the closed-session error so the adapter drops the response.
	err = s.Complete("req-1")
	assert.ErrorIs(t, err, errors.ErrSessionClosed)
}

func TestManager_CloseUnknownSession(t *testing.T) {
	m := newTestManager()
	assert.Nil(t, m.Close("conn-ghost"))
}

func TestSession_Deliver(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")
	require.NoError(t, s.Track("req-1", func() {}))

	emitted := false
	err := s.Deliver("req-1", func() error {
		emitted = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, emitted)
	assert.Equal(t, 0, s.InFlight())
}

func TestSession_DeliverAfterCloseSkipsEmit(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")
	require.NoError(t, s.Track("req-1", func() {}))
	m.Close("conn-1")

	emitted := false
	err := s.Deliver("req-1", func() error {
		emitted = true
		return nil
	})
	assert.ErrorIs(t, err, errors.ErrSessionClosed)
	assert.False(t, emitted, "emit must not run against a closed session")
}

func TestSession_DeliverPropagatesEmitError(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")
	require.NoError(t, s.Track("req-1", func() {}))

	wantErr := fmt.Errorf("write failed")
	err := s.Deliver("req-1", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, s.InFlight(), "request is completed even when the write fails")
}

func TestManager_CloseAll(t *testing.T) {
	m := newTestManager()

	s1 := m.Open("conn-1")
	s2 := m.Open("conn-2")
	require.NoError(t, s1.Track("req-1", func() {}))
	require.NoError(t, s2.Track("req-2", func() {}))
	require.NoError(t, s2.Track("req-3", func() {}))

	cancelled := m.CloseAll()
	sort.Strings(cancelled)
	assert.Equal(t, []string{"req-1", "req-2", "req-3"}, cancelled)
	assert.Equal(t, 0, m.OpenCount())
	assert.Equal(t, 0, m.InFlightCount())
}

func TestSession_ConcurrentTrackComplete(t *testing.T) {
	m := newTestManager()
	s := m.Open("conn-1")

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			requestID := fmt.Sprintf("req-%d", i)
			if err := s.Track(requestID, func() {}); err != nil {
				t.Errorf("track %s: %v", requestID, err)
				return
			}
			if err := s.Complete(requestID); err != nil {
				t.Errorf("complete %s: %v", requestID, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, s.InFlight())
	assert.Equal(t, 0, m.InFlightCount())
}
