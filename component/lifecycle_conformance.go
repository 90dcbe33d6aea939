package component

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowgate/errors"
)

// stopGrace is the shutdown budget used throughout the conformance tests.
const stopGrace = 5 * time.Second

// LifecycleConformance runs the shared lifecycle contract against a
// component implementation. Adapter packages call it from their own tests
// so every gateway obeys the same state machine: Initialize is repeatable,
// Start is exclusive while running, Stop is idempotent, and a stopped
// component can be started again.
//
// newComponent must return a fresh, unstarted instance on every call.
func LifecycleConformance(t *testing.T, newComponent func() LifecycleComponent) {
	t.Run("StateMachine", func(t *testing.T) {
		lifecycleStateMachine(t, newComponent)
	})
	t.Run("ContextErrors", func(t *testing.T) {
		lifecycleContextErrors(t, newComponent)
	})
	t.Run("ConcurrentStart", func(t *testing.T) {
		lifecycleConcurrentStart(t, newComponent)
	})
	t.Run("GoroutineDiscipline", func(t *testing.T) {
		lifecycleGoroutineDiscipline(t, newComponent)
	})
}

func lifecycleStateMachine(t *testing.T, newComponent func() LifecycleComponent) {
	cases := []struct {
		name string
		run  func(t *testing.T, comp LifecycleComponent)
	}{
		{
			name: "InitializeFresh",
			run: func(t *testing.T, comp LifecycleComponent) {
				assert.NoError(t, comp.Initialize())
			},
		},
		{
			name: "StartThenStop",
			run: func(t *testing.T, comp LifecycleComponent) {
				require.NoError(t, comp.Initialize())
				require.NoError(t, comp.Start(context.Background()))
				assert.NoError(t, comp.Stop(stopGrace))
			},
		},
		{
			name: "SecondStartRejected",
			run: func(t *testing.T, comp LifecycleComponent) {
				require.NoError(t, comp.Initialize())
				require.NoError(t, comp.Start(context.Background()))

				err := comp.Start(context.Background())
				assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

				// The rejection must not have disturbed the running instance.
				assert.NoError(t, comp.Stop(stopGrace))
			},
		},
		{
			name: "StopIdempotent",
			run: func(t *testing.T, comp LifecycleComponent) {
				require.NoError(t, comp.Initialize())
				require.NoError(t, comp.Start(context.Background()))
				require.NoError(t, comp.Stop(stopGrace))
				assert.NoError(t, comp.Stop(stopGrace))
			},
		},
		{
			name: "StopBeforeStart",
			run: func(t *testing.T, comp LifecycleComponent) {
				assert.NoError(t, comp.Stop(stopGrace))
			},
		},
		{
			name: "InitializeAfterStop",
			run: func(t *testing.T, comp LifecycleComponent) {
				require.NoError(t, comp.Initialize())
				require.NoError(t, comp.Start(context.Background()))
				require.NoError(t, comp.Stop(stopGrace))
				assert.NoError(t, comp.Initialize())
			},
		},
		{
			name: "RestartAfterStop",
			run: func(t *testing.T, comp LifecycleComponent) {
				require.NoError(t, comp.Initialize())
				require.NoError(t, comp.Start(context.Background()))
				require.NoError(t, comp.Stop(stopGrace))

				require.NoError(t, comp.Start(context.Background()))
				assert.NoError(t, comp.Stop(stopGrace))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comp := newComponent()
			require.NotNil(t, comp)
			tc.run(t, comp)
		})
	}
}

// lifecycleContextErrors verifies Start refuses a context that is already
// dead: a caller that gave up must not leave a bound listener behind.
func lifecycleContextErrors(t *testing.T, newComponent func() LifecycleComponent) {
	t.Run("CancelledContext", func(t *testing.T) {
		comp := newComponent()
		require.NoError(t, comp.Initialize())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := comp.Start(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, comp.Stop(stopGrace))
	})

	t.Run("ExpiredContext", func(t *testing.T) {
		comp := newComponent()
		require.NoError(t, comp.Initialize())

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		err := comp.Start(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NoError(t, comp.Stop(stopGrace))
	})
}

// lifecycleConcurrentStart races several starters against one instance.
// Exactly one of them may win; the rest must see the already-started
// rejection without corrupting the winner.
func lifecycleConcurrentStart(t *testing.T, newComponent func() LifecycleComponent) {
	comp := newComponent()
	require.NoError(t, comp.Initialize())

	const starters = 8
	results := make([]error, starters)

	var wg sync.WaitGroup
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = comp.Start(context.Background())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent Start should win")

	assert.NoError(t, comp.Stop(stopGrace))
}

// lifecycleGoroutineDiscipline cycles an instance through repeated
// start/stop rounds and checks that the goroutine count settles back to
// its baseline. A serve loop that outlives Stop shows up here.
func lifecycleGoroutineDiscipline(t *testing.T, newComponent func() LifecycleComponent) {
	if testing.Short() {
		t.Skip("skipping goroutine check in short mode")
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	const cycles = 25
	for i := 0; i < cycles; i++ {
		comp := newComponent()
		require.NoError(t, comp.Initialize())
		require.NoError(t, comp.Start(context.Background()))
		require.NoError(t, comp.Stop(stopGrace))
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	grown := runtime.NumGoroutine() - baseline

	assert.LessOrEqual(t, grown, 4,
		"goroutines leaked across %d start/stop cycles", cycles)
}
