package health

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_UpdateAndGet(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("http-gateway", "serving")

	got, ok := m.Get("http-gateway")
	require.True(t, ok)
	assert.True(t, got.IsHealthy())
	assert.Equal(t, "serving", got.Message)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

// The map key wins over whatever name the status carries.
func TestMonitor_UpdateForcesComponentName(t *testing.T) {
	m := NewMonitor()
	m.Update("grpc-gateway", NewHealthy("something-else", "ok"))

	got, ok := m.Get("grpc-gateway")
	require.True(t, ok)
	assert.Equal(t, "grpc-gateway", got.Component)
}

func TestMonitor_UpdateOverwrites(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("http-gateway", "serving")
	m.UpdateUnhealthy("http-gateway", "listen failed")

	got, _ := m.Get("http-gateway")
	assert.True(t, got.IsUnhealthy())
	assert.Equal(t, 1, m.Count())
}

func TestMonitor_RemoveAndClear(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("http-gateway", "ok")
	m.UpdateHealthy("grpc-gateway", "ok")

	m.Remove("http-gateway")
	assert.Equal(t, 1, m.Count())
	_, ok := m.Get("http-gateway")
	assert.False(t, ok)

	m.Clear()
	assert.Zero(t, m.Count())
}

func TestMonitor_GetAllIsACopy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("http-gateway", "ok")

	all := m.GetAll()
	delete(all, "http-gateway")

	assert.Equal(t, 1, m.Count())
}

func TestMonitor_ListComponentsSorted(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("websocket-gateway", "ok")
	m.UpdateHealthy("grpc-gateway", "ok")
	m.UpdateHealthy("http-gateway", "ok")

	assert.Equal(t,
		[]string{"grpc-gateway", "http-gateway", "websocket-gateway"},
		m.ListComponents())
}

func TestMonitor_AggregateHealth(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.AggregateHealth("gateway").IsHealthy(), "empty monitor aggregates healthy")

	m.UpdateHealthy("http-gateway", "ok")
	m.UpdateDegraded("websocket-gateway", "slow")
	agg := m.AggregateHealth("gateway")
	assert.True(t, agg.IsDegraded())
	assert.Len(t, agg.SubStatuses, 2)

	m.UpdateUnhealthy("grpc-gateway", "down")
	assert.True(t, m.AggregateHealth("gateway").IsUnhealthy())
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("adapter-%d", n)
			for j := 0; j < 100; j++ {
				m.UpdateHealthy(name, "ok")
				m.Get(name)
				m.GetAll()
				m.AggregateHealth("gateway")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, m.Count())
}
