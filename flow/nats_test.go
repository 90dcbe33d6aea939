package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/natsclient"
)

func TestNewNATSInvoker_RequiresClient(t *testing.T) {
	_, err := NewNATSInvoker(nil, NATSInvokerConfig{}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestNATSInvoker_SubjectMapping(t *testing.T) {
	client, err := natsclient.NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)

	inv, err := NewNATSInvoker(client, NATSInvokerConfig{}, discardLogger())
	require.NoError(t, err)

	tests := []struct {
		endpoint string
		want     string
	}{
		{"/index", "flow.index"},
		{"/search", "flow.search"},
		{"/rank/top", "flow.rank.top"},
		{"index", "flow.index"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inv.SubjectFor(tt.endpoint), "endpoint %s", tt.endpoint)
	}

	assert.Equal(t, "flow.cancel", inv.CancelSubject())
}

func TestNATSInvoker_CustomPrefix(t *testing.T) {
	client, err := natsclient.NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)

	inv, err := NewNATSInvoker(client, NATSInvokerConfig{SubjectPrefix: "pipeline"}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "pipeline.index", inv.SubjectFor("/index"))
	assert.Equal(t, "pipeline.cancel", inv.CancelSubject())
}

func TestNewNATSInvoker_AttemptsFloor(t *testing.T) {
	client, err := natsclient.NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)

	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"negative collapses to single attempt", -3, 1},
		{"zero collapses to single attempt", 0, 1},
		{"one stays one", 1, 1},
		{"retry budget preserved", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewNATSInvoker(client, NATSInvokerConfig{MaxAttempts: tt.configured}, discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.attempts)
			assert.Equal(t, tt.want, inv.retryConfig().MaxAttempts)
		})
	}
}

func TestNATSInvoker_InvokeWithoutConnection(t *testing.T) {
	client, err := natsclient.NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)

	inv, err := NewNATSInvoker(client, NATSInvokerConfig{}, discardLogger())
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), "/index", envelope.New("/index"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
	assert.True(t, errors.IsTransient(err), "connection loss is retryable")
}
