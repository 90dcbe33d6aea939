package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/c360/flowgate/errors"
)

func TestNew(t *testing.T) {
	env := New("/index")

	assert.Equal(t, "/index", env.Header.ExecEndpoint)
	assert.NotEmpty(t, env.Header.RequestID)
	assert.Nil(t, env.Header.Status)
	assert.Empty(t, env.Routes)
}

func TestNewRequestID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate request ID: %s", id)
		seen[id] = true
	}
}

func TestEnsureRequestID(t *testing.T) {
	env := &Envelope{Header: Header{ExecEndpoint: "/search"}}
	id := env.EnsureRequestID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, env.Header.RequestID)

	// Existing IDs are preserved
	env2 := &Envelope{Header: Header{RequestID: "client-chosen", ExecEndpoint: "/search"}}
	assert.Equal(t, "client-chosen", env2.EnsureRequestID())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     *Envelope
		wantErr bool
		field   string
	}{
		{
			name:    "valid envelope",
			env:     &Envelope{Header: Header{RequestID: "r1", ExecEndpoint: "/index"}},
			wantErr: false,
		},
		{
			name:    "missing request ID",
			env:     &Envelope{Header: Header{ExecEndpoint: "/index"}},
			wantErr: true,
			field:   "header.requestId",
		},
		{
			name:    "missing exec endpoint",
			env:     &Envelope{Header: Header{RequestID: "r1"}},
			wantErr: true,
			field:   "header.execEndpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrMalformedRequest)
			assert.Contains(t, err.Error(), tt.field)
			assert.True(t, pkgerrors.IsInvalid(err))
		})
	}
}

func TestAddRoute(t *testing.T) {
	env := New("/index")

	r1 := env.AddRoute("gateway")
	assert.Equal(t, "gateway", r1.Executor)
	assert.False(t, r1.StartTime.IsZero())
	assert.Nil(t, r1.EndTime)

	r2 := env.AddRoute("executor0")
	require.Len(t, env.Routes, 2)
	assert.Same(t, r1, env.Routes[0])
	assert.Same(t, r2, env.Routes[1])
	assert.Same(t, r2, env.LastRoute())

	// Start times never decrease along the trace
	assert.False(t, r2.StartTime.Before(r1.StartTime))
}

func TestRouteClose(t *testing.T) {
	env := New("/index")
	r := env.AddRoute("gateway")

	r.Close(SuccessStatus())

	require.NotNil(t, r.EndTime)
	assert.False(t, r.EndTime.Before(r.StartTime))
	assert.True(t, r.Status.IsSuccess())
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))
}

func TestStatusHelpers(t *testing.T) {
	var nilStatus *Status
	assert.False(t, nilStatus.IsError())
	assert.False(t, nilStatus.IsSuccess())

	assert.True(t, SuccessStatus().IsSuccess())
	assert.False(t, SuccessStatus().IsError())

	errStatus := ErrorStatus("executor exploded", "executor0")
	assert.True(t, errStatus.IsError())
	assert.Equal(t, "executor exploded", errStatus.Description)
	require.NotNil(t, errStatus.Exception)
	assert.Equal(t, "executor0", errStatus.Exception.Executor)
}

func TestMarkSuccessAndError(t *testing.T) {
	env := New("/index")
	env.MarkSuccess()
	assert.True(t, env.Header.Status.IsSuccess())

	env.MarkError("endpoint not found: /nope", "gateway")
	require.True(t, env.Header.Status.IsError())
	assert.Equal(t, "gateway", env.Header.Status.Exception.Executor)
}

func TestWireFormat(t *testing.T) {
	env := New("/index")
	env.Header.RequestID = "req-1"
	env.Parameters = map[string]any{"limit": float64(10)}
	env.Data = []json.RawMessage{json.RawMessage(`{"text":"hello"}`)}
	r := env.AddRoute("gateway")
	r.Close(SuccessStatus())
	env.MarkSuccess()

	data, err := env.Marshal()
	require.NoError(t, err)

	// Canonical field names on the wire
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	header, ok := wire["header"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", header["requestId"])
	assert.Equal(t, "/index", header["execEndpoint"])

	routes, ok := wire["routes"].([]any)
	require.True(t, ok)
	require.Len(t, routes, 1)
	route := routes[0].(map[string]any)
	assert.Equal(t, "gateway", route["executor"])
	assert.Contains(t, route, "startTime")
	assert.Contains(t, route, "endTime")

	// Round trip preserves everything the gateway cares about
	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, env.Header.RequestID, decoded.Header.RequestID)
	assert.Equal(t, env.Header.ExecEndpoint, decoded.Header.ExecEndpoint)
	assert.True(t, decoded.Header.Status.IsSuccess())
	require.Len(t, decoded.Data, 1)
	assert.JSONEq(t, `{"text":"hello"}`, string(decoded.Data[0]))
	require.Len(t, decoded.Routes, 1)
	assert.Equal(t, "gateway", decoded.Routes[0].Executor)
}

func TestOpenRouteOmitsEndTime(t *testing.T) {
	env := New("/index")
	env.AddRoute("gateway")

	data, err := env.Marshal()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	routes := wire["routes"].([]any)
	route := routes[0].(map[string]any)
	assert.NotContains(t, route, "endTime")
	assert.NotContains(t, route, "status")
}

func TestUnmarshalMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated JSON", `{"header": {"requestId": "r1"`},
		{"not JSON at all", `this is not json`},
		{"wrong envelope shape", `{"header": "not-an-object"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrMalformedRequest)
		})
	}
}

func TestTraceIndependence(t *testing.T) {
	// Two envelopes built from the same wire bytes must not share route state.
	data := []byte(`{"header":{"requestId":"r1","execEndpoint":"/index"}}`)

	a, err := Unmarshal(data)
	require.NoError(t, err)
	b, err := Unmarshal(data)
	require.NoError(t, err)

	a.AddRoute("gateway")
	assert.Len(t, a.Routes, 1)
	assert.Empty(t, b.Routes, "route trace must be owned per envelope")
}
