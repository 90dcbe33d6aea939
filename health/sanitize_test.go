package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text untouched", "connection refused", "connection refused"},
		{"http url", "GET https://api.internal/v1 failed", "GET [URL] failed"},
		{"nats url", "dial nats://broker:4222 refused", "dial [URL] refused"},
		{"websocket url", "upgrade wss://edge.example/ws failed", "upgrade [URL] failed"},
		{"unix path", "open /etc/flowgate/config.json denied", "open [PATH] denied"},
		{"ip address", "peer 192.168.1.100 unreachable", "peer [IP] unreachable"},
		{"bare port", "bind on :8087 failed", "bind on [PORT] failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeMessage(tt.in))
		})
	}
}

func TestSanitizeMessage_Credentials(t *testing.T) {
	got := sanitizeMessage("auth failed: password=hunter2 rejected")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "[REDACTED]")

	got = sanitizeMessage("token=abc123,resuming")
	assert.NotContains(t, got, "abc123")
}

// One message combining several sensitive shapes loses all of them.
func TestSanitizeMessage_Combined(t *testing.T) {
	got := sanitizeMessage(
		"connect to https://10.0.0.5:9443/admin with secret=topsecret failed")

	assert.NotContains(t, got, "10.0.0.5")
	assert.NotContains(t, got, "topsecret")
	assert.NotContains(t, got, "https://")
}
