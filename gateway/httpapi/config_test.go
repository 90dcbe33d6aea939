package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowgate/gateway"
)

func TestConfig_ValidateDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8087, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, int64(gateway.DefaultMaxRequestSize), cfg.MaxRequestSize)
	assert.False(t, cfg.EnableCORS)
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"port out of range", Config{Port: 70000}},
		{"negative port", Config{Port: -1}},
		{"bad timeout format", Config{RequestTimeout: "soon"}},
		{"timeout below minimum", Config{RequestTimeout: "10ms"}},
		{"timeout above maximum", Config{RequestTimeout: "5m"}},
		{"negative request size", Config{MaxRequestSize: -1}},
		{"request size above cap", Config{MaxRequestSize: 200 * 1024 * 1024}},
		{"cors without origins", Config{EnableCORS: true}},
		{"cert without key", Config{TLSCertFile: "/tmp/cert.pem"}},
		{"client CA without server TLS", Config{TLSClientCAFile: "/tmp/clients.pem"}},
		{"unsupported TLS version", Config{TLSMinVersion: "1.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestConfig_CORSWithOrigins(t *testing.T) {
	cfg := Config{EnableCORS: true, CORSOrigins: []string{"http://localhost:3000"}}
	require.NoError(t, cfg.Validate())
}

func TestConfig_CustomTimeoutParsed(t *testing.T) {
	cfg := Config{RequestTimeout: "250ms"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout())
}
