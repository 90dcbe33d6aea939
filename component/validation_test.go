package component

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestValidateFactoryConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:   "empty config is valid",
			config: "",
		},
		{
			name:   "typical gateway config",
			config: `{"host": "0.0.0.0", "port": 8087, "cors_enabled": true}`,
		},
		{
			name:   "nested objects within limit",
			config: `{"tls": {"cert_file": "/etc/certs/server.pem", "key_file": "/etc/certs/server.key"}}`,
		},
		{
			name:    "malformed JSON",
			config:  `{"host": `,
			wantErr: "JSON parsing",
		},
		{
			name:    "null byte in string",
			config:  `{"host": "bad\u0000host"}`,
			wantErr: "null byte",
		},
		{
			name:    "control character in string",
			config:  `{"host": "bad\u0001host"}`,
			wantErr: "control character",
		},
		{
			name:    "null byte in key",
			config:  `{"bad\u0000key": 1}`,
			wantErr: "null byte",
		},
		{
			name:   "tab and newline allowed in strings",
			config: `{"banner": "line one\n\tline two"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFactoryConfig(json.RawMessage(tt.config))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFactoryConfig_DepthLimit(t *testing.T) {
	// Build nesting one level past the limit.
	deep := "1"
	for i := 0; i <= maxConfigDepth; i++ {
		deep = fmt.Sprintf(`{"n": %s}`, deep)
	}

	err := ValidateFactoryConfig(json.RawMessage(deep))
	if err == nil {
		t.Fatal("Expected depth error for deeply nested config")
	}
	if !strings.Contains(err.Error(), "depth") {
		t.Errorf("Expected depth error, got: %v", err)
	}
}

func TestValidateFactoryConfig_ArrayLimit(t *testing.T) {
	elems := make([]string, maxConfigEntries+1)
	for i := range elems {
		elems[i] = "1"
	}
	oversized := fmt.Sprintf(`{"values": [%s]}`, strings.Join(elems, ","))

	err := ValidateFactoryConfig(json.RawMessage(oversized))
	if err == nil {
		t.Fatal("Expected array size error")
	}
	if !strings.Contains(err.Error(), "array length") {
		t.Errorf("Expected array length error, got: %v", err)
	}
}

func TestValidateFactoryConfig_StringLimit(t *testing.T) {
	long := strings.Repeat("a", MaxStringLength+1)
	err := ValidateFactoryConfig(json.RawMessage(fmt.Sprintf(`{"v": %q}`, long)))
	if err == nil {
		t.Fatal("Expected string length error")
	}
	if !strings.Contains(err.Error(), "string length") {
		t.Errorf("Expected string length error, got: %v", err)
	}
}

func TestValidateFactoryConfig_SizeLimit(t *testing.T) {
	// A payload past MaxJSONSize is rejected before parsing.
	huge := fmt.Sprintf(`{"v": "%s"}`, strings.Repeat("a", MaxJSONSize))
	err := ValidateFactoryConfig(json.RawMessage(huge))
	if err == nil {
		t.Fatal("Expected size error for oversized config")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Expected size error, got: %v", err)
	}
}

// listenerConfig is a minimal Validatable config used by the
// SafeUnmarshal tests.
type listenerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (c *listenerConfig) Validate() error {
	if c.Port != 0 {
		return ValidatePortNumber(c.Port)
	}
	return nil
}

func TestSafeUnmarshal(t *testing.T) {
	var cfg listenerConfig
	err := SafeUnmarshal(json.RawMessage(`{"host": "127.0.0.1", "port": 8087}`), &cfg)
	if err != nil {
		t.Fatalf("Expected successful unmarshal, got: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 8087 {
		t.Errorf("Unexpected decoded config: %+v", cfg)
	}
}

func TestSafeUnmarshal_EmptyLeavesTargetUntouched(t *testing.T) {
	cfg := listenerConfig{Host: "preset", Port: 9000}
	if err := SafeUnmarshal(nil, &cfg); err != nil {
		t.Fatalf("Expected empty config to be valid, got: %v", err)
	}
	if cfg.Host != "preset" || cfg.Port != 9000 {
		t.Errorf("Empty config should not modify target, got: %+v", cfg)
	}
}

func TestSafeUnmarshal_RejectsNonPointer(t *testing.T) {
	var cfg listenerConfig
	err := SafeUnmarshal(json.RawMessage(`{"port": 1}`), cfg)
	if err == nil {
		t.Fatal("Expected error for non-pointer target")
	}
	if !strings.Contains(err.Error(), "pointer") {
		t.Errorf("Expected pointer error, got: %v", err)
	}
}

func TestSafeUnmarshal_RunsSemanticValidation(t *testing.T) {
	var cfg listenerConfig
	err := SafeUnmarshal(json.RawMessage(`{"port": 70000}`), &cfg)
	if err == nil {
		t.Fatal("Expected Validate error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("Expected port range error, got: %v", err)
	}
}

func TestSafeUnmarshal_RejectsInvalidPayload(t *testing.T) {
	var cfg listenerConfig
	err := SafeUnmarshal(json.RawMessage(`{"host": "x\u0000y"}`), &cfg)
	if err == nil {
		t.Fatal("Expected structural validation error")
	}
}
