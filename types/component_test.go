package types_test

import (
	"encoding/json"
	"testing"

	pkgerrors "github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/types"
)

func TestComponentConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      types.ComponentConfig
		expectError bool
		errorType   string
	}{
		{
			name: "valid gateway component",
			config: types.ComponentConfig{
				Type:    types.ComponentTypeGateway,
				Name:    "http-gateway",
				Enabled: true,
				Config:  json.RawMessage(`{"port": 8087}`),
			},
			expectError: false,
		},
		{
			name: "valid disabled component",
			config: types.ComponentConfig{
				Type:    types.ComponentTypeGateway,
				Name:    "websocket-gateway",
				Enabled: false,
				Config:  nil,
			},
			expectError: false,
		},
		{
			name: "valid component without config",
			config: types.ComponentConfig{
				Type:    types.ComponentTypeGateway,
				Name:    "grpc-gateway",
				Enabled: true,
			},
			expectError: false,
		},
		{
			name: "empty type",
			config: types.ComponentConfig{
				Type:    "",
				Name:    "http-gateway",
				Enabled: true,
			},
			expectError: true,
			errorType:   "invalid",
		},
		{
			name: "empty name",
			config: types.ComponentConfig{
				Type:    types.ComponentTypeGateway,
				Name:    "",
				Enabled: true,
			},
			expectError: true,
			errorType:   "invalid",
		},
		{
			name: "invalid component type",
			config: types.ComponentConfig{
				Type:    types.ComponentType("processor"),
				Name:    "test",
				Enabled: true,
			},
			expectError: true,
			errorType:   "invalid",
		},
		{
			name: "both empty type and name",
			config: types.ComponentConfig{
				Type:    "",
				Name:    "",
				Enabled: true,
			},
			expectError: true,
			errorType:   "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}

				// Verify error classification
				if tt.errorType == "invalid" {
					if !pkgerrors.IsInvalid(err) {
						t.Errorf("expected Invalid error classification, got: %v", err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestComponentTypeString(t *testing.T) {
	tests := []struct {
		name     string
		ct       types.ComponentType
		expected string
	}{
		{
			name:     "gateway type",
			ct:       types.ComponentTypeGateway,
			expected: "gateway",
		},
		{
			name:     "custom type",
			ct:       types.ComponentType("custom"),
			expected: "custom",
		},
		{
			name:     "empty type",
			ct:       types.ComponentType(""),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ct.String()
			if got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestComponentConfig_JSONRoundTrip(t *testing.T) {
	original := types.ComponentConfig{
		Type:    types.ComponentTypeGateway,
		Name:    "http-gateway",
		Enabled: true,
		Config:  json.RawMessage(`{"port":8087,"host":"0.0.0.0"}`),
	}

	// Marshal to JSON
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	// Unmarshal back
	var decoded types.ComponentConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	// Verify fields
	if decoded.Type != original.Type {
		t.Errorf("Type: got %v, want %v", decoded.Type, original.Type)
	}
	if decoded.Name != original.Name {
		t.Errorf("Name: got %v, want %v", decoded.Name, original.Name)
	}
	if decoded.Enabled != original.Enabled {
		t.Errorf("Enabled: got %v, want %v", decoded.Enabled, original.Enabled)
	}
	if string(decoded.Config) != string(original.Config) {
		t.Errorf("Config: got %v, want %v", string(decoded.Config), string(original.Config))
	}
}
