package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowConfig_NameValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError string
	}{
		{
			name: "valid name",
			config: &Config{
				Flow: FlowConfig{
					Name: "search-flow",
				},
			},
			wantError: "",
		},
		{
			name: "name normalized to lowercase",
			config: &Config{
				Flow: FlowConfig{
					Name: "Search-Flow",
				},
			},
			wantError: "",
		},
		{
			name: "missing name",
			config: &Config{
				Flow: FlowConfig{
					Version: "1.0.0",
				},
			},
			wantError: "flow.name is required",
		},
		{
			name: "name with invalid characters",
			config: &Config{
				Flow: FlowConfig{
					Name: "search@flow",
				},
			},
			wantError: "flow.name 'search@flow' is not valid for NATS subjects",
		},
		{
			name: "name with spaces",
			config: &Config{
				Flow: FlowConfig{
					Name: "search flow",
				},
			},
			wantError: "flow.name 'search flow' is not valid for NATS subjects",
		},
		{
			name: "valid name with dots and dashes",
			config: &Config{
				Flow: FlowConfig{
					Name: "search-flow.dev",
				},
			},
			wantError: "",
		},
		{
			name: "valid name with underscores",
			config: &Config{
				Flow: FlowConfig{
					Name: "search_flow",
				},
			},
			wantError: "",
		},
		{
			name: "negative max attempts",
			config: &Config{
				Flow: FlowConfig{
					Name:        "search-flow",
					MaxAttempts: -1,
				},
			},
			wantError: "flow.max_attempts cannot be negative",
		},
		{
			name: "retry budget accepted",
			config: &Config{
				Flow: FlowConfig{
					Name:        "search-flow",
					MaxAttempts: 3,
				},
			},
			wantError: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				// Verify normalization to lowercase
				if tt.name == "name normalized to lowercase" {
					assert.Equal(t, "search-flow", tt.config.Flow.Name, "flow name should be normalized to lowercase")
				}
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestIsValidNATSSubjectPart(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"search-flow", true},
		{"Search-Flow", true}, // Will be lowercased before validation
		{"search_flow", true},
		{"search.flow", true},
		{"123flow", true},
		{"", false},
		{"search@flow", false},
		{"search flow", false},
		{"search#flow", false},
		{"search!flow", false},
		{"search*", false},
		{"search>", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := isValidNATSSubjectPart(tt.input)
			assert.Equal(t, tt.valid, result, "isValidNATSSubjectPart(%q) = %v, want %v", tt.input, result, tt.valid)
		})
	}
}
