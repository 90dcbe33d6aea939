package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowgate/errors"
)

func TestParseGraph(t *testing.T) {
	graph, err := ParseGraph(`{"start-gateway": ["exec0"], "exec0": ["end-gateway"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"exec0"}, graph[StartVertex])
	assert.Equal(t, []string{EndVertex}, graph["exec0"])

	_, err = ParseGraph(`{not json`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)
}

func TestParseAddresses(t *testing.T) {
	addresses, err := ParseAddresses(`{"exec0": ["grpc://127.0.0.1:8081"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"grpc://127.0.0.1:8081"}, addresses["exec0"])

	_, err = ParseAddresses(`[]`)
	assert.Error(t, err)
}

func TestFromConfig_Defaults(t *testing.T) {
	topo, err := FromConfig("", "")
	require.NoError(t, err)

	stages, err := topo.Stages()
	require.NoError(t, err)
	assert.Empty(t, stages, "empty config yields the trivial echo flow")
}

func TestFromConfig_FullTopology(t *testing.T) {
	topo, err := FromConfig(
		`{"start-gateway": ["exec0"], "exec0": ["exec1"], "exec1": ["end-gateway"]}`,
		`{"exec0": ["grpc://127.0.0.1:8081"], "exec1": ["grpc://127.0.0.1:8082"]}`,
	)
	require.NoError(t, err)

	stages, err := topo.Stages()
	require.NoError(t, err)
	assert.Equal(t, []string{"exec0", "exec1"}, stages)
	assert.Equal(t, []string{"grpc://127.0.0.1:8081"}, topo.AddressesOf("exec0"))
	assert.Nil(t, topo.AddressesOf("exec9"))
}

func TestTopology_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   map[string][]string
		wantErr string
	}{
		{
			name:  "minimal valid",
			graph: map[string][]string{StartVertex: {EndVertex}},
		},
		{
			name: "linear chain",
			graph: map[string][]string{
				StartVertex: {"exec0"},
				"exec0":     {"exec1"},
				"exec1":     {EndVertex},
			},
		},
		{
			name: "implicit terminal stage",
			graph: map[string][]string{
				StartVertex: {"exec0"},
			},
		},
		{
			name:    "empty graph",
			graph:   map[string][]string{},
			wantErr: "empty",
		},
		{
			name:    "missing start",
			graph:   map[string][]string{"exec0": {EndVertex}},
			wantErr: "start-gateway",
		},
		{
			name: "end with outgoing edges",
			graph: map[string][]string{
				StartVertex: {EndVertex},
				EndVertex:   {"exec0"},
			},
			wantErr: "terminal",
		},
		{
			name: "unreachable stage",
			graph: map[string][]string{
				StartVertex: {EndVertex},
				"orphan":    {EndVertex},
			},
			wantErr: "not reachable",
		},
		{
			name: "cycle",
			graph: map[string][]string{
				StartVertex: {"exec0"},
				"exec0":     {"exec1"},
				"exec1":     {"exec0"},
			},
			wantErr: "cycle",
		},
		{
			name: "route back to start",
			graph: map[string][]string{
				StartVertex: {"exec0"},
				"exec0":     {StartVertex},
			},
			wantErr: "routes back",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := &Topology{Graph: tt.graph}
			err := topo.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTopology_StagesBranchOrderDeterministic(t *testing.T) {
	topo := &Topology{Graph: map[string][]string{
		StartVertex: {"b", "a"},
		"a":         {"c"},
		"b":         {"c"},
		"c":         {EndVertex},
	}}

	first, err := topo.Stages()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, first)

	// Repeated computation over the same graph stays stable despite map
	// iteration order.
	for i := 0; i < 10; i++ {
		again, err := topo.Stages()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTopology_Executors(t *testing.T) {
	topo := &Topology{Graph: map[string][]string{
		StartVertex: {"indexer"},
		"indexer":   {"ranker"},
		"ranker":    {EndVertex},
	}}

	assert.Equal(t, []string{"indexer", "ranker"}, topo.Executors())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yml")
	content := `graph:
  start-gateway: [exec0]
  exec0: [end-gateway]
addresses:
  exec0: ["grpc://127.0.0.1:8081"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	topo, err := LoadFile(path)
	require.NoError(t, err)

	stages, err := topo.Stages()
	require.NoError(t, err)
	assert.Equal(t, []string{"exec0"}, stages)
	assert.Equal(t, []string{"grpc://127.0.0.1:8081"}, topo.AddressesOf("exec0"))
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("graph: [not, a, map]"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)

	// Structurally valid YAML that fails topology validation.
	noStart := filepath.Join(dir, "nostart.yml")
	require.NoError(t, os.WriteFile(noStart, []byte("graph:\n  exec0: [end-gateway]\n"), 0o600))
	_, err = LoadFile(noStart)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
