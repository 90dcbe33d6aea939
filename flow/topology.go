package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/c360/flowgate/errors"
)

// Vertex names reserved for the gateway's own position in the flow graph.
// Every path starts at StartVertex; paths terminate at EndVertex, either
// explicitly or implicitly when a stage has no outgoing edges.
const (
	StartVertex = "start-gateway"
	EndVertex   = "end-gateway"
)

// Topology describes the executor pipeline: an adjacency list rooted at
// start-gateway and the deployed network addresses of each executor.
type Topology struct {
	Graph     map[string][]string `json:"graph"     yaml:"graph"`
	Addresses map[string][]string `json:"addresses" yaml:"addresses"`
}

// ParseGraph decodes the inline JSON form of the flow graph, e.g.
// {"start-gateway": ["exec0"], "exec0": ["end-gateway"]}.
func ParseGraph(raw string) (map[string][]string, error) {
	var graph map[string][]string
	if err := json.Unmarshal([]byte(raw), &graph); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Topology", "ParseGraph", "decode graph JSON")
	}
	return graph, nil
}

// ParseAddresses decodes the inline JSON form of the executor addresses,
// e.g. {"exec0": ["grpc://127.0.0.1:8081"]}.
func ParseAddresses(raw string) (map[string][]string, error) {
	var addresses map[string][]string
	if err := json.Unmarshal([]byte(raw), &addresses); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Topology", "ParseAddresses", "decode addresses JSON")
	}
	return addresses, nil
}

// FromConfig assembles and validates a topology from the inline JSON strings
// carried in configuration. An empty graph string yields the trivial topology
// with no executors.
func FromConfig(graphJSON, addressesJSON string) (*Topology, error) {
	t := &Topology{
		Graph:     map[string][]string{StartVertex: {EndVertex}},
		Addresses: map[string][]string{},
	}

	if graphJSON != "" {
		graph, err := ParseGraph(graphJSON)
		if err != nil {
			return nil, err
		}
		t.Graph = graph
	}
	if addressesJSON != "" {
		addresses, err := ParseAddresses(addressesJSON)
		if err != nil {
			return nil, err
		}
		t.Addresses = addresses
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads and validates a topology from a YAML flow file:
//
//	graph:
//	  start-gateway: [exec0]
//	  exec0: [end-gateway]
//	addresses:
//	  exec0: ["grpc://127.0.0.1:8081"]
func LoadFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Topology", "LoadFile", "read flow file")
	}

	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Topology", "LoadFile", "decode flow file")
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the structural invariants of the flow graph: the start
// vertex must be present, the end vertex must be terminal, every stage must
// be reachable from the start, and the graph must be acyclic.
func (t *Topology) Validate() error {
	if len(t.Graph) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: flow graph is empty", errors.ErrInvalidConfig),
			"Topology", "Validate", "structure check")
	}
	if _, ok := t.Graph[StartVertex]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: flow graph must contain %q", errors.ErrInvalidConfig, StartVertex),
			"Topology", "Validate", "structure check")
	}
	if targets, ok := t.Graph[EndVertex]; ok && len(targets) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q must be terminal, found outgoing edges %v",
				errors.ErrInvalidConfig, EndVertex, targets),
			"Topology", "Validate", "structure check")
	}
	for v, targets := range t.Graph {
		for _, next := range targets {
			if next == StartVertex {
				return errors.WrapInvalid(
					fmt.Errorf("%w: stage %q routes back to %q",
						errors.ErrInvalidConfig, v, StartVertex),
					"Topology", "Validate", "structure check")
			}
		}
	}

	reachable := t.walk()
	for stage := range t.Graph {
		if stage == EndVertex {
			continue
		}
		if !reachable[stage] {
			return errors.WrapInvalid(
				fmt.Errorf("%w: stage %q is not reachable from %q",
					errors.ErrInvalidConfig, stage, StartVertex),
				"Topology", "Validate", "structure check")
		}
	}

	if _, err := t.Stages(); err != nil {
		return err
	}
	return nil
}

// walk returns the set of vertices reachable from the start vertex.
func (t *Topology) walk() map[string]bool {
	reachable := map[string]bool{StartVertex: true}
	frontier := []string{StartVertex}
	for len(frontier) > 0 {
		v := frontier[0]
		frontier = frontier[1:]
		for _, next := range t.Graph[v] {
			if !reachable[next] {
				reachable[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return reachable
}

// Stages returns the executor names in a deterministic topological order,
// excluding the gateway vertices. Used by the in-process flow to run stages
// sequentially. A cycle in the graph is reported as a configuration error.
func (t *Topology) Stages() ([]string, error) {
	// Kahn's algorithm over the reachable subgraph; ready vertices are
	// processed in sorted order so the result is stable across runs.
	reachable := t.walk()
	indegree := make(map[string]int)
	for v := range reachable {
		if v == StartVertex || v == EndVertex {
			continue
		}
		indegree[v] = 0
	}
	for v, targets := range t.Graph {
		if !reachable[v] {
			continue
		}
		for _, next := range targets {
			if next == StartVertex || next == EndVertex {
				continue
			}
			indegree[next]++
		}
	}
	// Edges out of the start vertex do not count toward ordering.
	for _, next := range t.Graph[StartVertex] {
		if next != EndVertex {
			indegree[next]--
		}
	}

	var ready []string
	for v, deg := range indegree {
		if deg <= 0 {
			ready = append(ready, v)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)

		var woke []string
		for _, next := range t.Graph[v] {
			if next == StartVertex || next == EndVertex {
				continue
			}
			indegree[next]--
			if indegree[next] == 0 {
				woke = append(woke, next)
			}
		}
		sort.Strings(woke)
		ready = append(ready, woke...)
	}

	if len(order) != len(indegree) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: flow graph contains a cycle", errors.ErrInvalidConfig),
			"Topology", "Stages", "order stages")
	}
	return order, nil
}

// Executors returns the sorted executor names present in the graph,
// excluding the gateway vertices.
func (t *Topology) Executors() []string {
	seen := make(map[string]bool)
	for v, targets := range t.Graph {
		if v != StartVertex && v != EndVertex {
			seen[v] = true
		}
		for _, next := range targets {
			if next != StartVertex && next != EndVertex {
				seen[next] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for v := range seen {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// AddressesOf returns the deployed addresses of the named executor, or nil
// when none are configured.
func (t *Topology) AddressesOf(executor string) []string {
	return t.Addresses[executor]
}
