package grpc

import (
	"encoding/json"
	"sync/atomic"
)

// jsonCodec marshals gRPC messages as plain JSON. The envelope is schemaless
// JSON on every transport, so the gRPC surface uses the same wire form
// instead of a generated protobuf schema.
type jsonCodec struct {
	// Optional byte counters, shared with the owning gateway.
	rx *atomic.Uint64
	tx *atomic.Uint64
}

// newCountingCodec returns a JSON codec that adds message sizes to the given
// counters.
func newCountingCodec(rx, tx *atomic.Uint64) jsonCodec {
	return jsonCodec{rx: rx, tx: tx}
}

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		c.tx.Add(uint64(len(data)))
	}
	return data, nil
}

func (c jsonCodec) Unmarshal(data []byte, v any) error {
	if c.rx != nil {
		c.rx.Add(uint64(len(data)))
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
