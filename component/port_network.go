package component

import "fmt"

// NetworkPort declares a listening socket. Every gateway adapter exposes
// one as its input port; the registry uses the ResourceID to refuse two
// adapters binding the same address.
type NetworkPort struct {
	Protocol string `json:"protocol"` // tcp, http, websocket, grpc
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// ResourceID identifies the bound address for conflict detection.
func (n NetworkPort) ResourceID() string {
	return fmt.Sprintf("%s:%s:%d", n.Protocol, n.Host, n.Port)
}

// IsExclusive reports true: only one component can bind a socket.
func (n NetworkPort) IsExclusive() bool {
	return true
}

// Type returns the wire tag used when ports are serialized.
func (n NetworkPort) Type() string {
	return "network"
}
