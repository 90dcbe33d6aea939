package component

import (
	"context"
	"time"
)

// State is the lifecycle position of a managed component.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateStarted
	StateStopped
	StateFailed
)

func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LifecycleComponent is a Discoverable whose runtime the runner drives.
// Initialize allocates without I/O, Start binds listeners and serves
// under the given context, Stop shuts down within the timeout.
type LifecycleComponent interface {
	Discoverable
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// ManagedComponent pairs a component with the runner-side state needed to
// drive it. The runner owns the per-component child context; components
// only ever receive it as a Start parameter and never store it.
type ManagedComponent struct {
	Component Discoverable
	State     State

	// Child context and its cancel, held so the runner can stop one
	// component without touching the others.
	Context context.Context
	Cancel  context.CancelFunc

	// StartOrder records boot order; shutdown walks it in reverse.
	StartOrder int

	LastError error
}

// IsLifecycleComponent reports whether comp supports lifecycle control.
func IsLifecycleComponent(comp Discoverable) bool {
	_, ok := comp.(LifecycleComponent)
	return ok
}

// AsLifecycleComponent casts comp to LifecycleComponent when it is one.
func AsLifecycleComponent(comp Discoverable) (LifecycleComponent, bool) {
	lc, ok := comp.(LifecycleComponent)
	return lc, ok
}
