// Package endpoint maps logical endpoint names to their exposure policy and
// documentation metadata. The registry is populated once at gateway startup
// from the default endpoint set plus configured custom endpoints, then sealed;
// after sealing it is read-only and safe for lock-free concurrent reads.
package endpoint

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/c360/flowgate/errors"
)

// Descriptor describes one addressable pipeline entry point.
type Descriptor struct {
	Name    string   `json:"name"`              // unique endpoint name, always with a leading slash
	Exposed bool     `json:"exposed"`           // reachable via the public HTTP route table
	Methods []string `json:"methods,omitempty"` // HTTP verbs accepted when exposed, default POST
	Summary string   `json:"summary,omitempty"` // documentation only, never affects routing
	Tags    []string `json:"tags,omitempty"`    // documentation only, never affects routing
}

// AllowsMethod reports whether the descriptor accepts the given HTTP verb.
func (d Descriptor) AllowsMethod(method string) bool {
	for _, m := range d.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Normalize canonicalizes the descriptor: the name gains a leading slash if
// missing, methods are uppercased, and an empty method set defaults to POST.
func (d Descriptor) Normalize() Descriptor {
	if d.Name != "" && !strings.HasPrefix(d.Name, "/") {
		d.Name = "/" + d.Name
	}
	if len(d.Methods) == 0 {
		d.Methods = []string{http.MethodPost}
	} else {
		methods := make([]string, len(d.Methods))
		for i, m := range d.Methods {
			methods[i] = strings.ToUpper(strings.TrimSpace(m))
		}
		d.Methods = methods
	}
	return d
}

// Registry manages endpoint descriptors. Registration is only permitted
// before Seal; lookups after sealing take no lock.
type Registry struct {
	byName map[string]Descriptor
	mu     sync.RWMutex
	sealed atomic.Bool
}

// NewRegistry creates a new empty endpoint registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Descriptor),
	}
}

// Register adds a descriptor to the registry.
// Returns an error if the registry is sealed, the descriptor is invalid, or
// the name is already registered. Duplicate names are a startup
// misconfiguration and classify as fatal; a failed registration leaves the
// registry unchanged.
func (r *Registry) Register(d Descriptor) error {
	if r.sealed.Load() {
		return errors.WrapInvalid(errors.ErrRegistrySealed, "Registry", "Register", "seal check")
	}
	d = d.Normalize()
	if d.Name == "" || d.Name == "/" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "endpoint name validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		msg := fmt.Errorf("%w: endpoint %q is already registered", errors.ErrDuplicateEndpoint, d.Name)
		return errors.WrapFatal(msg, "Registry", "Register", "duplicate endpoint check")
	}

	r.byName[d.Name] = d
	return nil
}

// Seal marks the registry read-only. Further Register calls fail; lookups no
// longer take the read lock.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

// Sealed reports whether the registry has been sealed.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Resolve returns the descriptor registered under the given name.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	d, exists := r.byName[name]
	if !exists {
		msg := fmt.Errorf("%w: %q", errors.ErrUnknownEndpoint, name)
		return Descriptor{}, errors.WrapInvalid(msg, "Registry", "Resolve", "endpoint lookup")
	}
	return d, nil
}

// ListExposed returns the descriptors reachable via the public HTTP surface,
// sorted by name so the derived route table and documentation are
// deterministic.
func (r *Registry) ListExposed() []Descriptor {
	return r.list(true)
}

// List returns every registered descriptor sorted by name.
func (r *Registry) List() []Descriptor {
	return r.list(false)
}

func (r *Registry) list(exposedOnly bool) []Descriptor {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	// Return copies to prevent external modification
	result := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		if exposedOnly && !d.Exposed {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	return len(r.byName)
}
