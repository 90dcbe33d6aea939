package endpoint

import (
	"net/http"

	"github.com/c360/flowgate/errors"
)

// StatusRoute is the always-present liveness route on the HTTP surface. It is
// served by the HTTP adapter directly and deliberately absent from the
// registry: exposure settings never affect it.
const StatusRoute = "/status"

// PostRoute is the generic-submit debug endpoint. On the HTTP surface the
// adapter honors the exec endpoint named inside the request body instead of
// the route path.
const PostRoute = "/post"

// DefaultsOptions controls which default endpoint categories are registered
// at startup. Suppression is a registration-time filter: a suppressed
// category simply never enters the registry, so it costs nothing at dispatch.
type DefaultsOptions struct {
	NoCRUDEndpoints  bool // suppress /index, /search, /update, /delete
	NoDebugEndpoints bool // suppress /post, /dry_run
}

func crudEndpoints() []Descriptor {
	return []Descriptor{
		{Name: "/index", Exposed: true, Methods: []string{http.MethodPost},
			Summary: "Index documents into the flow", Tags: []string{"CRUD"}},
		{Name: "/search", Exposed: true, Methods: []string{http.MethodPost},
			Summary: "Search documents through the flow", Tags: []string{"CRUD"}},
		{Name: "/update", Exposed: true, Methods: []string{http.MethodPost},
			Summary: "Update documents through the flow", Tags: []string{"CRUD"}},
		{Name: "/delete", Exposed: true, Methods: []string{http.MethodPost},
			Summary: "Delete documents through the flow", Tags: []string{"CRUD"}},
	}
}

func debugEndpoints() []Descriptor {
	return []Descriptor{
		{Name: PostRoute, Exposed: true, Methods: []string{http.MethodPost},
			Summary: "Submit a request to any exec endpoint of the flow", Tags: []string{"Debug"}},
		{Name: "/dry_run", Exposed: true, Methods: []string{http.MethodGet},
			Summary: "Send an empty request through the flow to verify connectivity", Tags: []string{"Debug"}},
	}
}

// RegisterDefaults registers the default CRUD and debug endpoint categories,
// honoring the suppression flags.
func RegisterDefaults(r *Registry, opts DefaultsOptions) error {
	if !opts.NoCRUDEndpoints {
		for _, d := range crudEndpoints() {
			if err := r.Register(d); err != nil {
				return errors.Wrap(err, "Registry", "RegisterDefaults", "CRUD endpoint registration")
			}
		}
	}
	if !opts.NoDebugEndpoints {
		for _, d := range debugEndpoints() {
			if err := r.Register(d); err != nil {
				return errors.Wrap(err, "Registry", "RegisterDefaults", "debug endpoint registration")
			}
		}
	}
	return nil
}

// BuildRegistry creates a sealed registry holding the default categories plus
// the given custom endpoint declarations. A custom name colliding with a
// default name is a fatal misconfiguration: the whole build fails rather than
// serving a partially-initialized registry.
func BuildRegistry(opts DefaultsOptions, custom []Descriptor) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterDefaults(r, opts); err != nil {
		return nil, err
	}
	for _, d := range custom {
		if err := r.Register(d); err != nil {
			return nil, errors.Wrap(err, "Registry", "BuildRegistry", "custom endpoint registration")
		}
	}
	r.Seal()
	return r, nil
}
