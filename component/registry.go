package component

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/types"
)

// Info is the public metadata for an available component type.
type Info struct {
	Type        string `json:"type"`
	Protocol    string `json:"protocol"` // http, websocket, grpc
	Domain      string `json:"domain"`   // serving, network
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Factory builds a component instance from its raw JSON configuration and
// the shared dependencies. Factories parse and validate their own config
// and must not perform I/O; listeners are bound in Start.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Discoverable, error)

// Registration is a factory plus its static metadata. The schema lives
// here so discovery and export can read it without instantiating anything.
type Registration struct {
	Name         string       `json:"name"` // factory name, e.g. "http-gateway"
	Type         string       `json:"type"`
	Protocol     string       `json:"protocol"`
	Domain       string       `json:"domain"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	Schema       ConfigSchema `json:"schema"`
	Factory      Factory      `json:"-"`
	Dependencies []string     `json:"dependencies"`
}

// RegistrationConfig is the argument struct for RegisterWithConfig. Its
// fields map 1:1 onto Registration.
type RegistrationConfig struct {
	Name        string
	Factory     Factory
	Schema      ConfigSchema
	Type        string
	Protocol    string // http, websocket, grpc
	Domain      string // serving, network
	Description string
	Version     string
}

// Registry holds component factories and the instances created from them.
// Factories answer "what can run here", instances answer "what is running
// now"; both lookups are safe for concurrent use.
type Registry struct {
	factories map[string]*Registration
	instances map[string]Discoverable
	resources map[string]string // exclusive resource ID -> owning instance
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
		instances: make(map[string]Discoverable),
		resources: make(map[string]string),
	}
}

// RegisterWithConfig registers a component factory. This is the normal
// registration path:
//
//	registry.RegisterWithConfig(component.RegistrationConfig{
//	    Name:        "http-gateway",
//	    Factory:     httpapi.New,
//	    Schema:      httpSchema,
//	    Type:        "gateway",
//	    Protocol:    "http",
//	    Domain:      "serving",
//	    Description: "HTTP protocol adapter serving flow exec endpoints",
//	    Version:     "1.0.0",
//	})
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	return r.RegisterFactory(config.Name, &Registration{
		Name:        config.Name,
		Factory:     config.Factory,
		Schema:      config.Schema,
		Type:        config.Type,
		Protocol:    config.Protocol,
		Domain:      config.Domain,
		Description: config.Description,
		Version:     config.Version,
	})
}

// RegisterFactory adds a factory under the given name. Duplicate names,
// nil factories and registrations without a component type are rejected.
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	switch {
	case name == "":
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterFactory", "factory name validation")
	case registration == nil:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterFactory", "registration validation")
	case registration.Factory == nil:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterFactory", "factory function validation")
	case registration.Type == "":
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterFactory", "component type validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.factories[name]; taken {
		return errors.WrapInvalid(
			fmt.Errorf("factory '%s' is already registered", name),
			"Registry", "RegisterFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// CreateComponent builds an instance through a registered factory and
// registers it under instanceName. The raw config passes the structural
// checks and the factory's declared schema before the factory ever sees
// it, so injection attempts and misconfigurations fail here with a
// uniform error instead of surfacing inside adapter code.
func (r *Registry) CreateComponent(
	instanceName string, config types.ComponentConfig, deps Dependencies,
) (Discoverable, error) {
	if err := ValidateComponentName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance name validation")
	}
	if config.Type == "" {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "Registry", "CreateComponent", "component type validation")
	}
	if err := ValidateComponentName(config.Name); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "factory name validation")
	}

	// The dispatcher is the one dependency every protocol adapter needs.
	// NATS stays optional so a gateway can front an in-process flow.
	if deps.Dispatcher == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "CreateComponent", "dispatcher validation")
	}

	if err := ValidateFactoryConfig(config.Config); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "config security validation")
	}

	registration, err := r.lookupFactory(config)
	if err != nil {
		return nil, err
	}

	if err := ValidateAgainstSchema(config.Config, registration.Schema); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "schema validation")
	}

	component, err := registration.Factory(config.Config, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "factory execution")
	}

	if err := r.RegisterInstance(instanceName, component); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance registration")
	}

	return component, nil
}

// lookupFactory resolves the factory named in the config and checks that
// its registered type matches the requested one.
func (r *Registry) lookupFactory(config types.ComponentConfig) (*Registration, error) {
	r.mu.RLock()
	registration, found := r.factories[config.Name]
	r.mu.RUnlock()

	if !found {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown component factory '%s'", config.Name),
			"Registry", "CreateComponent", "factory lookup")
	}
	if registration.Type != string(config.Type) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("component '%s' is type '%s', not '%s'",
				config.Name, registration.Type, config.Type),
			"Registry", "CreateComponent", "type validation")
	}
	return registration, nil
}

// RegisterInstance adds a running instance under a unique name and claims
// its exclusive resources, so two adapters can never bind the same port.
func (r *Registry) RegisterInstance(name string, component Discoverable) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterInstance", "instance name validation")
	}
	if component == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "RegisterInstance", "component validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.instances[name]; taken {
		return errors.WrapInvalid(
			fmt.Errorf("instance '%s' is already registered", name),
			"Registry", "RegisterInstance", "duplicate instance check")
	}

	if err := r.claimResources(name, component); err != nil {
		return errors.Wrap(err, "Registry", "RegisterInstance", "resource conflict check")
	}

	r.instances[name] = component
	return nil
}

// UnregisterInstance drops an instance and releases its exclusive
// resources. Unknown names are a no-op.
func (r *Registry) UnregisterInstance(name string) {
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if component, found := r.instances[name]; found {
		r.releaseResources(name, component)
	}
	delete(r.instances, name)
}

// Component returns the instance registered under name, or nil.
func (r *Registry) Component(name string) Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[name]
}

// ListComponents returns a copy of the instance table. The status surface
// uses this to report on running adapters.
func (r *Registry) ListComponents() map[string]Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Discoverable, len(r.instances))
	maps.Copy(out, r.instances)
	return out
}

// ListComponentTypes returns the registered factory names.
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// GetComponentSchema returns the config schema a factory registered.
// Schemas are static metadata, so no factory runs here.
func (r *Registry) GetComponentSchema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, found := r.factories[name]
	if !found {
		return ConfigSchema{}, errors.WrapInvalid(
			fmt.Errorf("component type %q not found", name),
			"Registry", "GetComponentSchema", "type lookup")
	}
	return registration.Schema, nil
}

// GetFactory returns the factory function registered under name.
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, found := r.factories[name]
	if !found {
		return nil, false
	}
	return registration.Factory, true
}

// ListFactories returns copies of every registration with the factory
// function stripped, keeping callers from invoking factories they found
// by iteration. Schema and metadata are included; the schema exporter
// reads them from here.
func (r *Registry) ListFactories() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Registration, len(r.factories))
	for name, reg := range r.factories {
		out[name] = &Registration{
			Name:         reg.Name,
			Type:         reg.Type,
			Protocol:     reg.Protocol,
			Domain:       reg.Domain,
			Description:  reg.Description,
			Version:      reg.Version,
			Schema:       reg.Schema,
			Dependencies: reg.Dependencies,
		}
	}
	return out
}

// ListAvailable returns the Info view of every registered factory.
func (r *Registry) ListAvailable() map[string]Info {
	factories := r.ListFactories()

	out := make(map[string]Info, len(factories))
	for name, reg := range factories {
		out[name] = Info{
			Type:        reg.Type,
			Protocol:    reg.Protocol,
			Domain:      reg.Domain,
			Description: reg.Description,
			Version:     reg.Version,
		}
	}
	return out
}

// exclusivePorts filters a component's ports down to the ones whose
// config claims an exclusive resource, a listener address for instance.
func exclusivePorts(component Discoverable) []Port {
	all := append(component.InputPorts(), component.OutputPorts()...)

	var exclusive []Port
	for _, port := range all {
		if port.Config != nil && port.Config.IsExclusive() {
			exclusive = append(exclusive, port)
		}
	}
	return exclusive
}

// claimResources records ownership of the component's exclusive resources
// after verifying none is held by another instance. Callers hold r.mu.
func (r *Registry) claimResources(instanceName string, component Discoverable) error {
	ports := exclusivePorts(component)

	for _, port := range ports {
		if networkPort, ok := port.Config.(NetworkPort); ok {
			if err := ValidatePortNumber(networkPort.Port); err != nil {
				return errors.Wrap(err, "Registry", "claimResources", "network port validation")
			}
		}

		id := port.Config.ResourceID()
		if holder, held := r.resources[id]; held {
			return errors.WrapInvalid(
				fmt.Errorf("resource conflict: %s already used by component '%s'", id, holder),
				"Registry", "claimResources", "exclusive resource check")
		}
	}

	for _, port := range ports {
		r.resources[port.Config.ResourceID()] = instanceName
	}
	return nil
}

// releaseResources drops the resource claims held by an instance. Callers
// hold r.mu.
func (r *Registry) releaseResources(instanceName string, component Discoverable) {
	for _, port := range exclusivePorts(component) {
		id := port.Config.ResourceID()
		if r.resources[id] == instanceName {
			delete(r.resources, id)
		}
	}
}
