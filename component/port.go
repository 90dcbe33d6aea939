package component

import (
	"encoding/json"
	"fmt"

	"github.com/c360/flowgate/errors"
)

// Direction says which way data moves through a port.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port describes one I/O interface of a component: a bound listener, a
// NATS subject, or a request/reply channel.
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	Config      Portable  `json:"config"`
}

// Portable is the contract port configs implement. ResourceID feeds the
// registry's exclusive-resource tracking; IsExclusive says whether two
// components may share the resource.
type Portable interface {
	ResourceID() string
	IsExclusive() bool
	Type() string
}

// InterfaceContract names the message interface a port speaks.
type InterfaceContract struct {
	Type       string   `json:"type"`                 // e.g. "envelope.Request"
	Version    string   `json:"version,omitempty"`    // e.g. "v1"
	Compatible []string `json:"compatible,omitempty"` // also accepted
}

// portConfigEnvelope wraps a Portable on the wire so the concrete type
// survives the round trip through JSON.
type portConfigEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON serializes the port with its config wrapped in a typed
// envelope, since Portable alone carries no type information in JSON.
func (p Port) MarshalJSON() ([]byte, error) {
	type alias Port // break the recursion into this method

	wrapper := struct {
		alias
		Config json.RawMessage `json:"config"`
	}{alias: (alias)(p)}

	if p.Config != nil {
		data, err := json.Marshal(p.Config)
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "config marshaling")
		}
		envelope, err := json.Marshal(portConfigEnvelope{Type: p.Config.Type(), Data: data})
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "envelope marshaling")
		}
		wrapper.Config = envelope
	}

	return json.Marshal(wrapper)
}

// UnmarshalJSON rebuilds the concrete Portable from the typed envelope.
func (p *Port) UnmarshalJSON(data []byte) error {
	type alias Port

	wrapper := struct {
		*alias
		Config json.RawMessage `json:"config"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	// Absent and null both mean "no config"; RawMessage keeps the null
	// literal instead of dropping it.
	if len(wrapper.Config) == 0 || string(wrapper.Config) == "null" {
		return nil
	}

	var envelope portConfigEnvelope
	if err := json.Unmarshal(wrapper.Config, &envelope); err != nil {
		return errors.Wrap(err, "Port", "UnmarshalJSON", "envelope unmarshaling")
	}

	config, err := decodePortConfig(envelope)
	if err != nil {
		return err
	}
	p.Config = config
	return nil
}

func decodePortConfig(envelope portConfigEnvelope) (Portable, error) {
	switch envelope.Type {
	case "network":
		return decodeAs[NetworkPort](envelope)
	case "nats":
		return decodeAs[NATSPort](envelope)
	case "nats-request":
		return decodeAs[NATSRequestPort](envelope)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown config type: %s", envelope.Type),
			"Port", "UnmarshalJSON", "config type validation")
	}
}

func decodeAs[T Portable](envelope portConfigEnvelope) (Portable, error) {
	var config T
	if err := json.Unmarshal(envelope.Data, &config); err != nil {
		return nil, errors.Wrap(err, "Port", "UnmarshalJSON",
			fmt.Sprintf("%s config unmarshaling", envelope.Type))
	}
	return config, nil
}
