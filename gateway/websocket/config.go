package websocket

import (
	"reflect"
	"time"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/gateway"
	"github.com/c360/flowgate/pkg/tlsutil"
)

// wsGatewaySchema defines the configuration schema for the WebSocket gateway
// component, generated once from the config struct tags.
var wsGatewaySchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the WebSocket gateway component.
type Config struct {
	// Host is the bind address (default 0.0.0.0)
	Host string `json:"host,omitempty" schema:"type:string,description:Bind address,default:0.0.0.0,category:basic"`

	// Port is the WebSocket listen port
	Port int `json:"port" schema:"type:int,description:WebSocket listen port,min:1,max:65535,default:8088,category:basic"`

	// Path is the upgrade endpoint path (default "/")
	Path string `json:"path,omitempty" schema:"type:string,description:WebSocket upgrade path,default:/,category:basic"`

	// RequestTimeout bounds each pipeline dispatch (default "5s")
	RequestTimeout string `json:"request_timeout,omitempty" schema:"type:string,description:Per-request pipeline timeout,default:5s,category:advanced"`

	// MaxMessageSize limits inbound frame size in bytes (default: 1MB)
	MaxMessageSize int64 `json:"max_message_size,omitempty" schema:"type:int,description:Max inbound frame size (bytes),category:advanced"`

	// MessageRateLimit caps inbound frames per second per connection
	// (0 disables limiting)
	MessageRateLimit float64 `json:"message_rate_limit,omitempty" schema:"type:float,description:Frames per second per connection (0 = unlimited),category:limits"`

	// MessageRateBurst is the burst allowance for the rate limiter
	MessageRateBurst int `json:"message_rate_burst,omitempty" schema:"type:int,description:Rate limiter burst size,category:limits"`

	// ReadBufferSize is the connection read buffer size (default 4096)
	ReadBufferSize int `json:"read_buffer_size,omitempty" schema:"type:int,description:WebSocket read buffer size,category:advanced"`

	// WriteBufferSize is the connection write buffer size (default 4096)
	WriteBufferSize int `json:"write_buffer_size,omitempty" schema:"type:int,description:WebSocket write buffer size,category:advanced"`

	// EnableCompression enables per-message compression negotiation
	EnableCompression bool `json:"enable_compression,omitempty" schema:"type:bool,description:Enable per-message compression,category:advanced"`

	// PingInterval is the keepalive ping cadence (default "30s", "0" disables)
	PingInterval string `json:"ping_interval,omitempty" schema:"type:string,description:Keepalive ping interval,default:30s,category:advanced"`

	// TLSCertFile and TLSKeyFile enable TLS termination when both are set
	TLSCertFile string `json:"tls_cert_file,omitempty" schema:"type:string,description:TLS certificate file path,category:security"`
	TLSKeyFile  string `json:"tls_key_file,omitempty" schema:"type:string,description:TLS private key file path,category:security"`

	// TLSClientCAFile switches the listener to mutual TLS
	TLSClientCAFile string `json:"tls_client_ca_file,omitempty" schema:"type:string,description:CA bundle for client certificate verification,category:security"`

	// TLSMinVersion is the minimum accepted protocol version (default "1.2")
	TLSMinVersion string `json:"tls_min_version,omitempty" schema:"type:string,description:Minimum TLS version (1.2 or 1.3),category:security"`

	// timeout and pingInterval are the parsed durations (internal use)
	timeout      time.Duration
	pingInterval time.Duration
}

// Validate ensures the WebSocket gateway configuration is valid and applies
// defaults for omitted fields.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8088
	}
	if err := component.ValidatePortNumber(c.Port); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "port validation")
	}
	if c.Path == "" {
		c.Path = "/"
	}

	timeout, err := gateway.ParseRequestTimeout(c.RequestTimeout)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "request_timeout validation")
	}
	c.timeout = timeout

	size, err := gateway.NormalizeMaxRequestSize(c.MaxMessageSize)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "max_message_size validation")
	}
	c.MaxMessageSize = size

	if c.MessageRateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"message_rate_limit cannot be negative")
	}
	if c.MessageRateLimit > 0 && c.MessageRateBurst == 0 {
		c.MessageRateBurst = defaultRateBurst
	}

	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 4096
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = 4096
	}

	switch c.PingInterval {
	case "":
		c.pingInterval = defaultPingInterval
	case "0":
		c.pingInterval = 0
	default:
		interval, err := time.ParseDuration(c.PingInterval)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "ping_interval validation")
		}
		if interval < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"ping_interval cannot be negative")
		}
		c.pingInterval = interval
	}

	if err := gateway.ValidateTLSFilePair(c.TLSCertFile, c.TLSKeyFile); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "TLS validation")
	}
	if err := gateway.ValidateTLSClientCA(c.TLSClientCAFile, c.TLSCertFile); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "TLS client CA validation")
	}
	if err := gateway.ValidateTLSMinVersion(c.TLSMinVersion); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "TLS version validation")
	}

	return nil
}

// Timeout returns the parsed per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.timeout == 0 {
		return gateway.DefaultRequestTimeout
	}
	return c.timeout
}

// TLSEnabled reports whether the listener terminates TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// ServerTLS collects the listener's TLS settings.
func (c *Config) ServerTLS() tlsutil.ServerConfig {
	return tlsutil.ServerConfig{
		CertFile:     c.TLSCertFile,
		KeyFile:      c.TLSKeyFile,
		ClientCAFile: c.TLSClientCAFile,
		MinVersion:   c.TLSMinVersion,
	}
}

const (
	defaultPingInterval = 30 * time.Second
	defaultRateBurst    = 16
)

// DefaultConfig returns default WebSocket gateway configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8088,
		Path:            "/",
		RequestTimeout:  "5s",
		MaxMessageSize:  gateway.DefaultMaxRequestSize,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		PingInterval:    "30s",
	}
}
