package grpc

import (
	"reflect"
	"time"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/gateway"
	"github.com/c360/flowgate/pkg/tlsutil"
)

// grpcGatewaySchema is generated once at package initialization
var grpcGatewaySchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds gRPC gateway configuration.
type Config struct {
	// Host is the bind address (default 0.0.0.0)
	Host string `json:"host,omitempty" schema:"type:string,description:Bind address,default:0.0.0.0,category:basic"`

	// Port is the gRPC listen port
	Port int `json:"port" schema:"type:int,description:gRPC listen port,min:1,max:65535,default:50051,category:basic"`

	// RequestTimeout bounds each pipeline dispatch (default "5s")
	RequestTimeout string `json:"request_timeout,omitempty" schema:"type:string,description:Per-request pipeline timeout,default:5s,category:advanced"`

	// MaxRecvMsgSize limits inbound message size in bytes (default: 1MB)
	MaxRecvMsgSize int64 `json:"max_recv_msg_size,omitempty" schema:"type:int,description:Max inbound message size (bytes),category:advanced"`

	// TLSCertFile and TLSKeyFile enable transport security when both are set
	TLSCertFile string `json:"tls_cert_file,omitempty" schema:"type:string,description:TLS certificate file path,category:security"`
	TLSKeyFile  string `json:"tls_key_file,omitempty" schema:"type:string,description:TLS private key file path,category:security"`

	// TLSClientCAFile switches the listener to mutual TLS
	TLSClientCAFile string `json:"tls_client_ca_file,omitempty" schema:"type:string,description:CA bundle for client certificate verification,category:security"`

	// TLSMinVersion is the minimum accepted protocol version (default "1.2")
	TLSMinVersion string `json:"tls_min_version,omitempty" schema:"type:string,description:Minimum TLS version (1.2 or 1.3),category:security"`

	timeout time.Duration
}

// Validate ensures the gRPC gateway configuration is valid and applies
// defaults for omitted fields.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 50051
	}
	if err := component.ValidatePortNumber(c.Port); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "port validation")
	}

	timeout, err := gateway.ParseRequestTimeout(c.RequestTimeout)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "request_timeout validation")
	}
	c.timeout = timeout

	size, err := gateway.NormalizeMaxRequestSize(c.MaxRecvMsgSize)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "max_recv_msg_size validation")
	}
	c.MaxRecvMsgSize = size

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

// TLSEnabled reports whether transport security is configured.
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

// DefaultConfig returns default gRPC gateway configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           50051,
		RequestTimeout: "5s",
		MaxRecvMsgSize: gateway.DefaultMaxRequestSize,
	}
}
