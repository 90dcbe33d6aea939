// Package gateway holds the configuration rules shared by the protocol
// adapter components. Each adapter declares its own flat config struct for
// schema generation and applies these bounds in its Validate method, so the
// three listeners agree on timeout, body size, and CORS policy.
package gateway

import (
	"fmt"
	"os"
	"time"

	"github.com/c360/flowgate/errors"
)

// Request timeout bounds applied to every adapter's per-request pipeline
// deadline.
const (
	// DefaultRequestTimeout is used when an adapter config omits the timeout.
	DefaultRequestTimeout = 5 * time.Second
	// MinRequestTimeout is the smallest accepted per-request timeout.
	MinRequestTimeout = 100 * time.Millisecond
	// MaxRequestTimeout is the largest accepted per-request timeout.
	MaxRequestTimeout = 30 * time.Second
)

// Request body size bounds for adapters that read client payloads.
const (
	// DefaultMaxRequestSize is applied when an adapter config omits the limit.
	DefaultMaxRequestSize = 1024 * 1024 // 1MB
	// MaxAllowedRequestSize caps the configurable limit.
	MaxAllowedRequestSize = 100 * 1024 * 1024 // 100MB
)

// ParseRequestTimeout parses a configured request timeout. An empty value
// yields the default; parse failures and values outside the accepted range
// are rejected.
func ParseRequestTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultRequestTimeout, nil
	}

	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Gateway", "ParseRequestTimeout",
			fmt.Sprintf("invalid timeout format: %s", raw))
	}

	if timeout < MinRequestTimeout || timeout > MaxRequestTimeout {
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "ParseRequestTimeout",
			fmt.Sprintf("timeout must be between %v and %v", MinRequestTimeout, MaxRequestTimeout))
	}

	return timeout, nil
}

// NormalizeMaxRequestSize applies the default and bounds to a configured body
// size limit. Zero selects the default; negative values and values above the
// cap are rejected.
func NormalizeMaxRequestSize(size int64) (int64, error) {
	if size < 0 {
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "NormalizeMaxRequestSize",
			"max_request_size cannot be negative")
	}

	if size == 0 {
		return DefaultMaxRequestSize, nil
	}

	if size > MaxAllowedRequestSize {
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "NormalizeMaxRequestSize",
			"max_request_size cannot exceed 100MB")
	}

	return size, nil
}

// ValidateCORSOrigins ensures origin allow-lists are explicit whenever CORS
// is enabled. An empty list with CORS off is fine.
func ValidateCORSOrigins(enabled bool, origins []string) error {
	if enabled && len(origins) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "ValidateCORSOrigins",
			"enable_cors requires explicit cors_origins configuration (use [\"*\"] for development only)")
	}
	return nil
}

// ValidateTLSFilePair checks a certificate/key file pair: both must be set
// together, and both files must exist. An empty pair disables TLS and is
// valid.
func ValidateTLSFilePair(certFile, keyFile string) error {
	if certFile == "" && keyFile == "" {
		return nil
	}

	if certFile == "" || keyFile == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "ValidateTLSFilePair",
			"tls_cert_file and tls_key_file must be set together")
	}

	if _, err := os.Stat(certFile); err != nil {
		return errors.WrapInvalid(err, "Gateway", "ValidateTLSFilePair",
			fmt.Sprintf("tls_cert_file not accessible: %s", certFile))
	}
	if _, err := os.Stat(keyFile); err != nil {
		return errors.WrapInvalid(err, "Gateway", "ValidateTLSFilePair",
			fmt.Sprintf("tls_key_file not accessible: %s", keyFile))
	}

	return nil
}

// ValidateTLSMinVersion accepts the supported minimum protocol versions.
// Empty selects the adapter default.
func ValidateTLSMinVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "ValidateTLSMinVersion",
			fmt.Sprintf("tls_min_version '%s' is not supported (use 1.2 or 1.3)", version))
	}
}

// ValidateTLSClientCA checks the mutual-TLS client CA file. Setting it
// requires server TLS to be configured and the file to exist; empty disables
// client certificate verification.
func ValidateTLSClientCA(caFile, certFile string) error {
	if caFile == "" {
		return nil
	}
	if certFile == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "ValidateTLSClientCA",
			"tls_client_ca_file requires tls_cert_file and tls_key_file")
	}
	if _, err := os.Stat(caFile); err != nil {
		return errors.WrapInvalid(err, "Gateway", "ValidateTLSClientCA",
			fmt.Sprintf("tls_client_ca_file not accessible: %s", caFile))
	}
	return nil
}

// Addr joins an adapter's host and port into a listen address. An empty host
// binds all interfaces.
func Addr(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, port)
}
