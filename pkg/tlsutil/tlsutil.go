// Package tlsutil builds tls.Config values from the file-based TLS settings
// the serving adapters share. Certificates come from operator-provided PEM
// files; setting a client CA turns the listener into a mutual-TLS endpoint.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/flowgate/errors"
)

// ServerConfig describes TLS termination for one listener. CertFile and
// KeyFile are required. ClientCAFile is optional; when set, clients must
// present a certificate signed by that CA.
type ServerConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
	MinVersion   string // "1.2" (default) or "1.3"
}

// Server builds a tls.Config for a terminating listener.
func Server(cfg ServerConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "Server", "load certificate")
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion(cfg.MinVersion),
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCertPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// loadCertPool reads a PEM bundle into a fresh pool.
func loadCertPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "loadCertPool",
			fmt.Sprintf("read CA file %s", caFile))
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.WrapFatal(fmt.Errorf("no certificates in PEM data"),
			"tlsutil", "loadCertPool",
			fmt.Sprintf("parse CA certificates from %s", caFile))
	}
	return pool, nil
}

// minVersion maps the configured version string to its crypto/tls constant.
// Anything other than "1.3" keeps the 1.2 floor.
func minVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
