package natsclient

import "time"

// Profiles for the broker container. Individual knobs are in
// test_client.go; these bundle the timeouts that suit each kind of test.

// WithFastStartup trims the connect and container timeouts for unit-style
// tests that only need basic pub/sub against a fresh broker.
func WithFastStartup() TestOption {
	return func(p *testProfile) {
		p.connectTimeout = 2 * time.Second
		p.startupTimeout = 10 * time.Second
	}
}

// WithIntegrationDefaults restores the default timeouts explicitly.
// Useful when a TestMain shares one container across many integration
// tests and wants the intent visible at the call site.
func WithIntegrationDefaults() TestOption {
	return func(p *testProfile) {
		p.connectTimeout = 5 * time.Second
		p.startupTimeout = 30 * time.Second
	}
}
