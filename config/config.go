package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/c360/flowgate/types"
)

// ComponentConfigs maps component instance names ("http-main") to their
// configurations. An instance is only created when its factory is registered
// AND its entry here has enabled=true; everything else is ignored.
type ComponentConfigs map[string]types.ComponentConfig

// Config is everything a gateway process needs to serve one flow: which flow
// it serves and how to reach its executors (Flow), the message bus (NATS),
// observability settings (Log, Metrics), which endpoints to expose
// (Endpoints), and which protocol adapters to run (Components).
type Config struct {
	Version    string           `json:"version,omitempty"` // config schema version, semver
	Flow       FlowConfig       `json:"flow"`
	NATS       NATSConfig       `json:"nats"`
	Log        LogConfig        `json:"log,omitempty"`
	Metrics    MetricsConfig    `json:"metrics,omitempty"`
	Endpoints  EndpointsConfig  `json:"endpoints,omitempty"`
	Components ComponentConfigs `json:"components"`
}

// FlowConfig identifies the served flow and describes its executor topology.
// Graph and Addresses carry the inline JSON form; TopologyFile, when set,
// overrides both.
type FlowConfig struct {
	Name           string        `json:"name"`                      // flow identifier, becomes a NATS subject token
	Version        string        `json:"version,omitempty"`         // reported on /status
	Graph          string        `json:"graph,omitempty"`           // inline JSON adjacency list
	Addresses      string        `json:"addresses,omitempty"`       // inline JSON executor addresses
	TopologyFile   string        `json:"topology_file,omitempty"`   // YAML topology, wins over inline form
	SubjectPrefix  string        `json:"subject_prefix,omitempty"`  // namespace for exec request subjects
	RequestTimeout time.Duration `json:"request_timeout,omitempty"` // pipeline round-trip bound
	MaxAttempts    int           `json:"max_attempts,omitempty"`    // exec delivery attempts, <=1 disables retry
}

// NATSConfig carries the message bus connection settings.
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig enables TLS on the NATS connection. Cert and key are both
// required once enabled; the CA file is only needed for private roots.
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json, text
}

// MetricsConfig controls the standalone Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// EndpointsConfig shapes the exposed endpoint set. The stock CRUD and debug
// groups can be suppressed, and extra exec endpoints exposed on top.
type EndpointsConfig struct {
	NoCRUDEndpoints  bool             `json:"no_crud_endpoints,omitempty"`
	NoDebugEndpoints bool             `json:"no_debug_endpoints,omitempty"`
	Expose           []CustomEndpoint `json:"expose,omitempty"`
}

// CustomEndpoint exposes one exec endpoint beyond the defaults. Methods
// defaults to POST; Summary and Tags feed the generated API docs.
type CustomEndpoint struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// UnmarshalJSON accepts the request timeout as a Go duration string or a
// nanosecond number. Hand-written files use "30s"; files written by
// SaveToFile carry the number encoding/json produces for time.Duration.
func (f *FlowConfig) UnmarshalJSON(data []byte) error {
	type plain FlowConfig
	aux := struct {
		*plain
		RequestTimeout json.RawMessage `json:"request_timeout"`
	}{plain: (*plain)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := decodeDuration(aux.RequestTimeout)
	if err != nil {
		return fmt.Errorf("flow.request_timeout: %w", err)
	}
	f.RequestTimeout = d
	return nil
}

// UnmarshalJSON gives reconnect_wait the same dual duration form as the
// flow request timeout.
func (n *NATSConfig) UnmarshalJSON(data []byte) error {
	type plain NATSConfig
	aux := struct {
		*plain
		ReconnectWait json.RawMessage `json:"reconnect_wait"`
	}{plain: (*plain)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := decodeDuration(aux.ReconnectWait)
	if err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	n.ReconnectWait = d
	return nil
}

// decodeDuration parses a raw JSON duration value. Absent and null mean
// zero. Strings go through time.ParseDuration; numbers are nanoseconds.
func decodeDuration(raw json.RawMessage) (time.Duration, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", text, err)
		}
		return d, nil
	}

	var nanos float64
	if err := json.Unmarshal(raw, &nanos); err != nil {
		return 0, fmt.Errorf("duration must be a string or a nanosecond number, got %s", raw)
	}
	return time.Duration(nanos), nil
}

// Validate checks the whole configuration and normalizes the flow name.
// Validation stops at the first problem so the operator sees one actionable
// message, not a wall of them.
func (c *Config) Validate() error {
	if err := c.Flow.validate(); err != nil {
		return err
	}
	if err := c.NATS.TLS.validate(); err != nil {
		return fmt.Errorf("nats.tls: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port)
	}
	for i, ep := range c.Endpoints.Expose {
		if ep.Name == "" {
			return fmt.Errorf("endpoints.expose[%d]: name cannot be empty", i)
		}
	}
	return c.Components.validate()
}

// validate normalizes the flow name to lowercase and checks the fields the
// rest of the gateway takes on faith. Graph semantics are not checked here;
// the flow package does that against the live topology at startup.
func (f *FlowConfig) validate() error {
	if f.Name == "" {
		return errors.New("flow.name is required")
	}
	f.Name = strings.ToLower(f.Name)
	if !isValidNATSSubjectPart(f.Name) {
		return fmt.Errorf(
			"flow.name '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			f.Name,
		)
	}

	if f.RequestTimeout < 0 {
		return fmt.Errorf("flow.request_timeout cannot be negative: %s", f.RequestTimeout)
	}
	if f.MaxAttempts < 0 {
		return fmt.Errorf("flow.max_attempts cannot be negative: %d", f.MaxAttempts)
	}

	if f.Graph != "" && !json.Valid([]byte(f.Graph)) {
		return errors.New("flow.graph is not valid JSON")
	}
	if f.Addresses != "" && !json.Valid([]byte(f.Addresses)) {
		return errors.New("flow.addresses is not valid JSON")
	}
	return nil
}

// validate checks that the referenced TLS files exist up front. A missing
// cert discovered at connect time is much harder to diagnose.
func (t NATSTLSConfig) validate() error {
	if !t.Enabled {
		return nil
	}

	if t.CertFile == "" {
		return errors.New("cert_file is required when TLS is enabled")
	}
	if t.KeyFile == "" {
		return errors.New("key_file is required when TLS is enabled")
	}

	files := []struct{ field, path string }{
		{"cert_file", t.CertFile},
		{"key_file", t.KeyFile},
		{"ca_file", t.CAFile}, // optional, checked only when set
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s: %w", f.field, err)
		}
	}
	return nil
}

func (lg LogConfig) validate() error {
	switch lg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level '%s' is not valid (use debug, info, warn, or error)", lg.Level)
	}
	switch lg.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format '%s' is not valid (use json or text)", lg.Format)
	}
	return nil
}

func (cc ComponentConfigs) validate() error {
	for instance, cfg := range cc {
		if instance == "" {
			return errors.New("component instance name cannot be empty")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("component %s: %w", instance, err)
		}
	}
	return nil
}

// isValidNATSSubjectPart reports whether s can be embedded in a NATS subject
// token. Wildcards, whitespace, and punctuation beyond dot, dash, and
// underscore would change subject semantics, so they are rejected.
func isValidNATSSubjectPart(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		return r != '-' && r != '_' && r != '.'
	})
}

// Clone returns a deep copy built by a JSON round trip, which covers every
// field a Config can carry, slices and maps included. A config that cannot
// round-trip degrades to a shallow copy rather than returning nil.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		shallow := *c
		return &shallow
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		shallow := *c
		return &shallow
	}
	return &clone
}

// SaveToFile writes the configuration as indented JSON, with the same path
// and size checks applied on the way out as on the way in.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String renders the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SafeConfig hands out point-in-time copies of a shared configuration.
// Readers never observe a half-applied update, and the copy they get cannot
// leak mutations back into shared state.
type SafeConfig struct {
	current atomic.Pointer[Config]
}

// NewSafeConfig wraps cfg for concurrent use. A nil cfg starts empty.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	sc := &SafeConfig{}
	sc.current.Store(cfg)
	return sc
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	return sc.current.Load().Clone()
}

// Update swaps in a new configuration. The candidate is validated first; on
// failure the previous configuration stays in place.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	sc.current.Store(cfg)
	return nil
}

// Loader assembles a Config from layered JSON files and environment
// overrides: defaults first, then each layer in order with last-wins
// semantics, then the environment on top.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader returns a loader with no layers and validation off.
func NewLoader() *Loader {
	return &Loader{envPrefix: "FLOWGATE"}
}

// AddLayer appends a configuration file. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation makes Load reject configurations that fail Validate.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads a single file, replacing any layers added so far.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers, and environment overrides into one
// Config. The merge happens on raw JSON maps so that a field absent from a
// layer keeps its earlier value instead of resetting to the zero value.
func (l *Loader) Load() (*Config, error) {
	merged, err := configToMap(defaultConfig())
	if err != nil {
		return nil, err
	}

	for _, path := range l.layers {
		layer, err := readLayer(path)
		if err != nil {
			return nil, fmt.Errorf("load layer %s: %w", path, err)
		}
		merged = deepMerge(merged, layer)
	}

	cfg, err := configFromMap(merged)
	if err != nil {
		return nil, fmt.Errorf("merged configuration does not fit the schema: %w", err)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// defaultConfig is the layer every load starts from. NATS reconnects
// forever by default, and metrics are on unless a file turns them off. Flow
// settings deliberately carry no defaults; the flow package owns those.
func defaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
	}
}

// readLayer pulls one JSON file into map form. The path, size, and nesting
// checks from security.go run before the decoder sees any bytes.
func readLayer(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateJSONDepth(data); err != nil {
		return nil, err
	}

	var layer map[string]any
	if err := json.Unmarshal(data, &layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// envOverrides lists the settings that may be flipped per deployment without
// editing files. Everything else stays file-only on purpose; secrets and
// connection details are the usual reasons to reach for the environment.
var envOverrides = []struct {
	suffix string
	apply  func(*Config, string)
}{
	{"_FLOW_NAME", func(c *Config, v string) { c.Flow.Name = v }},
	{"_FLOW_GRAPH", func(c *Config, v string) { c.Flow.Graph = v }},
	{"_FLOW_ADDRESSES", func(c *Config, v string) { c.Flow.Addresses = v }},
	{"_FLOW_TOPOLOGY_FILE", func(c *Config, v string) { c.Flow.TopologyFile = v }},
	{"_NATS_URLS", func(c *Config, v string) { c.NATS.URLs = strings.Split(v, ",") }},
	{"_NATS_USERNAME", func(c *Config, v string) { c.NATS.Username = v }},
	{"_NATS_PASSWORD", func(c *Config, v string) { c.NATS.Password = v }},
	{"_NATS_TOKEN", func(c *Config, v string) { c.NATS.Token = v }},
	{"_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
	{"_LOG_FORMAT", func(c *Config, v string) { c.Log.Format = v }},
}

// applyEnvOverrides lays prefixed environment variables over cfg. Values
// failing the checks in security.go are ignored, not applied.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if val := l.envValue(o.suffix); val != "" {
			o.apply(cfg, val)
		}
	}
}

// envValue reads one prefixed environment variable, treating invalid values
// as unset.
func (l *Loader) envValue(suffix string) string {
	key := l.envPrefix + suffix
	val := os.Getenv(key)
	if val == "" {
		return ""
	}
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// configToMap flattens a Config through JSON so it can take part in the
// map-level merge.
func configToMap(c *Config) (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// configFromMap converts a merged map back into a typed Config.
func configFromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// deepMerge layers override onto base. Maps merge recursively; any other
// value in override wins wholesale, arrays included. Nil override entries
// are skipped so a JSON null cannot blank out an earlier value.
func deepMerge(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			if baseSub, ok := merged[k].(map[string]any); ok {
				merged[k] = deepMerge(baseSub, sub)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

// pruneNils strips nil entries in place, recursing into nested maps. A
// Config round-tripped through JSON carries explicit nulls for unset fields
// that lack omitempty; those must not clobber base values during a merge.
func pruneNils(m map[string]any) {
	for k, v := range m {
		switch sub := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			pruneNils(sub)
		}
	}
}

// mergeConfigs overlays one typed config onto another. Zero-valued override
// fields marshal to nulls or vanish under omitempty, so base values survive
// them. Load works on raw maps instead, where absent and zero stay distinct.
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	if override == nil {
		return base
	}

	baseMap, err := configToMap(base)
	if err != nil {
		return base
	}
	overrideMap, err := configToMap(override)
	if err != nil {
		return base
	}
	pruneNils(overrideMap)

	merged, err := configFromMap(deepMerge(baseMap, overrideMap))
	if err != nil {
		return base
	}
	return merged
}
