package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/c360/flowgate/errors"
)

// Raw component configuration comes from operator-edited files, so the
// registry treats it as untrusted input: bounded total size, bounded
// nesting, bounded collections, and no control bytes hiding inside string
// values. ValidateFactoryConfig is the gate the registry runs before any
// factory sees the payload; SafeUnmarshal is the decode path the gateway
// factories use themselves.
const (
	// maxConfigDepth caps value nesting before a payload is rejected.
	maxConfigDepth = 10
	// maxConfigEntries caps the element count of any single array.
	maxConfigEntries = 1000
)

// Limits shared by the structural checks and the name/port validators.
const (
	MaxStringLength = 1024        // longest accepted string value or key
	MaxJSONSize     = 1024 * 1024 // largest accepted raw config payload
	MinPort         = 1
	MaxPort         = 65535
)

// ValidateComponentName restricts factory and instance names to
// alphanumerics plus dash, underscore, and dot. Names end up in NATS
// subjects, URLs and log lines, so nothing else is allowed through.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"ConfigValidator", "ValidateComponentName", "empty name")
	}
	if len(name) > MaxStringLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"ConfigValidator", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return errors.WrapInvalid(errors.ErrInvalidConfig,
				"ConfigValidator", "ValidateComponentName", "invalid name characters")
		}
	}
	return nil
}

// ValidatePortNumber rejects port numbers outside the valid TCP range.
func ValidatePortNumber(port int) error {
	if port < MinPort || port > MaxPort {
		return errors.WrapInvalid(
			fmt.Errorf("port %d outside valid range %d-%d", port, MinPort, MaxPort),
			"ConfigValidator", "ValidatePortNumber", "port range validation")
	}
	return nil
}

// Validatable is implemented by config structs that carry semantic checks
// beyond JSON well-formedness. Gateway configs use it to validate ports,
// timeouts, and CORS rules after decoding.
type Validatable interface {
	Validate() error
}

// SafeUnmarshal decodes raw factory configuration into target once the
// payload has passed structural validation. When target implements
// Validatable its Validate method runs after decoding, so callers see a
// single error path for malformed JSON and out-of-range values alike.
//
// An empty payload leaves target untouched; factories apply their own
// defaults in that case.
func SafeUnmarshal(rawConfig json.RawMessage, target any) error {
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "payload validation")
	}
	if len(rawConfig) == 0 {
		return nil
	}

	if t := reflect.TypeOf(target); t == nil || t.Kind() != reflect.Ptr {
		return errors.WrapInvalid(
			fmt.Errorf("target must be a pointer, got %T", target),
			"ConfigValidator", "SafeUnmarshal", "target type check")
	}

	if err := json.Unmarshal(rawConfig, target); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "SafeUnmarshal", "JSON decoding")
	}

	if v, ok := target.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "semantic validation")
		}
	}
	return nil
}

// ValidateFactoryConfig runs the structural checks on a raw configuration
// payload: total size, nesting depth, array length, and string content.
// An empty payload is valid; it means "use the factory defaults".
func ValidateFactoryConfig(rawConfig json.RawMessage) error {
	if len(rawConfig) == 0 {
		return nil
	}
	if len(rawConfig) > MaxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(rawConfig), MaxJSONSize),
			"ConfigValidator", "ValidateFactoryConfig", "size check")
	}

	// UseNumber keeps numeric values as strings instead of float64, so
	// oversized numbers cannot lose precision or overflow here.
	decoder := json.NewDecoder(bytes.NewReader(rawConfig))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateFactoryConfig", "JSON parsing")
	}

	if err := checkConfigValue(value, 0); err != nil {
		return errors.Wrap(err, "ConfigValidator", "ValidateFactoryConfig", "structure check")
	}
	return nil
}

// checkConfigValue walks a decoded payload depth-first, enforcing the
// nesting, collection, and string limits on every node.
func checkConfigValue(value any, depth int) error {
	if depth > maxConfigDepth {
		return errors.WrapInvalid(
			fmt.Errorf("config nesting exceeds maximum depth %d", maxConfigDepth),
			"ConfigValidator", "checkConfigValue", "depth check")
	}

	switch v := value.(type) {
	case map[string]any:
		for key, entry := range v {
			if err := checkConfigString(key); err != nil {
				return errors.Wrap(err, "ConfigValidator", "checkConfigValue", "key check")
			}
			if err := checkConfigValue(entry, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "checkConfigValue",
					fmt.Sprintf("object field %q", key))
			}
		}
	case []any:
		if len(v) > maxConfigEntries {
			return errors.WrapInvalid(
				fmt.Errorf("array length %d exceeds maximum %d", len(v), maxConfigEntries),
				"ConfigValidator", "checkConfigValue", "array size check")
		}
		for i, entry := range v {
			if err := checkConfigValue(entry, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "checkConfigValue",
					fmt.Sprintf("array index %d", i))
			}
		}
	case string:
		return checkConfigString(v)
	case json.Number, bool, nil:
		// Scalars carry no structure to check.
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unexpected type %T in config", value),
			"ConfigValidator", "checkConfigValue", "type check")
	}
	return nil
}

// checkConfigString rejects oversized strings and strings carrying null
// bytes or control characters other than tab, newline, and carriage return.
func checkConfigString(s string) error {
	if len(s) > MaxStringLength {
		return errors.WrapInvalid(
			fmt.Errorf("string length %d exceeds maximum %d", len(s), MaxStringLength),
			"ConfigValidator", "checkConfigString", "length check")
	}
	if strings.ContainsRune(s, 0) {
		return errors.WrapInvalid(
			fmt.Errorf("string contains null byte"),
			"ConfigValidator", "checkConfigString", "null byte check")
	}
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return errors.WrapInvalid(
				fmt.Errorf("string contains control character 0x%02x", r),
				"ConfigValidator", "checkConfigString", "control character check")
		}
	}
	return nil
}
