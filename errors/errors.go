package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass partitions failures by the reaction they call for.
type ErrorClass int

const (
	// ErrorTransient failures may succeed on retry.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid failures are the caller's fault and retrying will
	// not help.
	ErrorInvalid
	// ErrorFatal failures mean the process or component cannot
	// continue.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors shared across the gateway. Compare with errors.Is.
var (
	// Request routing
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownEndpoint  = errors.New("unknown endpoint")
	ErrMethodNotAllowed = errors.New("method not allowed")

	// Endpoint registry
	ErrDuplicateEndpoint = errors.New("duplicate endpoint")
	ErrRegistrySealed    = errors.New("registry sealed")

	// Sessions
	ErrSessionClosed   = errors.New("session closed")
	ErrSessionNotFound = errors.New("session not found")

	// Component lifecycle
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrShuttingDown   = errors.New("component is shutting down")

	// Connectivity
	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")

	// Payload handling
	ErrInvalidData   = errors.New("invalid data format")
	ErrParsingFailed = errors.New("parsing failed")

	// Configuration
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Load shedding
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrRateLimited       = errors.New("rate limited")

	// Circuit breaker
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ClassifiedError binds an error to its class. Build one through
// WrapTransient, WrapInvalid or WrapFatal.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Sentinels that imply a class when no ClassifiedError is present in the
// chain.
var (
	transientSentinels = []error{
		ErrConnectionTimeout,
		ErrConnectionLost,
		ErrNoConnection,
		ErrRateLimited,
		ErrCircuitOpen,
		context.DeadlineExceeded,
		context.Canceled,
	}

	fatalSentinels = []error{
		ErrInvalidConfig,
		ErrMissingConfig,
		ErrDuplicateEndpoint,
		ErrResourceExhausted,
	}

	invalidSentinels = []error{
		ErrMalformedRequest,
		ErrUnknownEndpoint,
		ErrMethodNotAllowed,
		ErrSessionClosed,
		ErrInvalidData,
		ErrParsingFailed,
	}
)

// Message fragments that mark errors from outside the module (drivers,
// the broker, net) whose types we cannot match on.
var (
	transientFragments = []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"busy",
		"retry",
	}

	fatalFragments = []string{
		"fatal",
		"panic",
		"invalid config",
		"missing config",
		"out of memory",
	}
)

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func containsAny(msg string, fragments []string) bool {
	msg = strings.ToLower(msg)
	for _, fragment := range fragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying. An explicit
// classification anywhere in the chain is authoritative; otherwise the
// transient sentinels and, as a last resort, well-known message
// fragments decide.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}
	return matchesAny(err, transientSentinels) ||
		containsAny(err.Error(), transientFragments)
}

// IsFatal reports whether err should stop the component. Same
// precedence as IsTransient: explicit class, then sentinels, then
// message fragments.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}
	return matchesAny(err, fatalSentinels) ||
		containsAny(err.Error(), fatalFragments)
}

// IsInvalid reports whether err blames the input. No message sniffing
// here: invalid is only ever an explicit class or a known sentinel,
// because guessing "caller error" from text would reject retryable
// work.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}
	return matchesAny(err, invalidSentinels)
}

// Classify maps err onto a class, preferring invalid over fatal and
// defaulting unknown errors to transient so they stay retryable.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	return ErrorTransient
}

// Wrap adds "component.method: action failed" context while keeping the
// chain intact for errors.Is and errors.As.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// wrapClass wraps with context and pins the class.
func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps err with context and marks it retryable.
func WrapTransient(err error, component, method, action string) error {
	return wrapClass(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps err with context and marks it unrecoverable.
func WrapFatal(err error, component, method, action string) error {
	return wrapClass(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps err with context and marks it as caller error.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}
