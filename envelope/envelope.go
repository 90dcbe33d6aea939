// Package envelope defines the canonical request/response container shared by
// every transport adapter. An Envelope carries the request header (identity,
// target endpoint, completion status), free-form parameters, opaque document
// payloads, and the append-only routing trace recorded as the request
// traverses pipeline stages.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/flowgate/errors"
	"github.com/google/uuid"
)

// GatewayExecutor is the executor name recorded in route entries and error
// statuses produced by the gateway itself rather than a pipeline stage.
const GatewayExecutor = "gateway"

// StatusCode classifies the outcome of a request or a single pipeline stage.
type StatusCode string

const (
	// StatusSuccess indicates the stage or request completed normally.
	StatusSuccess StatusCode = "success"
	// StatusError indicates the stage or request failed; Description and
	// Exception carry the classification.
	StatusError StatusCode = "error"
)

// Exception identifies the origin of a failure inside the pipeline.
type Exception struct {
	Name     string `json:"name,omitempty"`
	Executor string `json:"executor,omitempty"`
}

// Status describes the outcome of a request or route entry.
type Status struct {
	Code        StatusCode `json:"code"`
	Description string     `json:"description,omitempty"`
	Exception   *Exception `json:"exception,omitempty"`
}

// IsError reports whether the status carries a failure.
func (s *Status) IsError() bool {
	return s != nil && s.Code == StatusError
}

// IsSuccess reports whether the status carries a normal completion.
// A nil status is neither success nor error; it means "not yet populated".
func (s *Status) IsSuccess() bool {
	return s != nil && s.Code == StatusSuccess
}

// SuccessStatus returns a fresh success status.
func SuccessStatus() *Status {
	return &Status{Code: StatusSuccess}
}

// ErrorStatus returns a fresh error status with the given description.
// The executor names the stage where the failure originated; "gateway" is
// used for failures detected before the pipeline was reached.
func ErrorStatus(description, executor string) *Status {
	return &Status{
		Code:        StatusError,
		Description: description,
		Exception:   &Exception{Name: "error", Executor: executor},
	}
}

// Header carries request identity and routing intent.
type Header struct {
	RequestID      string  `json:"requestId"`
	ExecEndpoint   string  `json:"execEndpoint"`
	TargetExecutor string  `json:"targetExecutor,omitempty"`
	Status         *Status `json:"status,omitempty"`
}

// Route records one processing stage's participation in handling a request.
// Entries are append-only: stages add their own entry and never reorder or
// remove entries recorded before them.
type Route struct {
	Executor  string     `json:"executor"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    *Status    `json:"status,omitempty"`
}

// Close stamps the route entry's end time and final status.
func (r *Route) Close(status *Status) {
	now := time.Now()
	r.EndTime = &now
	r.Status = status
}

// Duration returns the elapsed time covered by the entry, or zero while the
// entry is still open.
func (r *Route) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Envelope is one client-initiated unit of work. The same shape is used for
// requests and responses; a response is a request whose header status has
// been populated after pipeline completion.
type Envelope struct {
	Header     Header            `json:"header"`
	Parameters map[string]any    `json:"parameters,omitempty"`
	Routes     []*Route          `json:"routes,omitempty"`
	Data       []json.RawMessage `json:"data,omitempty"`
}

// NewRequestID generates a unique request identifier.
func NewRequestID() string {
	return uuid.New().String()
}

// New creates an envelope addressed at the given endpoint with a generated
// request identifier.
func New(execEndpoint string) *Envelope {
	return &Envelope{
		Header: Header{
			RequestID:    NewRequestID(),
			ExecEndpoint: execEndpoint,
		},
	}
}

// EnsureRequestID generates a request identifier if the header carries none.
// Returns the identifier in effect after the call.
func (e *Envelope) EnsureRequestID() string {
	if e.Header.RequestID == "" {
		e.Header.RequestID = NewRequestID()
	}
	return e.Header.RequestID
}

// Validate checks the fields required before dispatch. A failure names the
// offending field and classifies as a malformed request.
func (e *Envelope) Validate() error {
	if e.Header.RequestID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: header.requestId must not be empty", errors.ErrMalformedRequest),
			"Envelope", "Validate", "required field check")
	}
	if e.Header.ExecEndpoint == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: header.execEndpoint must not be empty", errors.ErrMalformedRequest),
			"Envelope", "Validate", "required field check")
	}
	return nil
}

// AddRoute appends an open route entry for the named executor and returns it
// so the caller can close it when the stage completes. Entries already in the
// trace are never touched.
func (e *Envelope) AddRoute(executor string) *Route {
	r := &Route{
		Executor:  executor,
		StartTime: time.Now(),
	}
	e.Routes = append(e.Routes, r)
	return r
}

// LastRoute returns the most recently appended route entry, or nil when the
// trace is empty.
func (e *Envelope) LastRoute() *Route {
	if len(e.Routes) == 0 {
		return nil
	}
	return e.Routes[len(e.Routes)-1]
}

// SetStatus populates the header status. Passing nil clears it.
func (e *Envelope) SetStatus(s *Status) {
	e.Header.Status = s
}

// MarkSuccess records a successful completion in the header.
func (e *Envelope) MarkSuccess() {
	e.Header.Status = SuccessStatus()
}

// MarkError records a failure in the header, naming the stage it came from.
func (e *Envelope) MarkError(description, executor string) {
	e.Header.Status = ErrorStatus(description, executor)
}

// Marshal serializes the envelope to its canonical JSON wire form.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Marshal", "JSON encoding")
	}
	return data, nil
}

// Unmarshal decodes the canonical JSON wire form into an envelope. Malformed
// JSON classifies as a malformed request so adapters can reject it at the
// boundary.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrMalformedRequest, err),
			"Envelope", "Unmarshal", "JSON decoding")
	}
	return &e, nil
}
