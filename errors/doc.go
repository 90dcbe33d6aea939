// Package errors carries the gateway's error vocabulary and its
// three-class failure taxonomy: transient (retry), invalid (reject),
// fatal (stop).
//
// The classes exist so transport adapters can map failures onto their
// wire representation without string matching. An HTTP adapter turns
// invalid into 400, transient into 503 and fatal into 500; the WebSocket
// and gRPC adapters do the equivalent in their own vocabulary. One
// classification, three protocol mappings.
//
// # Classifying
//
// IsTransient, IsInvalid and IsFatal walk the wrap chain. An explicit
// ClassifiedError anywhere in the chain decides outright. Without one,
// the package's sentinel errors imply a class, and for transient and
// fatal only, well-known message fragments from drivers and the broker
// ("timeout", "out of memory") serve as a last resort. Invalid never
// falls back to message sniffing: misreading a retryable failure as
// caller error would drop work that could have succeeded.
//
// Context errors classify as transient, so a client disconnect and a
// pipeline deadline resolve through the same adapter path.
//
// # Request taxonomy
//
// Four sentinels carry the request-level taxonomy the adapters share:
//
//   - ErrMalformedRequest: input failed envelope validation, rejected before dispatch
//   - ErrUnknownEndpoint: no registered endpoint matches the requested name
//   - ErrDuplicateEndpoint: registration-time collision, fatal at startup
//   - ErrSessionClosed: a late response targeted a torn-down connection
//
// Pipeline failures never surface through these sentinels; they travel
// inside the response envelope's status header and are opaque to the
// gateway.
//
// # Wrapping
//
// Context wrapping follows one format everywhere:
//
//	"component.method: action failed: %w"
//
// Wrap adds context and preserves whatever class the chain already has.
// WrapTransient, WrapInvalid and WrapFatal add context and pin the
// class:
//
//	return errors.WrapTransient(err, "Client", "Connect", "dial")
//
// All wrapping keeps the chain intact for errors.Is and errors.As.
package errors
