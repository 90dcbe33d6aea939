// Package retry runs operations with bounded exponential backoff.
//
// Do and DoWithResult execute a function until it succeeds or the attempt
// budget runs out. Between attempts the delay grows by Config.Multiplier up
// to Config.MaxDelay, with optional jitter so simultaneous callers spread
// out. Errors wrapped with NonRetryable stop the loop immediately, and both
// entry points return as soon as the context ends, including mid-backoff.
//
//	reply, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*Reply, error) {
//	    return client.Call(ctx, req)
//	})
//
// The package deliberately stops at backoff: no circuit breaking, no
// metrics, no error inspection beyond the NonRetryable marker. Callers
// decide what is worth retrying.
package retry
