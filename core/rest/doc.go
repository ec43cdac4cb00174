// Package rest executes outbound calls against the platform's REST API with
// per-route rate-limit accounting and a retry decision tree.
//
// Every call is addressed to a bucket key, the client-side classifier for the
// vendor's rate-limit grouping. Calls sharing a key serialize through that
// bucket's mutex so concurrent requests never race on token accounting, and a
// call that finds the bucket exhausted sleeps until the vendor-reported reset
// before sending.
//
//	exec, err := rest.NewExecutor(rest.Config{Token: token})
//	if err != nil { ... }
//
//	resp, err := exec.Do(ctx, "GET:/channels/{id}", rest.Request{
//		Method: http.MethodGet,
//		Path:   "/channels/" + channelID,
//	})
//
// # Outcome classification
//
// Each attempt is classified and either retried or surfaced:
//
//   - transport failures and 5xx responses consume the generic retry budget
//     (default 3 attempts) and surface as *RequestError once spent;
//   - a 429 with a vendor error body is always retried after the
//     vendor-supplied reset-after delay (or a fixed fallback);
//   - a 404 with a vendor error body is retried up to WithNotFoundRetries,
//     covering read-after-write races, and then surfaced as *APIError;
//   - any other vendor error body is a semantic rejection and fails
//     immediately as *APIError, carrying the vendor code for the caller;
//   - a non-5xx failure without a parseable vendor body fails immediately as
//     *ServerError.
//
// Bucket state is refreshed from the rate-limit response headers of every
// attempt, including failed ones. A vendor-reported bucket name that drifts
// for the same key signals a key-derivation bug and is logged, never raised.
//
// # Concurrency
//
// Outbound work is bounded by a weighted semaphore (default 100 concurrent
// calls). Unrelated buckets never contend: each bucket carries its own mutex
// and the cache itself is only locked for lookups.
//
// Expired buckets are evicted about a minute after their reset by the
// maintenance loop, available through the errgroup-compatible Run method.
package rest
