// Package api provides the HTTP client for the instrument catalog service.
//
// The client fetches raw instrument records and converts them to model types.
// Requests retry transient failures (5xx, 429) with jittered exponential
// backoff; permanent failures surface as *APIError.
package api
