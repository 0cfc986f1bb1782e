// Package llm provides an OpenAI-compatible chat completion client that turns
// the photos of one jewelry lot into a sales description.
//
// # Request Shape
//
// DescribeLot sends one user message whose content is the configured prompt
// followed by every image of the lot inlined as a base64 data URI. The first
// non-empty choice content is returned verbatim.
//
// # Errors
//
// Non-2xx responses surface as *StatusError with the body kept opaque. API
// error payloads and empty completions are also service errors
// (IsServiceError). Anything else, including deadline expiry, is a transport
// failure.
//
// # Retry Behaviour
//
// A single attempt is made by default. WithRetryMaxAttempts enables retries on
// HTTP 408/429/5xx, empty completions and network timeouts with exponential
// backoff (base 1s, max 10s). Context cancellation aborts retries immediately.
package llm
