// Package oracle provides the HTTP client for the external AI content-analysis
// service used by document extraction, photo matching, and claim suggestions.
//
// # Wire format
//
// Requests are POSTed to the configured URL with `model` and `access-key`
// headers and a body of the form
//
//	{"contents": {"role": "user", "parts": [{"text": ...}, {"inlineData": {...}}]}}
//
// The model's reply is read from `message.content` in the response body.
//
// # Decoding
//
// DecodeJSON performs one strict JSON decode of the reply. When that fails it
// applies a single normalization pass (Normalize: strip code fences and escaped
// newlines, collapse whitespace) and retries once. Anything else is reported as
// services.ErrMalformedOracleResponse. There is no other parse path.
//
// # Retry behaviour
//
// Each call is attempted once by default. Operators may opt in to bounded
// retries on HTTP 408/429/5xx and network timeouts with exponential backoff.
// Context cancellation aborts retries immediately.
package oracle
