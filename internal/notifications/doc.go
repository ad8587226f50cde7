// Package notifications delivers run events via pluggable publishers.
//
// ntfy receives human-readable push messages; Kafka and SQS receive a JSON
// envelope for downstream systems. Publishers are enabled by configuration and
// the service degrades to a no-op when none are configured. Delivery failures
// are returned to the caller, which logs them; they never affect a run.
//
// Pipeline code depends only on the Service interface.
package notifications
