// Package services defines shared utilities consumed by the pipeline components
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, claim IDs, pipeline states, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (extraction, oracle, transaction, upload) so the orchestrator can decide
//     whether a failure aborts the run or only drops a single photo.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
