// Package api defines the claim service and the wire-format types shared by
// the HTTP daemon and the CLI.
//
// # Key Types
//
// ClaimService: list, show, adjuster status update, and folder delete over
// the claim repository and the evidence store.
//
// ClaimView/PhotoView/DocumentView: transport representation of a committed
// claim and its evidence rows.
//
// RunResult: transport representation of a pipeline run outcome.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// reported dates use YYYY-MM-DD. Document facts pass through as
// json.RawMessage to avoid double-encoding.
package api
