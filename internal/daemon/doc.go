// Package daemon coordinates the long-running claimcheck process.
//
// It owns the HTTP API (claim intake, synchronous document and image checks,
// claim listing and adjuster actions, health), serves filesystem evidence, and
// enforces single-instance execution with a flock-based lock. Claim runs are
// handed to the pipeline orchestrator, which detaches them onto the task
// runner; shutdown stops the listener first and then waits for in-flight runs.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and request handling.
package daemon
