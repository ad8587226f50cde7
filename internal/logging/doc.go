// Package logging assembles structured slog loggers and formatting helpers used
// across claimcheck components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, claim IDs, pipeline states, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, plus retention pruning for daemon log files.
package logging
