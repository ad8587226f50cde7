// Package logs tails the daemon log file for the claimcheck CLI.
//
// Tail reads the last N lines or everything after a byte offset, and in
// follow mode polls until new lines arrive or the wait elapses. Lines can be
// narrowed to one claim or run by matching the identifiers the logger writes
// on every pipeline record.
package logs
