// Package main hosts the claimcheck CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP daemon in the foreground, processes a
// claim submission synchronously from local files, and gives adjusters direct
// access to the claim store for listing, inspection, status changes, and
// deletion. Every command that touches claims builds its services from the
// same configuration the daemon uses, so the CLI and daemon always agree on
// storage, database, and oracle settings.
package main
