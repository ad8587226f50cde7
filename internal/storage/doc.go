// Package storage uploads claim evidence to an object store and returns the
// URL recorded alongside the claim.
//
// Objects are laid out as {claimID}/pdfs/{file} and {claimID}/images/{file}.
// Two backends exist: S3 (or any S3-compatible endpoint) through aws-sdk-go-v2,
// and a local directory served by the daemon under /evidence/.
package storage
