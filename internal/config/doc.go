// Package config loads, normalizes, and validates claimcheck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment fallbacks the
// claim service has always used (MIRA_AI_URL, MIRA_AI_MODEL,
// MIRA_AI_ACCESS_KEY, BUCKET_NAME, PORT, DB_*). The Config type centralizes
// every knob the daemon and CLI need, so oracle credentials, storage and
// database backends, and adjudication constants are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend names, and clear validation errors.
package config
