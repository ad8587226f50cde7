// Package claims persists adjudicated claims, their document and photo
// evidence, and advisory suggestions.
//
// Commit writes the claim, its document, and all photos inside a single
// transaction; a failure on any row leaves nothing behind. Two backends share
// the Repository contract: Store (SQLite through modernc.org/sqlite, the
// default) and GormStore (Postgres through gorm). Both use the same table
// layout so listings and exports look identical regardless of backend.
//
// SQLite schema changes are added as new files under migrations/; they are
// applied in lexical order and recorded in schema_migrations.
package claims
