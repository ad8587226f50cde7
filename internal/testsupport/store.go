package testsupport

import (
	"testing"

	"claimcheck/internal/claims"
	"claimcheck/internal/config"
)

// MustOpenStore opens a claims.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *claims.Store {
	t.Helper()

	store, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("claims.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
