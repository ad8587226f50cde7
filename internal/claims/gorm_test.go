package claims_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"claimcheck/internal/claims"
	"claimcheck/internal/config"
	"claimcheck/internal/services"
	"claimcheck/internal/testsupport"
)

func openPostgres(t *testing.T) *claims.GormStore {
	t.Helper()
	dsn := os.Getenv("CLAIMCHECK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLAIMCHECK_TEST_POSTGRES_DSN not set")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Database.Driver = config.DriverPostgres
	cfg.Database.DSN = dsn
	store, err := claims.OpenGorm(cfg)
	if err != nil {
		t.Fatalf("OpenGorm: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGormCommitRoundTrip(t *testing.T) {
	store := openPostgres(t)
	ctx := context.Background()
	id := "PG-" + t.Name()
	t.Cleanup(func() { _, _ = store.Delete(context.Background(), id) })

	if err := store.Commit(ctx, sampleAggregate(id, 3)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := store.Exists(ctx, id); err != nil || !ok {
		t.Fatalf("Exists after commit = %v, %v", ok, err)
	}
	if err := store.Commit(ctx, sampleAggregate(id, 1)); !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected ErrTransaction on duplicate, got %v", err)
	}
	claim, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(claim.Photos) != 3 || claim.Document == nil {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if err := store.UpdateStatus(ctx, id, claims.StatusRejected); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.SaveSuggestion(ctx, claims.Suggestion{ClaimID: id, Recommendation: claims.RecommendReject, Rationale: "r"}); err != nil {
		t.Fatalf("SaveSuggestion: %v", err)
	}
	removed, err := store.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 6 {
		t.Fatalf("expected 6 rows removed, got %d", removed)
	}
}

func TestOpenRepositorySelectsDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	repo, err := claims.OpenRepository(cfg)
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	defer repo.Close()
	if repo.Driver() != config.DriverSQLite {
		t.Fatalf("expected sqlite, got %q", repo.Driver())
	}

	cfg.Database.Driver = "oracle"
	if _, err := claims.OpenRepository(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
