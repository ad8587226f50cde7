package claims_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"claimcheck/internal/claims"
	"claimcheck/internal/services"
	"claimcheck/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func sampleAggregate(id string, photos int) claims.Aggregate {
	agg := claims.Aggregate{
		Claim: claims.Claim{
			ID:           id,
			AIStatus:     "Pending",
			ReportedDate: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			CoveredItem:  "bicycle",
		},
		Document: claims.Document{
			URL:         "http://evidence.test/" + id + "/pdfs/claim.pdf",
			Description: "Frame cracked during normal use",
			Role:        "claimant",
			Facts:       json.RawMessage(`{"claim_id":"` + id + `"}`),
		},
	}
	for i := 0; i < photos; i++ {
		agg.Photos = append(agg.Photos, claims.Photo{
			FileName:    fmt.Sprintf("photo-%d.jpg", i),
			URL:         fmt.Sprintf("http://evidence.test/%s/images/photo-%d.jpg", id, i),
			Status:      "Authorized",
			Validation:  "Valid",
			Score:       intPtr(90 - i),
			Description: fmt.Sprintf("photo %d shows a bicycle", i),
			CaptureDate: "2023-12-15",
		})
	}
	return agg
}

func countRows(t *testing.T, db *sql.DB, table, claimID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM `+table+` WHERE claim_id = ?`, claimID).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func openRaw(t *testing.T, store *claims.Store) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCommitAndReadBack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	agg := sampleAggregate("CL12345", 2)
	agg.Photos[1].Score = nil
	agg.Photos[1].Status = "Rejected"
	agg.Photos[1].Reason = "The matching percentage is below the acceptable threshold."
	if err := store.Commit(ctx, agg); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	claim, err := store.Claim(ctx, "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Status != nil {
		t.Fatalf("adjuster status must start NULL, got %v", *claim.Status)
	}
	if claim.AIStatus != "Pending" || claim.CoveredItem != "bicycle" || claim.ReportedDate.Format(time.DateOnly) != "2024-01-10" {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if claim.Document == nil || claim.Document.Role != "claimant" || string(claim.Document.Facts) != `{"claim_id":"CL12345"}` {
		t.Fatalf("unexpected document %+v", claim.Document)
	}
	if len(claim.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(claim.Photos))
	}
	if claim.Photos[0].Score == nil || *claim.Photos[0].Score != 90 {
		t.Fatalf("unexpected first photo %+v", claim.Photos[0])
	}
	if claim.Photos[1].Score != nil || claim.Photos[1].Status != "Rejected" {
		t.Fatalf("unexpected second photo %+v", claim.Photos[1])
	}

	ev, err := store.Evidence(ctx, "CL12345")
	if err != nil {
		t.Fatalf("Evidence: %v", err)
	}
	if ev.DocumentDescription != "Frame cracked during normal use" || len(ev.Photos) != 2 {
		t.Fatalf("unexpected evidence %+v", ev)
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	raw := openRaw(t, store)
	ctx := context.Background()

	if _, err := raw.Exec(`CREATE TRIGGER fail_third_photo BEFORE INSERT ON photos
        WHEN NEW.position = 2
        BEGIN SELECT RAISE(ABORT, 'injected photo failure'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err := store.Commit(ctx, sampleAggregate("CL-FAIL", 4))
	if !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected ErrTransaction, got %v", err)
	}
	for _, table := range []string{"claims", "documents", "photos"} {
		if n := countRows(t, raw, table, "CL-FAIL"); n != 0 {
			t.Fatalf("expected no %s rows after failed commit, got %d", table, n)
		}
	}

	// Two photos stay under the trigger's position.
	if err := store.Commit(ctx, sampleAggregate("CL-OK", 2)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n := countRows(t, raw, "photos", "CL-OK"); n != 2 {
		t.Fatalf("expected 2 photos, got %d", n)
	}
}

func TestCommitRejectsDuplicateClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if ok, err := store.Exists(ctx, "CL1"); err != nil || ok {
		t.Fatalf("Exists before commit = %v, %v", ok, err)
	}
	if err := store.Commit(ctx, sampleAggregate("CL1", 1)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := store.Exists(ctx, "CL1"); err != nil || !ok {
		t.Fatalf("Exists after commit = %v, %v", ok, err)
	}
	err := store.Commit(ctx, sampleAggregate("CL1", 3))
	if !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected ErrTransaction for duplicate id, got %v", err)
	}
	claim, err := store.Claim(ctx, "CL1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(claim.Photos) != 1 {
		t.Fatalf("duplicate commit must not add photos, got %d", len(claim.Photos))
	}
}

func TestCommitValidatesAggregate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	agg := sampleAggregate("", 1)
	if err := store.Commit(context.Background(), agg); !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected ErrTransaction for empty id, got %v", err)
	}
	agg = sampleAggregate("CL1", 1)
	agg.Photos[0].Score = intPtr(150)
	if err := store.Commit(context.Background(), agg); !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected ErrTransaction for out of range score, got %v", err)
	}
}

func TestListClaimsAndIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.ListClaims(ctx); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty listing, got %v", err)
	}
	if _, err := store.ClaimIDs(ctx); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty ids, got %v", err)
	}

	if err := store.Commit(ctx, sampleAggregate("CL-A", 2)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.Commit(ctx, sampleAggregate("CL-B", 0)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rows, err := store.ListClaims(ctx)
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 listing rows, got %d: %+v", len(rows), rows)
	}
	var photoless *claims.ListingRow
	for i := range rows {
		if rows[i].ID == "CL-B" {
			photoless = &rows[i]
		}
	}
	if photoless == nil || photoless.PDFURL == nil || photoless.ImageURL != nil {
		t.Fatalf("expected claim without photos to list a nil image url, got %+v", photoless)
	}

	ids, err := store.ClaimIDs(ctx)
	if err != nil {
		t.Fatalf("ClaimIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "CL-A" || ids[1] != "CL-B" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestUpdateStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Commit(ctx, sampleAggregate("CL1", 0)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.UpdateStatus(ctx, "CL1", claims.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	claim, err := store.Claim(ctx, "CL1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Status == nil || *claim.Status != claims.StatusApproved {
		t.Fatalf("expected Approved, got %v", claim.Status)
	}
	if claim.AIStatus != "Pending" {
		t.Fatalf("AI status must not change, got %q", claim.AIStatus)
	}

	if err := store.UpdateStatus(ctx, "missing", claims.StatusRejected); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "CL1", claims.Status("Maybe")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteAndSuggestion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Commit(ctx, sampleAggregate("CL1", 2)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.SaveSuggestion(ctx, claims.Suggestion{ClaimID: "CL1", Recommendation: claims.RecommendPending, Rationale: "first"}); err != nil {
		t.Fatalf("SaveSuggestion: %v", err)
	}
	if err := store.SaveSuggestion(ctx, claims.Suggestion{ClaimID: "CL1", Recommendation: claims.RecommendAccept, Rationale: "second"}); err != nil {
		t.Fatalf("SaveSuggestion: %v", err)
	}
	claim, err := store.Claim(ctx, "CL1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Suggestion == nil || claim.Suggestion.Recommendation != claims.RecommendAccept || claim.Suggestion.Rationale != "second" {
		t.Fatalf("expected replaced suggestion, got %+v", claim.Suggestion)
	}

	if err := store.SaveSuggestion(ctx, claims.Suggestion{ClaimID: "ghost", Recommendation: claims.RecommendAccept}); !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected foreign key failure, got %v", err)
	}

	removed, err := store.Delete(ctx, "CL1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 5 {
		t.Fatalf("expected 5 rows removed (claim, document, 2 photos, suggestion), got %d", removed)
	}
	if _, err := store.Claim(ctx, "CL1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	removed, err = store.Delete(ctx, "CL1")
	if err != nil || removed != 0 {
		t.Fatalf("expected no rows on second delete, got %d %v", removed, err)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := claims.ParseStatus(" approved "); !ok || s != claims.StatusApproved {
		t.Fatalf("unexpected %q %v", s, ok)
	}
	if _, ok := claims.ParseStatus("done"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
