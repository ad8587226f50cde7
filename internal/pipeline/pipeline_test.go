package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"claimcheck/internal/claims"
	"claimcheck/internal/config"
	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/logging"
	"claimcheck/internal/notifications"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/recency"
	"claimcheck/internal/services"
	"claimcheck/internal/services/oracle"
	"claimcheck/internal/stage"
	"claimcheck/internal/storage"
	"claimcheck/internal/suggest"
	"claimcheck/internal/tasks"
	"claimcheck/internal/testsupport"
	"claimcheck/internal/textextract"
)

const claimFactsReply = "```json\n" + `{"Name": "Jane Doe", "Vehicle Info": "n/a", "Claim Status": "Pending", "Claim Date": "2024-01-10", "Reason": "Bicycle frame cracked", "Items Covered": "bicycle", "Claim ID": "CL 123 45"}` + "\n```"

type recordingNotifier struct {
	mu          sync.Mutex
	committed   []notifications.RunSummary
	failed      []notifications.RunFailure
	suggestions []notifications.SuggestionNotice
}

func (r *recordingNotifier) NotifyClaimCommitted(_ context.Context, s notifications.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, s)
	return nil
}

func (r *recordingNotifier) NotifyRunFailed(_ context.Context, f notifications.RunFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, f)
	return nil
}

func (r *recordingNotifier) NotifySuggestion(_ context.Context, n notifications.SuggestionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggestions = append(r.suggestions, n)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }
func (r *recordingNotifier) Close() error                           { return nil }

type failingStore struct {
	inner  storage.Store
	failOn string
}

func (f failingStore) Store(ctx context.Context, claimID string, category storage.Category, filename string, data []byte) (string, error) {
	if filename == f.failOn {
		return "", services.Wrap(services.ErrUpload, "storage", "put", filename, errors.New("bucket unavailable"))
	}
	return f.inner.Store(ctx, claimID, category, filename, data)
}

func (f failingStore) DeletePrefix(ctx context.Context, claimID string) (int, error) {
	return f.inner.DeletePrefix(ctx, claimID)
}

func (f failingStore) Backend() string { return f.inner.Backend() }

type harness struct {
	cfg      *config.Config
	oracle   *testsupport.FakeOracle
	store    *claims.Store
	evidence *storage.Filesystem
	runner   *tasks.Runner
	notifier *recordingNotifier
	orch     *pipeline.Orchestrator
}

type harnessOption func(*config.Config, *pipeline.Dependencies)

// newHarness wires the real analyzers, sqlite store, and filesystem evidence
// store against a scripted oracle.
func newHarness(t *testing.T, photoReply func(image []byte) testsupport.OracleReply, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{notifier: &recordingNotifier{}}
	h.oracle = testsupport.NewFakeOracle(t, func(req testsupport.OracleRequest) testsupport.OracleReply {
		if len(req.Images) > 0 {
			return photoReply(req.Images[0])
		}
		if strings.Contains(req.Prompt(), `"Recommendation"`) {
			return testsupport.OracleReply{Content: `{"Recommendation": "Accept", "Reason": "Evidence is consistent."}`}
		}
		return testsupport.OracleReply{Content: claimFactsReply}
	})
	h.cfg = testsupport.NewConfig(t, testsupport.WithOracleURL(h.oracle.URL()))
	h.store = testsupport.MustOpenStore(t, h.cfg)

	var err error
	h.evidence, err = storage.NewFilesystem(h.cfg.Storage.Root, h.cfg.Storage.PublicBaseURL)
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	client := oracle.NewClient(oracle.Config{URL: h.cfg.Oracle.URL, Model: h.cfg.Oracle.Model, AccessKey: h.cfg.Oracle.AccessKey})
	logger := logging.NewNop()
	h.runner = tasks.NewRunner(logger)
	t.Cleanup(func() { _ = h.runner.Close(5 * time.Second) })

	deps := pipeline.Dependencies{
		Documents: docanalysis.New(textextract.New(), client, logger),
		Photos:    contentanalysis.New(client, h.cfg.Adjudication.MatchThreshold, logger),
		Evidence:  h.evidence,
		Claims:    h.store,
		Runner:    h.runner,
		Notifier:  h.notifier,
		Suggester: suggest.New(client, h.store, logger),
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(h.cfg, &deps)
	}
	h.orch, err = pipeline.New(h.cfg, deps)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return h
}

func scoreReply(score string) testsupport.OracleReply {
	return testsupport.OracleReply{Content: `{"ObjectName": "bicycle", "Relevance": "", "AnalyzedImageDescription": "A bicycle", "MatchingPercentage": "` + score + `"}`}
}

func photoFixtures(t *testing.T) (a, b []byte) {
	t.Helper()
	return testsupport.JPEGWithCaptureTime(t, "2023:12:15 10:30:00"),
		testsupport.JPEGWithCaptureTime(t, "2023:10:01 08:00:00")
}

func submission(photos ...pipeline.File) pipeline.Submission {
	return pipeline.Submission{
		Document: pipeline.File{Name: "claim.pdf", Data: testsupport.ClaimantDocument("CL 123 45", "2024-01-10", "bicycle")},
		Photos:   photos,
	}
}

func TestRunEndToEnd(t *testing.T) {
	photoA, photoB := photoFixtures(t)
	h := newHarness(t, func(image []byte) testsupport.OracleReply {
		if bytes.Equal(image, photoA) {
			return scoreReply("92")
		}
		return scoreReply("40")
	})

	res, err := h.orch.Run(context.Background(), submission(
		pipeline.File{Name: "a.jpg", Data: photoA},
		pipeline.File{Name: "b.jpg", Data: photoB},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != stage.Committed || res.ClaimID != "CL12345" {
		t.Fatalf("unexpected result state=%s claim=%q", res.State, res.ClaimID)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}

	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Status != nil {
		t.Fatalf("adjuster status should start empty, got %v", *claim.Status)
	}
	if claim.AIStatus != "Pending" || claim.CoveredItem != "bicycle" {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if claim.Document == nil || claim.Document.Description != "Bicycle frame cracked" {
		t.Fatalf("unexpected document %+v", claim.Document)
	}
	if len(claim.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(claim.Photos))
	}
	byName := map[string]claims.Photo{}
	for _, p := range claim.Photos {
		byName[p.FileName] = p
	}
	a, b := byName["a.jpg"], byName["b.jpg"]
	if a.Validation != string(recency.Valid) || a.Status != string(contentanalysis.Authorized) || a.Score == nil || *a.Score != 92 {
		t.Fatalf("unexpected photo A %+v", a)
	}
	if b.Validation != string(recency.StaleCapture) || b.Status != string(contentanalysis.Rejected) || b.Score == nil || *b.Score != 40 {
		t.Fatalf("unexpected photo B %+v", b)
	}
	if b.Reason != contentanalysis.BelowThresholdReason {
		t.Fatalf("unexpected reason %q", b.Reason)
	}
	if a.URL != "http://evidence.test/CL12345/images/a.jpg" {
		t.Fatalf("unexpected photo url %q", a.URL)
	}
	for _, rel := range []string{"CL12345/pdfs/claim.pdf", "CL12345/images/a.jpg", "CL12345/images/b.jpg"} {
		if _, err := os.Stat(filepath.Join(h.evidence.Root(), filepath.FromSlash(rel))); err != nil {
			t.Fatalf("expected %s uploaded: %v", rel, err)
		}
	}
	if len(h.notifier.committed) != 1 || h.notifier.committed[0].Authorized != 1 || h.notifier.committed[0].Rejected != 1 {
		t.Fatalf("unexpected committed notifications %+v", h.notifier.committed)
	}
}

func TestRunDocumentFailureLeavesNothing(t *testing.T) {
	photoA, _ := photoFixtures(t)
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("92") })

	sub := pipeline.Submission{
		Document: pipeline.File{Name: "notes.pdf", Data: []byte("Grocery list\nMilk\nEggs")},
		Photos:   []pipeline.File{{Name: "a.jpg", Data: photoA}},
	}
	res, err := h.orch.Run(context.Background(), sub)
	if !errors.Is(err, services.ErrUnrecognizedDocument) {
		t.Fatalf("expected unrecognized document, got %v", err)
	}
	if res.State != stage.Failed || res.LastState != stage.Received {
		t.Fatalf("unexpected states %s/%s", res.State, res.LastState)
	}
	if n := len(h.oracle.Requests()); n != 0 {
		t.Fatalf("expected no oracle calls, got %d", n)
	}
	entries, err := os.ReadDir(h.evidence.Root())
	if err != nil {
		t.Fatalf("read evidence root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no uploads, found %d entries", len(entries))
	}
	if _, err := h.store.ListClaims(context.Background()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no claims, got %v", err)
	}
	if len(h.notifier.failed) != 1 || h.notifier.failed[0].Kind != "unrecognized_document" {
		t.Fatalf("unexpected failure notifications %+v", h.notifier.failed)
	}
}

func TestRunDropsPhotoOnOracleFailure(t *testing.T) {
	photoA, photoB := photoFixtures(t)
	h := newHarness(t, func(image []byte) testsupport.OracleReply {
		if bytes.Equal(image, photoB) {
			return testsupport.OracleReply{Status: http.StatusInternalServerError, Content: "model overloaded"}
		}
		return scoreReply("88")
	})

	res, err := h.orch.Run(context.Background(), submission(
		pipeline.File{Name: "a.jpg", Data: photoA},
		pipeline.File{Name: "b.jpg", Data: photoB},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, _, dropped := res.Counts()
	if dropped != 1 {
		t.Fatalf("expected one dropped photo, got %d", dropped)
	}
	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(claim.Photos) != 1 || claim.Photos[0].FileName != "a.jpg" {
		t.Fatalf("expected only a.jpg persisted, got %+v", claim.Photos)
	}
	if _, err := os.Stat(filepath.Join(h.evidence.Root(), "CL12345", "images", "b.jpg")); !os.IsNotExist(err) {
		t.Fatalf("dropped photo should not be uploaded: %v", err)
	}
}

func TestRunMissingMetadataAndDuplicateNames(t *testing.T) {
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("95%") })

	res, err := h.orch.Run(context.Background(), submission(
		pipeline.File{Name: "uploads/photo.jpg", Data: testsupport.JPEGWithoutExif()},
		pipeline.File{Name: "photo.jpg", Data: testsupport.JPEGWithCaptureTime(t, "2024:01:10 23:59:59")},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Photos) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(res.Photos))
	}
	if res.Photos[0].FileName != "photo.jpg" || res.Photos[1].FileName != "photo-2.jpg" {
		t.Fatalf("unexpected names %q, %q", res.Photos[0].FileName, res.Photos[1].FileName)
	}
	if res.Photos[0].Validation != string(recency.MetadataMissing) {
		t.Fatalf("expected metadata missing, got %s", res.Photos[0].Validation)
	}
	if res.Photos[1].Validation != string(recency.Valid) {
		t.Fatalf("capture on the reported day should be valid, got %s", res.Photos[1].Validation)
	}
	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Photos[0].CaptureDate != "" {
		t.Fatalf("missing capture date should be stored empty, got %q", claim.Photos[0].CaptureDate)
	}
}

func TestRunDropsPhotoWithNonObjectReply(t *testing.T) {
	photoA, photoB := photoFixtures(t)
	h := newHarness(t, func(image []byte) testsupport.OracleReply {
		if bytes.Equal(image, photoB) {
			return testsupport.OracleReply{Content: "null"}
		}
		return scoreReply("88")
	})

	res, err := h.orch.Run(context.Background(), submission(
		pipeline.File{Name: "a.jpg", Data: photoA},
		pipeline.File{Name: "b.jpg", Data: photoB},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, _, dropped := res.Counts(); dropped != 1 {
		t.Fatalf("expected the null reply photo dropped, got %d", dropped)
	}
	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(claim.Photos) != 1 || claim.Photos[0].FileName != "a.jpg" {
		t.Fatalf("expected only a.jpg persisted, got %+v", claim.Photos)
	}
}

func TestRunUploadFailureCommitsNothing(t *testing.T) {
	photoA, photoB := photoFixtures(t)
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("90") },
		func(cfg *config.Config, deps *pipeline.Dependencies) {
			deps.Evidence = failingStore{inner: deps.Evidence, failOn: "b.jpg"}
		})

	res, err := h.orch.Run(context.Background(), submission(
		pipeline.File{Name: "a.jpg", Data: photoA},
		pipeline.File{Name: "b.jpg", Data: photoB},
	))
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if res.LastState != stage.PhotosAnalyzed {
		t.Fatalf("expected failure after PhotosAnalyzed, got %s", res.LastState)
	}
	if _, err := h.store.Claim(context.Background(), "CL12345"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no claim rows, got %v", err)
	}
}

func TestRunDuplicateClaimFailsCommit(t *testing.T) {
	photoA, _ := photoFixtures(t)
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("90") })
	sub := submission(pipeline.File{Name: "a.jpg", Data: photoA})

	if _, err := h.orch.Run(context.Background(), sub); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := h.orch.Run(context.Background(), sub)
	if !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected transaction error, got %v", err)
	}
	if res.LastState != stage.PhotosAnalyzed {
		t.Fatalf("expected failure before upload, got %s", res.LastState)
	}
}

func TestRunDuplicateClaimKeepsCommittedEvidence(t *testing.T) {
	photoA, photoB := photoFixtures(t)
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("90") })

	if _, err := h.orch.Run(context.Background(), submission(pipeline.File{Name: "a.jpg", Data: photoA})); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := h.orch.Run(context.Background(), submission(pipeline.File{Name: "a.jpg", Data: photoB}))
	if !errors.Is(err, services.ErrTransaction) {
		t.Fatalf("expected transaction error, got %v", err)
	}

	stored, err := os.ReadFile(filepath.Join(h.evidence.Root(), "CL12345", "images", "a.jpg"))
	if err != nil {
		t.Fatalf("read committed photo: %v", err)
	}
	if !bytes.Equal(stored, photoA) {
		t.Fatal("committed photo was overwritten by the rejected run")
	}
	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(claim.Photos) != 1 {
		t.Fatalf("expected the original photo row only, got %d", len(claim.Photos))
	}
}

func TestSubmitRunsDetachedAndSchedulesSuggestion(t *testing.T) {
	photoA, _ := photoFixtures(t)
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("90") },
		func(cfg *config.Config, _ *pipeline.Dependencies) { cfg.Pipeline.Suggestions = true })

	ctx, cancel := context.WithCancel(context.Background())
	ticket, err := h.orch.Submit(ctx, submission(pipeline.File{Name: "a.jpg", Data: photoA}))
	cancel()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ticket.RunID == "" {
		t.Fatal("expected run id on ticket")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	if err := h.runner.Wait(waitCtx); err != nil {
		t.Fatalf("runner wait: %v", err)
	}
	claim, err := h.store.Claim(context.Background(), "CL12345")
	if err != nil {
		t.Fatalf("claim not committed after detached run: %v", err)
	}
	if claim.Suggestion == nil || claim.Suggestion.Recommendation != claims.RecommendAccept {
		t.Fatalf("expected stored suggestion, got %+v", claim.Suggestion)
	}
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	if len(h.notifier.suggestions) != 1 {
		t.Fatalf("expected suggestion notification, got %d", len(h.notifier.suggestions))
	}
	if stats := h.runner.Stats(); stats.Succeeded != 2 {
		t.Fatalf("expected run and suggestion tasks to succeed, got %+v", stats)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t, func([]byte) testsupport.OracleReply { return scoreReply("90") })
	cases := []pipeline.Submission{
		{Photos: []pipeline.File{{Name: "a.jpg", Data: []byte{1}}}},
		{Document: pipeline.File{Name: "claim.pdf", Data: []byte("x")}},
		{Document: pipeline.File{Name: "claim.pdf", Data: []byte("x")}, Photos: []pipeline.File{{Name: "a.jpg"}}},
	}
	for i, sub := range cases {
		if _, err := h.orch.Submit(context.Background(), sub); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	many := make([]pipeline.File, h.cfg.API.MaxImages+1)
	for i := range many {
		many[i] = pipeline.File{Name: "p.jpg", Data: []byte{1}}
	}
	if err := h.orch.Validate(submission(many...)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected too many photos to fail validation, got %v", err)
	}
}
