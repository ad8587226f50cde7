package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"claimcheck/internal/api"
	"claimcheck/internal/config"
	"claimcheck/internal/daemon"
	"claimcheck/internal/daemonrun"
	"claimcheck/internal/logging"
	"claimcheck/internal/testsupport"
)

const factsReply = `{"Name": "Jane Doe", "Vehicle Info": "n/a", "Claim Status": "Pending", "Claim Date": "2024-01-10", "Reason": "Bicycle frame cracked", "Items Covered": "bicycle", "Claim ID": "CL 123 45"}`

type env struct {
	cfg    *config.Config
	rt     *daemonrun.Runtime
	daemon *daemon.Daemon
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()
	fake := testsupport.NewFakeOracle(t, func(req testsupport.OracleRequest) testsupport.OracleReply {
		if len(req.Images) > 0 {
			return testsupport.OracleReply{Content: `{"ObjectName": "bicycle", "AnalyzedImageDescription": "A bicycle", "MatchingPercentage": "91"}`}
		}
		if strings.Contains(req.Prompt(), `"Recommendation"`) {
			return testsupport.OracleReply{Content: `{"Recommendation": "Accept", "Reason": "Evidence is consistent."}`}
		}
		return testsupport.OracleReply{Content: factsReply}
	})
	opts = append([]testsupport.ConfigOption{testsupport.WithOracleURL(fake.URL())}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	rt, err := daemonrun.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemonrun.Open: %v", err)
	}
	d, err := rt.NewDaemon()
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	t.Cleanup(func() {
		_ = rt.Runner.Close(5 * time.Second)
		_ = d.Close()
	})
	return &env{cfg: cfg, rt: rt, daemon: d}
}

func (e *env) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.daemon.Handler().ServeHTTP(w, req)
	return w
}

func (e *env) waitForRuns(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.rt.Runner.Wait(ctx); err != nil {
		t.Fatalf("runner wait: %v", err)
	}
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, parts []part, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func TestProcessAcceptsAndCommits(t *testing.T) {
	e := newEnv(t)
	photo := testsupport.JPEGWithCaptureTime(t, "2024:01:02 12:00:00")
	req := multipartRequest(t, "/api/claims/process", []part{
		{"pdfFile", "claim.pdf", testsupport.ClaimantDocument("CL 123 45", "2024-01-10", "bicycle")},
		{"images", "bike.jpg", photo},
	}, nil)

	w := e.do(t, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	accepted := decode[api.RunAccepted](t, w)
	if accepted.RunID == "" {
		t.Fatal("expected run id")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	e.waitForRuns(t)

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	rows := decode[[]api.ClaimListing](t, w)
	if len(rows) != 1 || rows[0].ID != "CL12345" || rows[0].ImageURL == nil || rows[0].PDFURL == nil {
		t.Fatalf("unexpected listing %+v", rows)
	}

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims/CL12345", nil))
	view := decode[api.ClaimView](t, w)
	if len(view.Photos) != 1 || view.Photos[0].Status != "Authorized" || view.Photos[0].Validation != "Valid" {
		t.Fatalf("unexpected claim view %+v", view)
	}

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/evidence/CL12345/images/bike.jpg", nil))
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), photo) {
		t.Fatalf("expected evidence to be served, got %d", w.Code)
	}
}

func TestProcessRequiresDocumentAndImages(t *testing.T) {
	e := newEnv(t)
	req := multipartRequest(t, "/api/claims/process", []part{
		{"pdfFile", "claim.pdf", []byte("Claimant Information:")},
	}, nil)
	w := e.do(t, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if msg := decode[api.MessageResponse](t, w).Message; msg != "Please upload both PDF and images." {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestClaimCRUD(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims", nil))
	if w.Code != http.StatusNotFound || decode[api.MessageResponse](t, w).Message != "No claims found." {
		t.Fatalf("expected empty listing 404, got %d %s", w.Code, w.Body.String())
	}

	_, err := e.rt.Pipeline.Run(context.Background(), pipelineSubmission(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e.waitForRuns(t)

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims/ids", nil))
	if ids := decode[[]string](t, w); len(ids) != 1 || ids[0] != "CL12345" {
		t.Fatalf("unexpected ids %v", ids)
	}

	put := httptest.NewRequest(http.MethodPut, "/api/claims/CL12345/status", strings.NewReader(`{"status":"approved"}`))
	w = e.do(t, put)
	if w.Code != http.StatusOK {
		t.Fatalf("update status: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims/CL12345", nil))
	if view := decode[api.ClaimView](t, w); view.Status == nil || *view.Status != "Approved" {
		t.Fatalf("expected Approved, got %+v", view.Status)
	}

	bad := httptest.NewRequest(http.MethodPut, "/api/claims/CL12345/status", strings.NewReader(`{"status":"maybe"}`))
	if w = e.do(t, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
	missing := httptest.NewRequest(http.MethodPut, "/api/claims/NOPE/status", strings.NewReader(`{"status":"Pending"}`))
	w = e.do(t, missing)
	if w.Code != http.StatusNotFound || decode[api.MessageResponse](t, w).Message != "Claim ID not found." {
		t.Fatalf("expected 404 for unknown claim, got %d %s", w.Code, w.Body.String())
	}

	w = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/claims/CL12345", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	deleted := decode[api.DeleteResult](t, w)
	if deleted.RowsRemoved == 0 || deleted.ObjectsRemoved != 2 {
		t.Fatalf("unexpected delete result %+v", deleted)
	}
	if w = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/claims/CL12345", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected second delete to 404, got %d", w.Code)
	}
}

func TestExtractAndVerify(t *testing.T) {
	e := newEnv(t)
	req := multipartRequest(t, "/api/documents/extract", []part{
		{"pdf", "claim.pdf", testsupport.ClaimantDocument("CL 123 45", "2024-01-10", "bicycle")},
	}, nil)
	w := e.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("extract: %d %s", w.Code, w.Body.String())
	}
	facts := decode[api.ClaimFacts](t, w)
	if facts.ClaimID != "CL12345" || facts.ClaimDate != "2024-01-10" || facts.Role != "claimant" {
		t.Fatalf("unexpected facts %+v", facts)
	}

	req = multipartRequest(t, "/api/images/verify", []part{
		{"images", "recent.jpg", testsupport.JPEGWithCaptureTime(t, "2024:01:05 08:00:00")},
		{"images", "old.jpg", testsupport.JPEGWithCaptureTime(t, "2023:06:01 08:00:00")},
		{"images", "bare.jpg", testsupport.JPEGWithoutExif()},
	}, map[string]string{"claim_date": "2024-01-10"})
	w = e.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	results := decode[struct {
		Results []api.ImageCheck `json:"results"`
	}](t, w).Results
	want := []string{"Valid", "StaleCapture", "MetadataMissing"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Validation != want[i] {
			t.Fatalf("result %d: got %s want %s", i, r.Validation, want[i])
		}
	}

	req = multipartRequest(t, "/api/documents/extract", []part{
		{"pdf", "notes.txt", []byte("nothing to see")},
	}, nil)
	if w = e.do(t, req); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unrecognized document, got %d", w.Code)
	}
}

func TestAuthAndHealth(t *testing.T) {
	e := newEnv(t, testsupport.WithAPIToken("secret"))

	if w := e.do(t, httptest.NewRequest(http.MethodGet, "/api/claims", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/claims/ids", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if w := e.do(t, req); w.Code != http.StatusNotFound {
		t.Fatalf("expected authorized request to reach handler, got %d", w.Code)
	}

	w := e.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	health := decode[api.HealthResponse](t, w)
	if !health.Ready || len(health.Components) != 6 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestDaemonStartStop(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !e.daemon.Running() {
		t.Fatal("expected daemon to report running")
	}
	if err := e.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	resp, err := http.Get("http://" + e.daemon.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from live server, got %d", resp.StatusCode)
	}

	e.daemon.Stop()
	if e.daemon.Running() {
		t.Fatal("expected daemon to be stopped")
	}
}
