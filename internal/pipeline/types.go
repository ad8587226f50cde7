package pipeline

import (
	"context"
	"time"

	"claimcheck/internal/claims"
	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/stage"
)

// DocumentAnalyzer extracts claim facts from the submitted document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, document []byte) (docanalysis.Facts, error)
}

// PhotoAnalyzer scores one photograph against the covered item.
type PhotoAnalyzer interface {
	Analyze(ctx context.Context, req contentanalysis.Request) (contentanalysis.Result, error)
}

// Committer persists a run's aggregate in one transaction. Exists lets the
// run refuse an already committed claim before any evidence is written.
type Committer interface {
	Exists(ctx context.Context, claimID string) (bool, error)
	Commit(ctx context.Context, agg claims.Aggregate) error
}

// Suggester produces the advisory recommendation for a committed claim.
type Suggester interface {
	Synthesize(ctx context.Context, claimID string) (claims.Suggestion, error)
}

// File is one uploaded file.
type File struct {
	Name string
	Data []byte
}

// Submission is the evidence for one claim: a document and its photographs.
type Submission struct {
	Document File
	Photos   []File
}

// Ticket acknowledges a detached run.
type Ticket struct {
	RunID    string    `json:"run_id"`
	Accepted time.Time `json:"accepted"`
}

// PhotoOutcome is the recorded verdict for one photograph.
type PhotoOutcome struct {
	FileName       string `json:"file_name"`
	URL            string `json:"url,omitempty"`
	CaptureDate    string `json:"capture_date"`
	Validation     string `json:"validation"`
	Classification string `json:"classification,omitempty"`
	Score          *int   `json:"score,omitempty"`
	Description    string `json:"description,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Dropped        bool   `json:"dropped,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	RunID       string            `json:"run_id"`
	ClaimID     string            `json:"claim_id,omitempty"`
	State       stage.State       `json:"state"`
	LastState   stage.State       `json:"last_state"`
	Facts       docanalysis.Facts `json:"facts"`
	DocumentURL string            `json:"document_url,omitempty"`
	Photos      []PhotoOutcome    `json:"photos"`
	Duration    time.Duration     `json:"duration_ns"`
	Err         error             `json:"-"`
}

// Committed reports whether the run reached the Committed state.
func (r Result) Committed() bool {
	return r.State == stage.Committed
}

// Counts tallies authorized, rejected, and dropped photographs.
func (r Result) Counts() (authorized, rejected, dropped int) {
	for _, p := range r.Photos {
		switch {
		case p.Dropped:
			dropped++
		case p.Classification == string(contentanalysis.Authorized):
			authorized++
		default:
			rejected++
		}
	}
	return authorized, rejected, dropped
}
