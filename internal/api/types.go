package api

import (
	"encoding/json"

	"claimcheck/internal/stage"
	"claimcheck/internal/tasks"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ClaimListing is one row of the claim listing.
type ClaimListing struct {
	ID       string  `json:"id"`
	PDFURL   *string `json:"pdfURL"`
	ImageURL *string `json:"imageURL"`
}

// ClaimView describes a committed claim.
type ClaimView struct {
	ID           string          `json:"id"`
	Status       *string         `json:"status"`
	AIStatus     string          `json:"aiStatus"`
	ReportedDate string          `json:"reportedDate"`
	CoveredItem  string          `json:"coveredItem"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	Document     *DocumentView   `json:"document,omitempty"`
	Photos       []PhotoView     `json:"photos"`
	Suggestion   *SuggestionView `json:"suggestion,omitempty"`
}

// DocumentView describes the stored claim document.
type DocumentView struct {
	URL         string          `json:"url"`
	Description string          `json:"description"`
	Role        string          `json:"role"`
	Facts       json.RawMessage `json:"facts,omitempty"`
}

// PhotoView describes one stored photograph.
type PhotoView struct {
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	Validation  string `json:"validation"`
	Score       *int   `json:"score"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
	CaptureDate string `json:"captureDate,omitempty"`
}

// SuggestionView describes the advisory recommendation.
type SuggestionView struct {
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// StatusUpdate is the body of an adjuster status change.
type StatusUpdate struct {
	Status string `json:"status"`
}

// DeleteResult reports what a folder delete removed.
type DeleteResult struct {
	ClaimID        string `json:"claimId"`
	RowsRemoved    int64  `json:"rowsRemoved"`
	ObjectsRemoved int    `json:"objectsRemoved"`
}

// MessageResponse carries a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// RunAccepted acknowledges a detached claim run.
type RunAccepted struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// RunResult describes a pipeline run outcome.
type RunResult struct {
	RunID       string     `json:"runId"`
	ClaimID     string     `json:"claimId,omitempty"`
	State       string     `json:"state"`
	LastState   string     `json:"lastState"`
	AIStatus    string     `json:"aiStatus,omitempty"`
	ClaimDate   string     `json:"claimDate,omitempty"`
	CoveredItem string     `json:"coveredItem,omitempty"`
	DocumentURL string     `json:"documentUrl,omitempty"`
	Photos      []RunPhoto `json:"photos"`
	Error       string     `json:"error,omitempty"`
	FailureKind string     `json:"failureKind,omitempty"`
	DurationMS  int64      `json:"durationMs"`
}

// RunPhoto describes one photograph's verdict within a run.
type RunPhoto struct {
	FileName       string `json:"fileName"`
	CaptureDate    string `json:"captureDate"`
	Validation     string `json:"validation"`
	Classification string `json:"classification,omitempty"`
	Score          *int   `json:"score,omitempty"`
	Description    string `json:"description,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Dropped        bool   `json:"dropped,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ClaimFacts is the synchronous document extraction payload.
type ClaimFacts struct {
	Role         string `json:"role"`
	Name         string `json:"name"`
	VehicleInfo  string `json:"vehicleInfo,omitempty"`
	Location     string `json:"location,omitempty"`
	ClaimStatus  string `json:"claimStatus"`
	ClaimDate    string `json:"claimDate"`
	Reason       string `json:"reason"`
	ItemsCovered string `json:"itemsCovered"`
	ClaimID      string `json:"claimId"`
}

// ImageCheck reports the capture-date check for one uploaded image.
type ImageCheck struct {
	FileName    string `json:"fileName"`
	CaptureDate string `json:"captureDate"`
	Validation  string `json:"validation"`
	Message     string `json:"message"`
}

// HealthResponse aggregates component readiness.
type HealthResponse struct {
	Ready      bool           `json:"ready"`
	Components []stage.Health `json:"components"`
	Tasks      tasks.Stats    `json:"tasks"`
}
