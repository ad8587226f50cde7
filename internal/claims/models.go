package claims

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the adjuster-set claim status.
type Status string

const (
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusPending  Status = "Pending"
)

// ParseStatus accepts the three adjuster statuses case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	case "pending":
		return StatusPending, true
	}
	return "", false
}

// Recommendation is the advisory verdict produced after commit.
type Recommendation string

const (
	RecommendAccept  Recommendation = "Accept"
	RecommendReject  Recommendation = "Reject"
	RecommendPending Recommendation = "Pending"
)

// Claim is one committed claim with its evidence rows.
type Claim struct {
	ID           string      `json:"id"`
	Status       *Status     `json:"status"`
	AIStatus     string      `json:"ai_status"`
	ReportedDate time.Time   `json:"reported_date"`
	CoveredItem  string      `json:"covered_item"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Document     *Document   `json:"document,omitempty"`
	Photos       []Photo     `json:"photos,omitempty"`
	Suggestion   *Suggestion `json:"suggestion,omitempty"`
}

// Document is the stored claim document.
type Document struct {
	ID          int64           `json:"id"`
	ClaimID     string          `json:"claim_id"`
	URL         string          `json:"url"`
	Description string          `json:"description"`
	Role        string          `json:"role"`
	Facts       json.RawMessage `json:"facts,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Photo is one stored photograph with its verdict.
type Photo struct {
	ID          int64     `json:"id"`
	ClaimID     string    `json:"claim_id"`
	Position    int       `json:"position"`
	FileName    string    `json:"file_name"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Validation  string    `json:"validation"`
	Score       *int      `json:"score"`
	Description string    `json:"description"`
	Reason      string    `json:"reason,omitempty"`
	CaptureDate string    `json:"capture_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Suggestion is the advisory recommendation for a claim.
type Suggestion struct {
	ClaimID        string         `json:"claim_id"`
	Recommendation Recommendation `json:"recommendation"`
	Rationale      string         `json:"rationale"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Aggregate is everything written by one Commit.
type Aggregate struct {
	Claim    Claim
	Document Document
	Photos   []Photo
}

// ListingRow is one row of the claim listing: a claim joined with its
// document and each photo. Claims without photos appear once with a nil image.
type ListingRow struct {
	ID       string  `json:"id" gorm:"column:id"`
	PDFURL   *string `json:"pdfURL" gorm:"column:pdf_url"`
	ImageURL *string `json:"imageURL" gorm:"column:image_url"`
}

// Evidence is the read-back used to build the suggestion prompt.
type Evidence struct {
	ClaimID             string
	CoveredItem         string
	AIStatus            string
	ReportedDate        time.Time
	DocumentDescription string
	Photos              []Photo
}
