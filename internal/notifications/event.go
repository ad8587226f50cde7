package notifications

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies a run event.
type EventType string

const (
	EventClaimCommitted EventType = "claim_committed"
	EventRunFailed      EventType = "run_failed"
	EventSuggestion     EventType = "suggestion_ready"
	EventTest           EventType = "test"
)

// RunSummary describes a committed run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	ClaimID    string        `json:"claim_id"`
	AIStatus   string        `json:"ai_status"`
	Photos     int           `json:"photos"`
	Authorized int           `json:"authorized"`
	Rejected   int           `json:"rejected"`
	Dropped    int           `json:"dropped"`
	Duration   time.Duration `json:"duration_ns"`
}

// RunFailure describes a run that ended in the Failed state.
type RunFailure struct {
	RunID   string `json:"run_id"`
	ClaimID string `json:"claim_id,omitempty"`
	State   string `json:"state"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

// SuggestionNotice describes a stored advisory recommendation.
type SuggestionNotice struct {
	ClaimID        string `json:"claim_id"`
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
}

// Event is the envelope handed to every publisher.
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"run_id,omitempty"`
	ClaimID  string    `json:"claim_id,omitempty"`
	Time     time.Time `json:"time"`
	Data     any       `json:"data,omitempty"`
	title    string
	message  string
	tags     []string
	priority string
}

func committedEvent(s RunSummary) Event {
	return Event{
		Type:    EventClaimCommitted,
		RunID:   s.RunID,
		ClaimID: s.ClaimID,
		Time:    time.Now().UTC(),
		Data:    s,
		title:   "Claimcheck - Claim Committed",
		message: fmt.Sprintf("Claim %s committed: %d photos (%d authorized, %d rejected, %d dropped)",
			s.ClaimID, s.Photos, s.Authorized, s.Rejected, s.Dropped),
		tags: []string{"claimcheck", "claim", "committed"},
	}
}

func failedEvent(f RunFailure) Event {
	label := f.RunID
	if f.ClaimID != "" {
		label = fmt.Sprintf("%s (claim %s)", f.RunID, f.ClaimID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s failed", label)
	if f.State != "" {
		fmt.Fprintf(&b, " after %s", f.State)
	}
	b.WriteString(": ")
	if msg := strings.TrimSpace(f.Error); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("unknown")
	}
	return Event{
		Type:     EventRunFailed,
		RunID:    f.RunID,
		ClaimID:  f.ClaimID,
		Time:     time.Now().UTC(),
		Data:     f,
		title:    "Claimcheck - Run Failed",
		message:  b.String(),
		tags:     []string{"claimcheck", "error", "alert"},
		priority: "high",
	}
}

func suggestionEvent(n SuggestionNotice) Event {
	message := fmt.Sprintf("Claim %s: %s", n.ClaimID, n.Recommendation)
	if r := strings.TrimSpace(n.Rationale); r != "" {
		message += "\n" + r
	}
	return Event{
		Type:    EventSuggestion,
		ClaimID: n.ClaimID,
		Time:    time.Now().UTC(),
		Data:    n,
		title:   "Claimcheck - Suggestion",
		message: message,
		tags:    []string{"claimcheck", "suggestion", strings.ToLower(n.Recommendation)},
	}
}

func testEvent() Event {
	return Event{
		Type:     EventTest,
		Time:     time.Now().UTC(),
		title:    "Claimcheck - Test",
		message:  "Notification system test",
		tags:     []string{"claimcheck", "test"},
		priority: "low",
	}
}
