// Package suggest produces the advisory recommendation for a committed claim
// from the evidence already persisted for it.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"claimcheck/internal/claims"
	"claimcheck/internal/logging"
	"claimcheck/internal/services/oracle"
)

// Completer submits a prompt to the oracle and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, parts ...oracle.Part) (string, error)
}

// Repository reads committed evidence and stores suggestions.
type Repository interface {
	Evidence(ctx context.Context, claimID string) (*claims.Evidence, error)
	SaveSuggestion(ctx context.Context, sg claims.Suggestion) error
}

// Synthesizer builds one holistic prompt per claim.
type Synthesizer struct {
	oracle Completer
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Synthesizer.
func New(client Completer, repo Repository, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		oracle: client,
		repo:   repo,
		logger: logging.NewComponentLogger(logger, "suggest"),
		now:    time.Now,
	}
}

type oracleSuggestion struct {
	Recommendation string `json:"Recommendation"`
	Reason         string `json:"Reason"`
}

// Synthesize reads back the claim's evidence, asks the oracle for a verdict,
// and stores the result.
func (s *Synthesizer) Synthesize(ctx context.Context, claimID string) (claims.Suggestion, error) {
	evidence, err := s.repo.Evidence(ctx, claimID)
	if err != nil {
		return claims.Suggestion{}, err
	}
	reply, err := s.oracle.Complete(ctx, oracle.TextPart(buildPrompt(evidence)))
	if err != nil {
		return claims.Suggestion{}, err
	}
	var raw oracleSuggestion
	if err := oracle.DecodeJSON(reply, &raw); err != nil {
		return claims.Suggestion{}, err
	}
	sg := claims.Suggestion{
		ClaimID:        claimID,
		Recommendation: MapRecommendation(raw.Recommendation),
		Rationale:      strings.TrimSpace(raw.Reason),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.SaveSuggestion(ctx, sg); err != nil {
		return claims.Suggestion{}, err
	}
	logging.WithContext(ctx, s.logger).Info("suggestion stored",
		logging.String(logging.FieldEventType, "suggestion_stored"),
		logging.String("recommendation", string(sg.Recommendation)),
	)
	return sg, nil
}

var synonyms = map[string]claims.Recommendation{
	"accept":      claims.RecommendAccept,
	"accepted":    claims.RecommendAccept,
	"approve":     claims.RecommendAccept,
	"approved":    claims.RecommendAccept,
	"authorize":   claims.RecommendAccept,
	"authorized":  claims.RecommendAccept,
	"pay":         claims.RecommendAccept,
	"reject":      claims.RecommendReject,
	"rejected":    claims.RecommendReject,
	"deny":        claims.RecommendReject,
	"denied":      claims.RecommendReject,
	"decline":     claims.RecommendReject,
	"declined":    claims.RecommendReject,
	"pending":     claims.RecommendPending,
	"review":      claims.RecommendPending,
	"investigate": claims.RecommendPending,
	"escalate":    claims.RecommendPending,
	"hold":        claims.RecommendPending,
}

// MapRecommendation maps the Recommendation field onto Accept, Reject, or
// Pending. The whole value must be one known word, ignoring case and
// surrounding punctuation; phrases such as "do not accept" are Pending.
func MapRecommendation(raw string) claims.Recommendation {
	word := strings.TrimFunc(strings.ToLower(raw), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	if rec, ok := synonyms[word]; ok {
		return rec
	}
	return claims.RecommendPending
}

func buildPrompt(ev *claims.Evidence) string {
	var b strings.Builder
	b.WriteString("You are assisting an insurance adjuster. Review the claim evidence below and recommend whether the claim should be accepted, rejected, or left pending for manual review.\n")
	b.WriteString(`Respond with JSON only: {"Recommendation": "Accept|Reject|Pending", "Reason": "one short paragraph"}` + "\n\n")
	fmt.Fprintf(&b, "Claim ID: %s\n", ev.ClaimID)
	fmt.Fprintf(&b, "Covered item: %s\n", ev.CoveredItem)
	if !ev.ReportedDate.IsZero() {
		fmt.Fprintf(&b, "Reported date: %s\n", ev.ReportedDate.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "Status stated in the claim document: %s\n", ev.AIStatus)
	fmt.Fprintf(&b, "Claim document summary: %s\n", strings.TrimSpace(ev.DocumentDescription))
	if len(ev.Photos) == 0 {
		b.WriteString("No photographs passed analysis.\n")
		return b.String()
	}
	b.WriteString("Photographs:\n")
	for _, p := range ev.Photos {
		score := "n/a"
		if p.Score != nil {
			score = fmt.Sprintf("%d", *p.Score)
		}
		fmt.Fprintf(&b, "- %s: %s, capture check %s, match score %s. %s\n",
			p.FileName, p.Status, p.Validation, score, strings.TrimSpace(p.Description))
	}
	return b.String()
}
