package api

import (
	"time"

	"github.com/samber/lo"

	"claimcheck/internal/claims"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/services"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// FromListing converts repository listing rows.
func FromListing(rows []claims.ListingRow) []ClaimListing {
	return lo.Map(rows, func(r claims.ListingRow, _ int) ClaimListing {
		return ClaimListing{ID: r.ID, PDFURL: r.PDFURL, ImageURL: r.ImageURL}
	})
}

// FromClaim converts a stored claim.
func FromClaim(c *claims.Claim) ClaimView {
	if c == nil {
		return ClaimView{}
	}
	view := ClaimView{
		ID:           c.ID,
		AIStatus:     c.AIStatus,
		ReportedDate: formatDay(c.ReportedDate),
		CoveredItem:  c.CoveredItem,
		CreatedAt:    formatTimestamp(c.CreatedAt),
		UpdatedAt:    formatTimestamp(c.UpdatedAt),
		Photos:       lo.Map(c.Photos, func(p claims.Photo, _ int) PhotoView { return fromPhoto(p) }),
	}
	if c.Status != nil {
		status := string(*c.Status)
		view.Status = &status
	}
	if c.Document != nil {
		view.Document = &DocumentView{
			URL:         c.Document.URL,
			Description: c.Document.Description,
			Role:        c.Document.Role,
			Facts:       c.Document.Facts,
		}
	}
	if c.Suggestion != nil {
		view.Suggestion = &SuggestionView{
			Recommendation: string(c.Suggestion.Recommendation),
			Rationale:      c.Suggestion.Rationale,
			CreatedAt:      formatTimestamp(c.Suggestion.CreatedAt),
		}
	}
	return view
}

func fromPhoto(p claims.Photo) PhotoView {
	return PhotoView{
		FileName:    p.FileName,
		URL:         p.URL,
		Status:      p.Status,
		Validation:  p.Validation,
		Score:       p.Score,
		Description: p.Description,
		Reason:      p.Reason,
		CaptureDate: p.CaptureDate,
	}
}

// FromRunResult converts a pipeline result.
func FromRunResult(res pipeline.Result) RunResult {
	out := RunResult{
		RunID:       res.RunID,
		ClaimID:     res.ClaimID,
		State:       string(res.State),
		LastState:   string(res.LastState),
		AIStatus:    res.Facts.ClaimStatus,
		ClaimDate:   res.Facts.ClaimDay(),
		CoveredItem: res.Facts.ItemsCovered,
		DocumentURL: res.DocumentURL,
		DurationMS:  res.Duration.Milliseconds(),
		Photos: lo.Map(res.Photos, func(p pipeline.PhotoOutcome, _ int) RunPhoto {
			return RunPhoto{
				FileName:       p.FileName,
				CaptureDate:    p.CaptureDate,
				Validation:     p.Validation,
				Classification: p.Classification,
				Score:          p.Score,
				Description:    p.Description,
				Reason:         p.Reason,
				Dropped:        p.Dropped,
				Error:          p.Error,
			}
		}),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		out.FailureKind = services.FailureKind(res.Err)
	}
	return out
}

// FromFacts converts extracted document facts.
func FromFacts(f docanalysis.Facts) ClaimFacts {
	return ClaimFacts{
		Role:         string(f.Role),
		Name:         f.Name,
		VehicleInfo:  f.VehicleInfo,
		Location:     f.Location,
		ClaimStatus:  f.ClaimStatus,
		ClaimDate:    f.ClaimDay(),
		Reason:       f.Reason,
		ItemsCovered: f.ItemsCovered,
		ClaimID:      f.ClaimID,
	}
}
