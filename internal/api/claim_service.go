package api

import (
	"context"
	"strings"

	"claimcheck/internal/claims"
	"claimcheck/internal/services"
)

// ClaimRepository abstracts the persistence operations the service needs.
type ClaimRepository interface {
	ListClaims(ctx context.Context) ([]claims.ListingRow, error)
	ClaimIDs(ctx context.Context) ([]string, error)
	Claim(ctx context.Context, claimID string) (*claims.Claim, error)
	UpdateStatus(ctx context.Context, claimID string, status claims.Status) error
	Delete(ctx context.Context, claimID string) (int64, error)
}

// EvidenceRemover deletes a claim's stored evidence.
type EvidenceRemover interface {
	DeletePrefix(ctx context.Context, claimID string) (int, error)
}

// ClaimService exposes claim queries and adjuster actions returning API DTOs.
type ClaimService struct {
	repo     ClaimRepository
	evidence EvidenceRemover
}

// NewClaimService constructs a ClaimService.
func NewClaimService(repo ClaimRepository, evidence EvidenceRemover) *ClaimService {
	return &ClaimService{repo: repo, evidence: evidence}
}

// ListClaims returns one row per claim and photo. An empty store yields
// services.ErrNotFound with the message "No claims found.".
func (s *ClaimService) ListClaims(ctx context.Context) ([]ClaimListing, error) {
	rows, err := s.repo.ListClaims(ctx)
	if err != nil {
		return nil, err
	}
	return FromListing(rows), nil
}

// ClaimIDs returns the distinct claim identifiers.
func (s *ClaimService) ClaimIDs(ctx context.Context) ([]string, error) {
	return s.repo.ClaimIDs(ctx)
}

// Claim returns one claim with its document, photos, and suggestion.
func (s *ClaimService) Claim(ctx context.Context, claimID string) (ClaimView, error) {
	claimID, err := requireID(claimID, "get")
	if err != nil {
		return ClaimView{}, err
	}
	c, err := s.repo.Claim(ctx, claimID)
	if err != nil {
		return ClaimView{}, err
	}
	return FromClaim(c), nil
}

// UpdateStatus sets the adjuster status to Approved, Rejected, or Pending.
func (s *ClaimService) UpdateStatus(ctx context.Context, claimID, status string) (ClaimView, error) {
	claimID, err := requireID(claimID, "update status")
	if err != nil {
		return ClaimView{}, err
	}
	parsed, ok := claims.ParseStatus(status)
	if !ok {
		return ClaimView{}, services.Wrap(services.ErrValidation, "api", "update status",
			"status must be Approved, Rejected, or Pending", nil)
	}
	if err := s.repo.UpdateStatus(ctx, claimID, parsed); err != nil {
		return ClaimView{}, err
	}
	return s.Claim(ctx, claimID)
}

// DeleteClaim removes every row for the claim in one transaction, then the
// evidence under {claimID}/. Nothing to remove yields services.ErrNotFound.
func (s *ClaimService) DeleteClaim(ctx context.Context, claimID string) (DeleteResult, error) {
	claimID, err := requireID(claimID, "delete")
	if err != nil {
		return DeleteResult{}, err
	}
	rows, err := s.repo.Delete(ctx, claimID)
	if err != nil {
		return DeleteResult{}, err
	}
	result := DeleteResult{ClaimID: claimID, RowsRemoved: rows}
	if s.evidence != nil {
		objects, err := s.evidence.DeletePrefix(ctx, claimID)
		if err != nil {
			return result, err
		}
		result.ObjectsRemoved = objects
	}
	if result.RowsRemoved == 0 && result.ObjectsRemoved == 0 {
		return result, services.Wrap(services.ErrNotFound, "api", "delete", claims.MsgClaimNotFound, nil)
	}
	return result, nil
}

func requireID(claimID, operation string) (string, error) {
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return "", services.Wrap(services.ErrValidation, "api", operation, "claim id is required", nil)
	}
	return claimID, nil
}
