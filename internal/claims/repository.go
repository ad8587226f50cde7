package claims

import (
	"context"
	"fmt"
	"strings"

	"claimcheck/internal/config"
	"claimcheck/internal/services"
)

// User-facing messages carried by ErrNotFound failures.
const (
	MsgNoClaims      = "No claims found."
	MsgClaimNotFound = "Claim ID not found."
)

const componentName = "claims"

// Repository is the claim persistence gateway shared by both backends.
type Repository interface {
	// Commit writes the aggregate atomically. Failures carry services.ErrTransaction.
	Commit(ctx context.Context, agg Aggregate) error
	ListClaims(ctx context.Context) ([]ListingRow, error)
	ClaimIDs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, claimID string) (bool, error)
	Claim(ctx context.Context, claimID string) (*Claim, error)
	UpdateStatus(ctx context.Context, claimID string, status Status) error
	// Delete removes the claim and every dependent row, returning the row count.
	Delete(ctx context.Context, claimID string) (int64, error)
	Evidence(ctx context.Context, claimID string) (*Evidence, error)
	SaveSuggestion(ctx context.Context, s Suggestion) error
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*GormStore)(nil)
)

// OpenRepository opens the backend selected by database.driver.
func OpenRepository(cfg *config.Config) (Repository, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "open", "config is nil", nil)
	}
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return OpenGorm(cfg)
	case config.DriverSQLite, "":
		return Open(cfg)
	default:
		return nil, services.Wrap(services.ErrConfiguration, componentName, "open",
			fmt.Sprintf("unknown database driver %q", cfg.Database.Driver), nil)
	}
}

func validateAggregate(agg Aggregate) error {
	id := agg.Claim.ID
	switch {
	case strings.TrimSpace(id) == "":
		return services.Wrap(services.ErrTransaction, componentName, "commit", "claim id is empty", nil)
	case agg.Claim.ReportedDate.IsZero():
		return services.Wrap(services.ErrTransaction, componentName, "commit", "reported date is empty", nil)
	case strings.TrimSpace(agg.Document.URL) == "":
		return services.Wrap(services.ErrTransaction, componentName, "commit", "document url is empty", nil)
	}
	for i, p := range agg.Photos {
		if strings.TrimSpace(p.URL) == "" {
			return services.Wrap(services.ErrTransaction, componentName, "commit", fmt.Sprintf("photo %d url is empty", i), nil)
		}
		if p.Score != nil && (*p.Score < 0 || *p.Score > 100) {
			return services.Wrap(services.ErrTransaction, componentName, "commit", fmt.Sprintf("photo %d score out of range", i), nil)
		}
	}
	return nil
}

func notFound(operation, message string) error {
	return services.Wrap(services.ErrNotFound, componentName, operation, message, nil)
}

func statusPointer(raw string) *Status {
	if raw == "" {
		return nil
	}
	s := Status(raw)
	return &s
}
