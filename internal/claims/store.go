package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"claimcheck/internal/config"
	"claimcheck/internal/services"
)

// Store persists claims in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the claims database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := strings.TrimSpace(cfg.Database.Path)
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Paths.DataDir, "claims.db")
	}
	return openPath(dbPath)
}

func openPath(dbPath string) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	params := url.Values{}
	for _, pragma := range []string{"journal_mode(WAL)", "foreign_keys(1)", "busy_timeout(5000)"} {
		params.Add("_pragma", pragma)
	}
	db, err := sql.Open("sqlite", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Driver() string {
	return config.DriverSQLite
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ensureContext(ctx))
}

// Commit inserts the claim, then its document, then each photo, in one
// transaction. Any failure rolls everything back.
func (s *Store) Commit(ctx context.Context, agg Aggregate) error {
	if err := validateAggregate(agg); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		return s.commitOnce(ctx, agg)
	})
	if err != nil {
		return services.Wrap(services.ErrTransaction, componentName, "commit", "claim "+agg.Claim.ID, err)
	}
	return nil
}

func (s *Store) commitOnce(ctx context.Context, agg Aggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := formatTime(time.Now())
	c := agg.Claim
	var status any
	if c.Status != nil {
		status = string(*c.Status)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claims (claim_id, status, ai_status, reported_date, covered_item, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, status, c.AIStatus, c.ReportedDate.Format(time.DateOnly), c.CoveredItem, now, now,
	); err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}

	d := agg.Document
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (claim_id, url, description, role, facts, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, d.URL, d.Description, d.Role, nullableBytes(d.Facts), now,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for i, p := range agg.Photos {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO photos (claim_id, position, file_name, url, status, validation, score, description, reason, capture_date, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, p.FileName, p.URL, p.Status, p.Validation, nullableInt(p.Score), p.Description, p.Reason, p.CaptureDate, now,
		); err != nil {
			return fmt.Errorf("insert photo %d (%s): %w", i, p.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
