package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"claimcheck/internal/services"
)

const listingQuery = `
SELECT c.claim_id AS id, d.url AS pdf_url, p.url AS image_url
FROM claims c
LEFT JOIN documents d ON c.claim_id = d.claim_id
LEFT JOIN photos p ON c.claim_id = p.claim_id
ORDER BY c.created_at, c.claim_id, p.position`

// ListClaims returns one row per claim/photo pair. An empty database yields
// services.ErrNotFound.
func (s *Store) ListClaims(ctx context.Context) ([]ListingRow, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), listingQuery)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []ListingRow
	for rows.Next() {
		var (
			row      ListingRow
			pdfURL   sql.NullString
			imageURL sql.NullString
		)
		if err := rows.Scan(&row.ID, &pdfURL, &imageURL); err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}
		if pdfURL.Valid {
			row.PDFURL = &pdfURL.String
		}
		if imageURL.Valid {
			row.ImageURL = &imageURL.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	if len(out) == 0 {
		return nil, notFound("list", MsgNoClaims)
	}
	return out, nil
}

// ClaimIDs returns the distinct claim identifiers.
func (s *Store) ClaimIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT DISTINCT claim_id FROM claims ORDER BY claim_id`)
	if err != nil {
		return nil, fmt.Errorf("list claim ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claim id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, notFound("ids", MsgNoClaims)
	}
	return ids, nil
}

// Exists reports whether a claim row with this identifier is committed.
func (s *Store) Exists(ctx context.Context, claimID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM claims WHERE claim_id = ?`, claimID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}

// Claim loads a claim with its document, photos, and suggestion.
func (s *Store) Claim(ctx context.Context, claimID string) (*Claim, error) {
	ctx = ensureContext(ctx)
	var (
		c                  Claim
		status             sql.NullString
		reported           string
		createdRaw, updRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT claim_id, status, ai_status, reported_date, covered_item, created_at, updated_at
         FROM claims WHERE claim_id = ?`, claimID,
	).Scan(&c.ID, &status, &c.AIStatus, &reported, &c.CoveredItem, &createdRaw, &updRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", MsgClaimNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	c.Status = statusPointer(status.String)
	c.ReportedDate = parseDay(reported)
	c.CreatedAt = parseTimeOrZero(createdRaw)
	c.UpdatedAt = parseTimeOrZero(updRaw)

	doc, err := s.document(ctx, claimID)
	if err != nil {
		return nil, err
	}
	c.Document = doc
	if c.Photos, err = s.photos(ctx, claimID); err != nil {
		return nil, err
	}
	if c.Suggestion, err = s.suggestion(ctx, claimID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) document(ctx context.Context, claimID string) (*Document, error) {
	var (
		d          Document
		facts      sql.NullString
		createdRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, url, description, role, facts, created_at
         FROM documents WHERE claim_id = ? ORDER BY id LIMIT 1`, claimID,
	).Scan(&d.ID, &d.ClaimID, &d.URL, &d.Description, &d.Role, &facts, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if facts.Valid {
		d.Facts = []byte(facts.String)
	}
	d.CreatedAt = parseTimeOrZero(createdRaw)
	return &d, nil
}

func (s *Store) photos(ctx context.Context, claimID string) ([]Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, position, file_name, url, status, validation, score, description, reason, capture_date, created_at
         FROM photos WHERE claim_id = ? ORDER BY position, id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var (
			p          Photo
			score      sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.Position, &p.FileName, &p.URL, &p.Status, &p.Validation,
			&score, &p.Description, &p.Reason, &p.CaptureDate, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		p.Score = intPointer(score)
		p.CreatedAt = parseTimeOrZero(createdRaw)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return out, nil
}

func (s *Store) suggestion(ctx context.Context, claimID string) (*Suggestion, error) {
	var (
		sg         Suggestion
		rec        string
		createdRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT claim_id, recommendation, rationale, created_at FROM suggestions WHERE claim_id = ?`, claimID,
	).Scan(&sg.ClaimID, &rec, &sg.Rationale, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	sg.Recommendation = Recommendation(rec)
	sg.CreatedAt = parseTimeOrZero(createdRaw)
	return &sg, nil
}

// UpdateStatus sets the adjuster status. Unknown claims yield services.ErrNotFound.
func (s *Store) UpdateStatus(ctx context.Context, claimID string, status Status) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return services.Wrap(services.ErrValidation, componentName, "update status", fmt.Sprintf("invalid status %q", status), nil)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE claims SET status = ?, updated_at = ? WHERE claim_id = ?`,
		string(status), formatTime(time.Now()), claimID,
	)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	if affected == 0 {
		return notFound("update status", MsgClaimNotFound)
	}
	return nil
}

// Delete removes the claim and its dependent rows in one transaction.
func (s *Store) Delete(ctx context.Context, claimID string) (int64, error) {
	ctx = ensureContext(ctx)
	var total int64
	err := retryOnBusy(ctx, func() error {
		total = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()
		for _, table := range []string{"suggestions", "photos", "documents", "claims"} {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE claim_id = ?`, claimID)
			if err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
			total += n
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransaction, componentName, "delete", "claim "+claimID, err)
	}
	return total, nil
}

// Evidence reads back the descriptions used to synthesize a suggestion.
func (s *Store) Evidence(ctx context.Context, claimID string) (*Evidence, error) {
	claim, err := s.Claim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return evidenceFromClaim(claim), nil
}

// SaveSuggestion inserts or replaces the suggestion for a claim.
func (s *Store) SaveSuggestion(ctx context.Context, sg Suggestion) error {
	created := sg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO suggestions (claim_id, recommendation, rationale, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(claim_id) DO UPDATE SET recommendation = excluded.recommendation,
             rationale = excluded.rationale, created_at = excluded.created_at`,
		sg.ClaimID, string(sg.Recommendation), sg.Rationale, formatTime(created),
	)
	if err != nil {
		return services.Wrap(services.ErrTransaction, componentName, "save suggestion", "claim "+sg.ClaimID, err)
	}
	return nil
}

func evidenceFromClaim(c *Claim) *Evidence {
	ev := &Evidence{
		ClaimID:      c.ID,
		CoveredItem:  c.CoveredItem,
		AIStatus:     c.AIStatus,
		ReportedDate: c.ReportedDate,
		Photos:       c.Photos,
	}
	if c.Document != nil {
		ev.DocumentDescription = c.Document.Description
	}
	return ev
}
