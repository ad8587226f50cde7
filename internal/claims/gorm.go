package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"claimcheck/internal/config"
	"claimcheck/internal/services"
)

type claimRow struct {
	ClaimID      string    `gorm:"column:claim_id;type:text;primaryKey"`
	Status       *string   `gorm:"column:status;type:text"`
	AIStatus     string    `gorm:"column:ai_status;type:text;not null;default:''"`
	ReportedDate string    `gorm:"column:reported_date;type:text;not null"`
	CoveredItem  string    `gorm:"column:covered_item;type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Documents  []documentRow  `gorm:"foreignKey:ClaimID;references:ClaimID;constraint:OnDelete:CASCADE"`
	Photos     []photoRow     `gorm:"foreignKey:ClaimID;references:ClaimID;constraint:OnDelete:CASCADE"`
	Suggestion *suggestionRow `gorm:"foreignKey:ClaimID;references:ClaimID;constraint:OnDelete:CASCADE"`
}

func (claimRow) TableName() string { return "claims" }

type documentRow struct {
	ID          int64          `gorm:"primaryKey"`
	ClaimID     string         `gorm:"column:claim_id;type:text;not null;index"`
	URL         string         `gorm:"column:url;type:text;not null"`
	Description string         `gorm:"type:text;not null;default:''"`
	Role        string         `gorm:"type:text;not null;default:''"`
	Facts       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null"`
}

func (documentRow) TableName() string { return "documents" }

type photoRow struct {
	ID          int64     `gorm:"primaryKey"`
	ClaimID     string    `gorm:"column:claim_id;type:text;not null;index"`
	Position    int       `gorm:"not null"`
	FileName    string    `gorm:"type:text;not null"`
	URL         string    `gorm:"column:url;type:text;not null"`
	Status      string    `gorm:"type:text;not null"`
	Validation  string    `gorm:"type:text;not null"`
	Score       *int      `gorm:"check:chk_photos_score,score IS NULL OR (score BETWEEN 0 AND 100)"`
	Description string    `gorm:"type:text;not null;default:''"`
	Reason      string    `gorm:"type:text;not null;default:''"`
	CaptureDate string    `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (photoRow) TableName() string { return "photos" }

type suggestionRow struct {
	ClaimID        string    `gorm:"column:claim_id;type:text;primaryKey"`
	Recommendation string    `gorm:"type:text;not null"`
	Rationale      string    `gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (suggestionRow) TableName() string { return "suggestions" }

// GormStore persists claims in Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects to Postgres and migrates the schema.
func OpenGorm(cfg *config.Config) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "open postgres", "", err)
	}
	return newGormStore(context.Background(), db)
}

func newGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&claimRow{}, &documentRow{}, &photoRow{}, &suggestionRow{}); err != nil {
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) Driver() string {
	return config.DriverPostgres
}

func (g *GormStore) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ensureContext(ctx))
}

// Commit inserts the claim, document, and photos inside db.Transaction.
func (g *GormStore) Commit(ctx context.Context, agg Aggregate) error {
	if err := validateAggregate(agg); err != nil {
		return err
	}
	now := time.Now().UTC()
	c := agg.Claim
	row := claimRow{
		ClaimID:      c.ID,
		AIStatus:     c.AIStatus,
		ReportedDate: c.ReportedDate.Format(time.DateOnly),
		CoveredItem:  c.CoveredItem,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Status != nil {
		status := string(*c.Status)
		row.Status = &status
	}
	doc := documentRow{
		ClaimID:     c.ID,
		URL:         agg.Document.URL,
		Description: agg.Document.Description,
		Role:        agg.Document.Role,
		Facts:       datatypes.JSON(agg.Document.Facts),
		CreatedAt:   now,
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for i, p := range agg.Photos {
			photo := photoRow{
				ClaimID:     c.ID,
				Position:    i,
				FileName:    p.FileName,
				URL:         p.URL,
				Status:      p.Status,
				Validation:  p.Validation,
				Score:       p.Score,
				Description: p.Description,
				Reason:      p.Reason,
				CaptureDate: p.CaptureDate,
				CreatedAt:   now,
			}
			if err := tx.Create(&photo).Error; err != nil {
				return fmt.Errorf("insert photo %d (%s): %w", i, p.FileName, err)
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransaction, componentName, "commit", "claim "+c.ID, err)
	}
	return nil
}

func (g *GormStore) ListClaims(ctx context.Context) ([]ListingRow, error) {
	var rows []ListingRow
	if err := g.db.WithContext(ctx).Raw(listingQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	if len(rows) == 0 {
		return nil, notFound("list", MsgNoClaims)
	}
	return rows, nil
}

func (g *GormStore) ClaimIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := g.db.WithContext(ctx).Model(&claimRow{}).Distinct().Order("claim_id").Pluck("claim_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list claim ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, notFound("ids", MsgNoClaims)
	}
	return ids, nil
}

func (g *GormStore) Exists(ctx context.Context, claimID string) (bool, error) {
	var n int64
	if err := g.db.WithContext(ensureContext(ctx)).Model(&claimRow{}).Where("claim_id = ?", claimID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}

func (g *GormStore) Claim(ctx context.Context, claimID string) (*Claim, error) {
	var row claimRow
	err := g.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Suggestion").
		First(&row, "claim_id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("get", MsgClaimNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	c := &Claim{
		ID:           row.ClaimID,
		AIStatus:     row.AIStatus,
		ReportedDate: parseDay(row.ReportedDate),
		CoveredItem:  row.CoveredItem,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Status != nil {
		c.Status = statusPointer(*row.Status)
	}
	if len(row.Documents) > 0 {
		d := row.Documents[0]
		c.Document = &Document{
			ID:          d.ID,
			ClaimID:     d.ClaimID,
			URL:         d.URL,
			Description: d.Description,
			Role:        d.Role,
			Facts:       []byte(d.Facts),
			CreatedAt:   d.CreatedAt,
		}
	}
	for _, p := range row.Photos {
		c.Photos = append(c.Photos, Photo{
			ID:          p.ID,
			ClaimID:     p.ClaimID,
			Position:    p.Position,
			FileName:    p.FileName,
			URL:         p.URL,
			Status:      p.Status,
			Validation:  p.Validation,
			Score:       p.Score,
			Description: p.Description,
			Reason:      p.Reason,
			CaptureDate: p.CaptureDate,
			CreatedAt:   p.CreatedAt,
		})
	}
	if s := row.Suggestion; s != nil {
		c.Suggestion = &Suggestion{
			ClaimID:        s.ClaimID,
			Recommendation: Recommendation(s.Recommendation),
			Rationale:      s.Rationale,
			CreatedAt:      s.CreatedAt,
		}
	}
	return c, nil
}

func (g *GormStore) UpdateStatus(ctx context.Context, claimID string, status Status) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return services.Wrap(services.ErrValidation, componentName, "update status", fmt.Sprintf("invalid status %q", status), nil)
	}
	res := g.db.WithContext(ctx).Model(&claimRow{}).Where("claim_id = ?", claimID).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update claim status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("update status", MsgClaimNotFound)
	}
	return nil
}

func (g *GormStore) Delete(ctx context.Context, claimID string) (int64, error) {
	var total int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&suggestionRow{}, &photoRow{}, &documentRow{}, &claimRow{}} {
			res := tx.Where("claim_id = ?", claimID).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransaction, componentName, "delete", "claim "+claimID, err)
	}
	return total, nil
}

func (g *GormStore) Evidence(ctx context.Context, claimID string) (*Evidence, error) {
	claim, err := g.Claim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return evidenceFromClaim(claim), nil
}

func (g *GormStore) SaveSuggestion(ctx context.Context, sg Suggestion) error {
	created := sg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := suggestionRow{
		ClaimID:        sg.ClaimID,
		Recommendation: string(sg.Recommendation),
		Rationale:      sg.Rationale,
		CreatedAt:      created.UTC(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "claim_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"recommendation", "rationale", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return services.Wrap(services.ErrTransaction, componentName, "save suggestion", "claim "+sg.ClaimID, err)
	}
	return nil
}
