package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"claimcheck/internal/capture"
	"claimcheck/internal/claims"
	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/logging"
	"claimcheck/internal/services"
	"claimcheck/internal/stage"
	"claimcheck/internal/storage"
)

type step struct {
	next stage.State
	run  func(ctx context.Context, rs *runState) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{stage.DocumentAnalyzed, o.analyzeDocument},
		{stage.PhotosValidated, o.validatePhotos},
		{stage.PhotosAnalyzed, o.analyzePhotos},
		{stage.Uploaded, o.upload},
		{stage.Committed, o.commit},
	}
}

func (o *Orchestrator) execute(ctx context.Context, rs *runState) Result {
	rs.stateLogger().Info("claim run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("document", rs.document.Name),
		logging.Int("photos", len(rs.photos)),
	)
	for _, s := range o.steps() {
		if err := s.run(rs.context(ctx), rs); err != nil {
			return o.fail(ctx, rs, err)
		}
		if err := rs.advance(s.next); err != nil {
			return o.fail(ctx, rs, err)
		}
		rs.stateLogger().Debug("run state advanced", logging.String(logging.FieldEventType, "state_advanced"))
	}
	return o.finish(ctx, rs)
}

func (o *Orchestrator) analyzeDocument(ctx context.Context, rs *runState) error {
	facts, err := o.docs.Analyze(ctx, rs.document.Data)
	if err != nil {
		return err
	}
	rs.setClaim(facts)
	rs.stateLogger().Info("claim document analyzed",
		logging.String(logging.FieldEventType, "document_analyzed"),
		logging.String("role", string(facts.Role)),
		logging.String("claim_date", facts.ClaimDay()),
		logging.String("covered_item", facts.ItemsCovered),
		logging.String("ai_status", facts.ClaimStatus),
	)
	return nil
}

// validatePhotos records an outcome for every photo; it never fails the run.
func (o *Orchestrator) validatePhotos(ctx context.Context, rs *runState) error {
	var g errgroup.Group
	g.SetLimit(o.photoLimit)
	for _, p := range rs.photos {
		g.Go(func() error {
			p.captured = capture.Extract(p.file.Data)
			p.validation = o.validator.Validate(p.captured, rs.facts.ClaimDate)
			return nil
		})
	}
	_ = g.Wait()
	for _, p := range rs.photos {
		rs.stateLogger().Debug("photo validated",
			logging.String("file", p.file.Name),
			logging.String("capture_date", p.captured.String()),
			logging.String("validation", string(p.validation)),
		)
	}
	return nil
}

// analyzePhotos scores every photo concurrently. A failing photo is dropped
// and does not affect its siblings.
func (o *Orchestrator) analyzePhotos(ctx context.Context, rs *runState) error {
	batch := rs.siblings()
	var g errgroup.Group
	g.SetLimit(o.photoLimit)
	for _, p := range rs.photos {
		g.Go(func() error {
			res, err := o.content.Analyze(ctx, contentanalysis.Request{
				FileName:    p.file.Name,
				Image:       p.file.Data,
				CoveredItem: rs.facts.ItemsCovered,
				Batch:       batch,
			})
			if err != nil {
				p.err = err
				return nil
			}
			p.result = res
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range rs.photos {
		if !p.dropped() {
			continue
		}
		logging.WarnWithContext(rs.stateLogger(), "photo dropped from claim", "photo_dropped",
			logging.String("file", p.file.Name),
			logging.String("failure_kind", services.FailureKind(p.err)),
			logging.String(logging.FieldErrorHint, services.ErrorHint(p.err)),
			logging.String(logging.FieldImpact, "photo will not be stored with the claim"),
			logging.Error(p.err),
		)
	}
	return nil
}

// upload stores the document and every surviving photo. The first failure
// cancels the remaining uploads and fails the run.
func (o *Orchestrator) upload(ctx context.Context, rs *runState) error {
	claimID := rs.facts.ClaimID
	exists, err := o.claims.Exists(ctx, claimID)
	if err != nil {
		return services.Wrap(services.ErrTransaction, "pipeline", "upload evidence", "check claim "+claimID, err)
	}
	if exists {
		return services.Wrap(services.ErrTransaction, "pipeline", "upload evidence",
			fmt.Sprintf("claim %s is already committed", claimID), nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.uploadLimit)
	g.Go(func() error {
		url, err := o.evidence.Store(gctx, claimID, storage.CategoryDocuments, rs.document.Name, rs.document.Data)
		if err != nil {
			return err
		}
		rs.docURL = url
		return nil
	})
	for _, p := range rs.survivors() {
		g.Go(func() error {
			url, err := o.evidence.Store(gctx, claimID, storage.CategoryImages, p.file.Name, p.file.Data)
			if err != nil {
				return err
			}
			p.url = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, services.ErrUpload) || errors.Is(err, services.ErrValidation) {
			return err
		}
		return services.Wrap(services.ErrUpload, "pipeline", "upload evidence", "evidence upload failed", err)
	}
	rs.stateLogger().Info("evidence uploaded",
		logging.String(logging.FieldEventType, "evidence_uploaded"),
		logging.Int("objects", len(rs.survivors())+1),
	)
	return nil
}

func (o *Orchestrator) commit(ctx context.Context, rs *runState) error {
	agg, err := buildAggregate(rs)
	if err != nil {
		return err
	}
	return o.claims.Commit(ctx, agg)
}

func buildAggregate(rs *runState) (claims.Aggregate, error) {
	facts, err := json.Marshal(rs.facts)
	if err != nil {
		return claims.Aggregate{}, services.Wrap(services.ErrTransaction, "pipeline", "commit", "encode document facts", err)
	}
	agg := claims.Aggregate{
		Claim: claims.Claim{
			ID:           rs.facts.ClaimID,
			AIStatus:     rs.facts.ClaimStatus,
			ReportedDate: rs.facts.ClaimDate,
			CoveredItem:  rs.facts.ItemsCovered,
		},
		Document: claims.Document{
			ClaimID:     rs.facts.ClaimID,
			URL:         rs.docURL,
			Description: rs.facts.Reason,
			Role:        string(rs.facts.Role),
			Facts:       facts,
		},
	}
	for i, p := range rs.survivors() {
		photo := claims.Photo{
			ClaimID:     rs.facts.ClaimID,
			Position:    i,
			FileName:    p.file.Name,
			URL:         p.url,
			Status:      string(p.result.Classification),
			Validation:  string(p.validation),
			Score:       p.result.Score,
			Description: p.result.Description,
			Reason:      p.result.Reason,
		}
		if p.captured.Found() {
			photo.CaptureDate = p.captured.String()
		}
		agg.Photos = append(agg.Photos, photo)
	}
	return agg, nil
}
