package docanalysis

import (
	"context"
	"fmt"
	"log/slog"

	"claimcheck/internal/logging"
	"claimcheck/internal/services"
	"claimcheck/internal/services/oracle"
)

// TextExtractor reads the text layer of a document.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Completer submits a prompt to the oracle and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, parts ...oracle.Part) (string, error)
}

// Analyzer extracts claim facts from a document.
type Analyzer struct {
	extractor TextExtractor
	oracle    Completer
	logger    *slog.Logger
}

// New constructs an Analyzer.
func New(extractor TextExtractor, client Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		oracle:    client,
		logger:    logging.NewComponentLogger(logger, "docanalysis"),
	}
}

// Analyze runs text extraction, role detection, and oracle extraction. Errors
// carry one of services.ErrExtraction, services.ErrUnrecognizedDocument,
// services.ErrOracleCall, or services.ErrMalformedOracleResponse.
func (a *Analyzer) Analyze(ctx context.Context, document []byte) (Facts, error) {
	logger := logging.WithContext(ctx, a.logger)

	text, err := a.extractor.Extract(ctx, document)
	if err != nil {
		return Facts{}, err
	}
	role, ok := DetectRole(text)
	if !ok {
		return Facts{}, services.Wrap(services.ErrUnrecognizedDocument, "docanalysis", "detect role",
			"no claimant, dealer, or service center section", nil)
	}
	logger.Debug("document role detected",
		logging.String("role", string(role)),
		logging.Int("text_length", len(text)),
	)

	reply, err := a.oracle.Complete(ctx, oracle.TextPart(buildPrompt(role, text)))
	if err != nil {
		return Facts{}, err
	}
	var raw oracleFacts
	if err := oracle.DecodeJSON(reply, &raw); err != nil {
		return Facts{}, err
	}
	facts, err := toFacts(role, raw)
	if err != nil {
		return Facts{}, err
	}
	logger.Info("document analyzed",
		logging.String(logging.FieldEventType, "document_analyzed"),
		logging.String("role", string(role)),
		logging.String(logging.FieldClaimID, facts.ClaimID),
		logging.String("claim_date", facts.ClaimDay()),
		logging.String("claim_status", facts.ClaimStatus),
	)
	return facts, nil
}

func toFacts(role Role, raw oracleFacts) (Facts, error) {
	facts := Facts{
		Role:         role,
		Name:         string(raw.Name),
		VehicleInfo:  string(raw.VehicleInfo),
		Location:     string(raw.Location),
		ClaimStatus:  string(raw.ClaimStatus),
		RawClaimDate: string(raw.ClaimDate),
		Reason:       string(raw.Reason),
		ItemsCovered: string(raw.ItemsCovered),
		ClaimID:      NormalizeClaimID(string(raw.ClaimID)),
	}
	if facts.ClaimID == "" {
		return Facts{}, services.Wrap(services.ErrMalformedOracleResponse, "docanalysis", "decode facts", "claim id missing", nil)
	}
	if !ValidClaimID(facts.ClaimID) {
		return Facts{}, services.Wrap(services.ErrMalformedOracleResponse, "docanalysis", "decode facts",
			fmt.Sprintf("claim id %q cannot name an evidence folder", facts.ClaimID), nil)
	}
	day, err := ParseClaimDate(facts.RawClaimDate)
	if err != nil {
		return Facts{}, services.Wrap(services.ErrMalformedOracleResponse, "docanalysis", "decode facts", "", err)
	}
	facts.ClaimDate = day
	return facts, nil
}
