package contentanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"claimcheck/internal/logging"
	"claimcheck/internal/services/oracle"
)

// Completer submits a prompt to the oracle and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, parts ...oracle.Part) (string, error)
}

// Sibling describes another photograph submitted in the same run.
type Sibling struct {
	FileName    string
	CaptureDate string
	Validation  string
}

// Request is one photograph to analyze.
type Request struct {
	FileName    string
	Image       []byte
	CoveredItem string
	Batch       []Sibling
}

// Result is the verdict for one photograph.
type Result struct {
	ObjectName     string
	Relevance      string
	Description    string
	Score          *int
	Classification Classification
	Reason         string
}

type oracleVerdict struct {
	ObjectName               string          `json:"ObjectName"`
	Relevance                string          `json:"Relevance"`
	AnalyzedImageDescription string          `json:"AnalyzedImageDescription"`
	MatchingPercentage       json.RawMessage `json:"MatchingPercentage"`
}

// Analyzer scores photographs against the covered item.
type Analyzer struct {
	oracle    Completer
	threshold int
	logger    *slog.Logger
}

// New constructs an Analyzer. A non-positive threshold uses DefaultThreshold.
func New(client Completer, threshold int, logger *slog.Logger) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Analyzer{
		oracle:    client,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "contentanalysis"),
	}
}

// Threshold returns the minimum Authorized score.
func (a *Analyzer) Threshold() int {
	return a.threshold
}

// Analyze sends the photograph to the oracle and classifies the reply. Errors
// are services.ErrOracleCall or services.ErrMalformedOracleResponse and apply to
// this photograph only.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	mimeType := http.DetectContentType(req.Image)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	reply, err := a.oracle.Complete(ctx,
		oracle.ImagePart(mimeType, req.Image),
		oracle.TextPart(buildPrompt(req)),
	)
	if err != nil {
		return Result{}, err
	}
	var verdict oracleVerdict
	if err := oracle.DecodeJSON(reply, &verdict); err != nil {
		return Result{}, err
	}

	result := Result{
		ObjectName:  strings.TrimSpace(verdict.ObjectName),
		Description: strings.TrimSpace(verdict.AnalyzedImageDescription),
	}
	if score, ok := ParseScore(verdict.MatchingPercentage); ok {
		result.Score = &score
	}
	result.Classification, result.Reason = Classify(result.Score, a.threshold)
	result.Relevance = strings.TrimSpace(verdict.Relevance)
	if result.Relevance == "" {
		result.Relevance = "Irrelevant"
		if result.Classification == Authorized {
			result.Relevance = "Relevant"
		}
	}

	attrs := []logging.Attr{
		logging.String("file", req.FileName),
		logging.String("classification", string(result.Classification)),
		logging.String("object", result.ObjectName),
	}
	if result.Score != nil {
		attrs = append(attrs, logging.Int("score", *result.Score))
	}
	logging.WithContext(ctx, a.logger).Debug("photo analyzed", logging.Args(attrs...)...)
	return result, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze the image and tell me what object it contains. I will also give you an object name to check for a match. ")
	b.WriteString("Respond with a single JSON object with these keys:\n")
	b.WriteString(`"ObjectName": "Expected object name",` + "\n")
	b.WriteString(`"Relevance": "Relevant or Irrelevant to the claim",` + "\n")
	b.WriteString(`"AnalyzedImageDescription": "A brief description of what the image contains",` + "\n")
	b.WriteString(`"MatchingPercentage": "Matching percentage as a number without the % symbol"` + "\n")
	fmt.Fprintf(&b, "The object name to check is %s.\n", strings.TrimSpace(req.CoveredItem))
	if len(req.Batch) > 0 {
		b.WriteString("Other photographs submitted with this claim, for context only:\n")
		for _, s := range req.Batch {
			if s.FileName == req.FileName {
				continue
			}
			fmt.Fprintf(&b, "- %s (captured %s, %s)\n", s.FileName, s.CaptureDate, s.Validation)
		}
	}
	return b.String()
}
