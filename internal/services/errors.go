package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction              = errors.New("document extraction error")
	ErrUnrecognizedDocument    = errors.New("unrecognized document type")
	ErrMalformedOracleResponse = errors.New("malformed oracle response")
	ErrOracleCall              = errors.New("oracle call error")
	ErrTransaction             = errors.New("transaction error")
	ErrUpload                  = errors.New("evidence upload error")
	ErrValidation              = errors.New("validation error")
	ErrConfiguration           = errors.New("configuration error")
	ErrNotFound                = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps an error to the short label used in logs and run events.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrUnrecognizedDocument):
		return "unrecognized_document"
	case errors.Is(err, ErrMalformedOracleResponse):
		return "malformed_oracle_response"
	case errors.Is(err, ErrOracleCall):
		return "oracle_call"
	case errors.Is(err, ErrTransaction):
		return "transaction"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// ErrorHint returns an operator-facing hint for the supplied failure.
func ErrorHint(err error) string {
	switch FailureKind(err) {
	case "extraction":
		return "verify the uploaded document is a readable PDF or scan"
	case "unrecognized_document":
		return "document must contain a claimant, dealer, or service center information section"
	case "malformed_oracle_response":
		return "inspect the oracle reply; the model did not return a JSON object"
	case "oracle_call":
		return "check oracle.url, oracle.access_key, and oracle availability"
	case "transaction":
		return "check database connectivity and whether the claim id already exists"
	case "upload":
		return "check storage credentials and bucket configuration"
	case "configuration":
		return "review the claimcheck config file"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
