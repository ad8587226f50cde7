// Package recency decides whether a photograph's capture date is recent enough
// relative to the claim's reported date.
package recency

import (
	"time"

	"claimcheck/internal/capture"
)

// DefaultWindowDays is the length of the recency window ending at the reported date.
const DefaultWindowDays = 30

// Outcome is the per-photo validation result.
type Outcome string

const (
	Valid           Outcome = "Valid"
	StaleCapture    Outcome = "StaleCapture"
	MetadataMissing Outcome = "MetadataMissing"
)

// Message returns the adjuster-facing text for an outcome.
func (o Outcome) Message() string {
	switch o {
	case Valid:
		return "Valid Evidence"
	case StaleCapture:
		return "Please upload images that are taken recently"
	default:
		return "Capture date not found in image metadata"
	}
}

// Validator checks capture dates against an inclusive window of WindowDays
// calendar days ending at the reported date.
type Validator struct {
	WindowDays int
}

// NewValidator returns a validator for the given window; non-positive values
// fall back to DefaultWindowDays.
func NewValidator(windowDays int) Validator {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return Validator{WindowDays: windowDays}
}

// Validate returns Valid iff reported-window <= captured <= reported, comparing
// calendar days. Both ends are inclusive.
func (v Validator) Validate(captured capture.Date, reported time.Time) Outcome {
	if !captured.Found() {
		return MetadataMissing
	}
	window := v.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}
	end := capture.On(reported).Time()
	start := end.AddDate(0, 0, -window)
	day := captured.Time()
	if day.Before(start) || day.After(end) {
		return StaleCapture
	}
	return Valid
}
