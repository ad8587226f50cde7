package contentanalysis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// Classification is the per-photo verdict.
type Classification string

const (
	Authorized Classification = "Authorized"
	Rejected   Classification = "Rejected"
)

// BelowThresholdReason explains a Rejected classification.
const BelowThresholdReason = "The matching percentage is below the acceptable threshold."

// DefaultThreshold is the minimum score for an Authorized verdict.
const DefaultThreshold = 80

// ParseScore reads a matching percentage from a raw JSON value. It returns
// false when no leading integer in [0,100] can be read.
func ParseScore(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
	}
	return leadingInt(text)
}

func leadingInt(text string) (int, bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	end := 0
	if end < len(text) && (text[end] == '-' || text[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	value, err := strconv.Atoi(text[:end])
	if err != nil || value < 0 || value > 100 {
		return 0, false
	}
	return value, true
}

// Classify applies the threshold rule: Authorized iff a score is present and
// at least threshold.
func Classify(score *int, threshold int) (Classification, string) {
	if score != nil && *score >= threshold {
		return Authorized, ""
	}
	return Rejected, BelowThresholdReason
}
