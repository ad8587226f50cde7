package docanalysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Facts are the structured claim details extracted from a document.
type Facts struct {
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	VehicleInfo  string    `json:"vehicle_info,omitempty"`
	Location     string    `json:"location,omitempty"`
	ClaimStatus  string    `json:"claim_status"`
	ClaimDate    time.Time `json:"claim_date"`
	RawClaimDate string    `json:"raw_claim_date"`
	Reason       string    `json:"reason"`
	ItemsCovered string    `json:"items_covered"`
	ClaimID      string    `json:"claim_id"`
}

// ClaimDay returns the claim date formatted as YYYY-MM-DD.
func (f Facts) ClaimDay() string {
	if f.ClaimDate.IsZero() {
		return ""
	}
	return f.ClaimDate.Format(time.DateOnly)
}

type oracleFacts struct {
	Name         looseString `json:"Name"`
	VehicleInfo  looseString `json:"Vehicle Info"`
	Location     looseString `json:"Location"`
	ClaimStatus  looseString `json:"Claim Status"`
	ClaimDate    looseString `json:"Claim Date"`
	Reason       looseString `json:"Reason"`
	ItemsCovered looseString `json:"Items Covered"`
	ClaimID      looseString `json:"Claim ID"`
}

// looseString accepts strings, numbers, booleans, and string lists; models are
// not consistent about scalar types.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
	case '[':
		var items []looseString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				parts = append(parts, string(item))
			}
		}
		*s = looseString(strings.Join(parts, ", "))
	case '{':
		return errors.New("object value not supported")
	default:
		*s = looseString(string(data))
	}
	return nil
}

// NormalizeClaimID removes every whitespace character from a claim identifier.
func NormalizeClaimID(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// ValidClaimID reports whether a normalized identifier can serve as the
// claim's evidence folder name.
func ValidClaimID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

var claimDateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006:01:02",
	"2006:01:02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// ParseClaimDate parses the claim date forms commonly returned by the oracle and
// returns the calendar day in UTC.
func ParseClaimDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimSuffix(value, ".")
	if value == "" {
		return time.Time{}, errors.New("claim date is empty")
	}
	for _, layout := range claimDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized claim date %s", strconv.Quote(value))
}
