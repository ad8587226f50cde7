package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"claimcheck/internal/services"
)

var (
	codeFencePattern  = regexp.MustCompile("```\\s*(?i:json)?")
	whitespacePattern = regexp.MustCompile(`\s{2,}`)
)

// DecodeJSON decodes an oracle reply into target. It tries a strict decode of
// the trimmed reply first and, when that fails, exactly one retry on the
// Normalize output. Only JSON objects are accepted on either pass.
func DecodeJSON(reply string, target any) error {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return services.Wrap(services.ErrMalformedOracleResponse, "oracle", "decode", "empty reply", nil)
	}

	if isObject(trimmed) {
		if err := json.Unmarshal([]byte(trimmed), target); err == nil {
			return nil
		}
	}

	normalized := Normalize(trimmed)
	if !isObject(normalized) {
		return services.Wrap(services.ErrMalformedOracleResponse, "oracle", "decode",
			"reply is not a JSON object: "+summarizePayloadSnippet(normalized), nil)
	}
	if err := json.Unmarshal([]byte(normalized), target); err != nil {
		return services.Wrap(services.ErrMalformedOracleResponse, "oracle", "decode",
			"normalized payload snippet: "+summarizePayloadSnippet(normalized), err)
	}
	return nil
}

func isObject(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// Normalize strips markdown code fence markers and escaped newline sequences,
// collapses runs of whitespace to a single space, and trims the result.
func Normalize(reply string) string {
	cleaned := codeFencePattern.ReplaceAllString(reply, "")
	cleaned = strings.ReplaceAll(cleaned, `\n`, "")
	cleaned = strings.ReplaceAll(cleaned, "`", "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
