package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON extracts the JSON object from a model response that may be
// wrapped in markdown code fences or surrounded by prose.
func ExtractJSON(response string) (string, error) {
	cleaned := strings.TrimSpace(response)

	if start := strings.IndexByte(cleaned, '{'); start >= 0 {
		if jsonStr, ok := extractBalanced(cleaned[start:], '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	// Last resort: the entire response may already be valid JSON.
	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalanced returns the shortest prefix of s with balanced open/close
// delimiters, respecting strings and escapes.
func extractBalanced(s string, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Delimiters inside strings don't count.
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}

	return "", false
}
