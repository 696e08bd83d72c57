package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON parses text as a JSON object. Models frequently wrap the
// payload in prose, so on a parse failure the span between the first '{'
// and the last '}' is retried before giving up.
//
// Known limit: the span heuristic mis-extracts when the surrounding prose
// itself contains literal braces outside the real payload.
func ExtractJSON(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	span := text[start : end+1]
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return obj, nil
}
