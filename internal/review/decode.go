package review

import (
	"encoding/json"
	"errors"
	"fmt"

	"scriptreview/internal/finding"
	"scriptreview/internal/llmjson"
)

var (
	// ErrAllAnalyzersFailed is returned by Legal when no analyzer produced
	// a usable finding list.
	ErrAllAnalyzersFailed = errors.New("review: all legal analyzers failed")
	// ErrNoFindings is returned when a response is valid JSON but carries
	// no recognisable finding list.
	ErrNoFindings = errors.New("review: response has no finding list")
)

// findingKeys are the object keys analyzers use for their finding list.
var findingKeys = []string{"findings", "flags", "issues", "risks"}

// decodeFindings accepts a bare array or an object wrapping one under a
// known key. An empty array is a valid "no issues" answer.
func decodeFindings(text string) ([]finding.Raw, error) {
	raw, err := llmjson.Extract(text)
	if err != nil {
		return nil, err
	}
	return findingsFromJSON(raw)
}

func findingsFromJSON(raw json.RawMessage) ([]finding.Raw, error) {
	var list []finding.Raw
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	for _, key := range findingKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		return list, nil
	}
	return nil, ErrNoFindings
}
