package etl

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractCandidate pulls the most plausible JSON object out of raw model
// output. It tries a fenced ```json block first, then falls back to the
// substring between the first '{' and the last '}'. An empty return means
// no candidate was found.
func ExtractCandidate(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// ValidateResponse parses and validates a raw model response against the
// PhD status schema. Invalid output is reported as an error, never a
// panic; callers record it and move on.
func ValidateResponse(raw string) (*model.PhDStatus, error) {
	candidate := ExtractCandidate(raw)
	if candidate == "" {
		return nil, eris.New("validate: no JSON object in response")
	}

	// Unknown keys are ignored: models pad their answers with extra fields
	// and that alone is not a reason to burn an attempt.
	var payload struct {
		IsCurrentPhD    *bool   `json:"is_current_phd"`
		CurrentEmployer *string `json:"current_employer"`
		CurrentTitle    *string `json:"current_title"`
		SinceMonth      *string `json:"since_month"`
		Evidence        *string `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, eris.Wrap(err, "validate: malformed JSON")
	}

	if payload.Evidence == nil || strings.TrimSpace(*payload.Evidence) == "" {
		return nil, eris.New("validate: evidence is required")
	}
	if payload.IsCurrentPhD == nil {
		return nil, eris.New("validate: is_current_phd must be true or false")
	}

	return &model.PhDStatus{
		IsCurrentPhD:    payload.IsCurrentPhD,
		CurrentEmployer: payload.CurrentEmployer,
		CurrentTitle:    payload.CurrentTitle,
		SinceMonth:      payload.SinceMonth,
		Evidence:        *payload.Evidence,
	}, nil
}
