package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidate_FencedBlock(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"a\": 1}\n```\nDone."
	assert.Equal(t, `{"a": 1}`, ExtractCandidate(raw))
}

func TestExtractCandidate_FenceWithoutLanguage(t *testing.T) {
	raw := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, ExtractCandidate(raw))
}

func TestExtractCandidate_BraceFallback(t *testing.T) {
	raw := `Sure! The answer is {"a": {"b": 2}} hope that helps.`
	assert.Equal(t, `{"a": {"b": 2}}`, ExtractCandidate(raw))
}

func TestExtractCandidate_NoObject(t *testing.T) {
	assert.Empty(t, ExtractCandidate("no json here"))
	assert.Empty(t, ExtractCandidate("} backwards {"))
}

func TestValidateResponse_Valid(t *testing.T) {
	raw := `{
		"is_current_phd": true,
		"current_employer": "Politecnico di Torino",
		"current_title": "PhD Candidate",
		"since_month": "2021-11",
		"evidence": "PhD Candidate | Politecnico di Torino | Nov 2021 - Present"
	}`

	rec, err := ValidateResponse(raw)
	require.NoError(t, err)
	require.NotNil(t, rec.IsCurrentPhD)
	assert.True(t, *rec.IsCurrentPhD)
	assert.Equal(t, "Politecnico di Torino", *rec.CurrentEmployer)
	assert.Equal(t, "2021-11", *rec.SinceMonth)
	assert.NotEmpty(t, rec.Evidence)
}

func TestValidateResponse_FencedValid(t *testing.T) {
	raw := "```json\n{\"is_current_phd\": false, \"current_employer\": null, " +
		"\"current_title\": null, \"since_month\": null, \"evidence\": \"no Present role\"}\n```"

	rec, err := ValidateResponse(raw)
	require.NoError(t, err)
	assert.False(t, *rec.IsCurrentPhD)
	assert.Nil(t, rec.CurrentEmployer)
}

func TestValidateResponse_NoJSON(t *testing.T) {
	_, err := ValidateResponse("I cannot answer that.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestValidateResponse_MalformedJSON(t *testing.T) {
	_, err := ValidateResponse(`{"is_current_phd": true,}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed JSON")
}

func TestValidateResponse_ExtraFieldsIgnored(t *testing.T) {
	raw := `{"is_current_phd": true, "current_employer": null, "current_title": null, ` +
		`"since_month": null, "evidence": "x", "confidence": 0.9, "reasoning": "..."}`

	rec, err := ValidateResponse(raw)
	require.NoError(t, err, "extra keys in an otherwise valid response must not fail validation")
	assert.True(t, *rec.IsCurrentPhD)
	assert.Equal(t, "x", rec.Evidence)
}

func TestValidateResponse_NullIsCurrentPhD(t *testing.T) {
	_, err := ValidateResponse(`{"is_current_phd": null, "evidence": "unclear"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is_current_phd")
}

func TestValidateResponse_MissingEvidence(t *testing.T) {
	_, err := ValidateResponse(`{"is_current_phd": true}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evidence")
}

func TestValidateResponse_BlankEvidence(t *testing.T) {
	_, err := ValidateResponse(`{"is_current_phd": true, "evidence": "   "}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evidence")
}
