package quiz

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() *Payload {
	return &Payload{
		Title:   "Alan Turing",
		Summary: "Alan Turing was a mathematician and computer scientist.",
		KeyEntities: KeyEntities{
			People:        []string{"Alan Turing"},
			Organizations: []string{"University of Cambridge"},
			Locations:     []string{"London"},
		},
		Sections: []string{"Early life", "Career"},
		Quiz: []Item{
			{
				Question:     "Where was Alan Turing born?",
				Options:      []string{"London", "Paris", "Berlin", "Madrid"},
				Answer:       "London",
				Difficulty:   DifficultyEasy,
				Explanation:  "The article states he was born in London.",
				EvidenceSpan: "Turing was born in Maida Vale, London.",
			},
			{
				Question:     "Which university did Turing attend?",
				Options:      []string{"Oxford", "Cambridge", "Harvard", "MIT"},
				Answer:       "Cambridge",
				Difficulty:   DifficultyMedium,
				Explanation:  "He studied at King's College, Cambridge.",
				EvidenceSpan: "He studied at King's College, Cambridge.",
			},
		},
		RelatedTopics: []string{"Computability theory"},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestValidate_IdentityOnValidPayload(t *testing.T) {
	want := validPayload()
	got, violations := Validate(mustJSON(t, want))
	require.Empty(t, violations)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestValidate_RejectsInvalidJSON(t *testing.T) {
	got, violations := Validate([]byte("not json {"))
	assert.Nil(t, got)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "valid JSON")
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	got, violations := Validate([]byte(`{"title": "x"}`))
	assert.Nil(t, got)
	assert.NotEmpty(t, violations)
}

func TestValidatePayload_RejectsWrongCaseDifficulty(t *testing.T) {
	p := validPayload()
	p.Quiz[0].Difficulty = "Easy"
	violations := ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Equal(t, "quiz[0].difficulty", violations[0].Field)
}

func TestValidatePayload_RejectsAnswerNotInOptions(t *testing.T) {
	p := validPayload()
	p.Quiz[1].Answer = "Princeton"
	violations := ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Equal(t, "quiz[1].answer", violations[0].Field)
}

func TestValidatePayload_AnswerMatchIsCaseSensitive(t *testing.T) {
	p := validPayload()
	p.Quiz[0].Answer = "london"
	violations := ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Equal(t, "quiz[0].answer", violations[0].Field)
}

func TestValidatePayload_RejectsDuplicateAndEmptyOptions(t *testing.T) {
	p := validPayload()
	p.Quiz[0].Options = []string{"London", "London", "", "Berlin"}
	violations := ValidatePayload(p)
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.Contains(t, fields, "quiz[0].options[1]")
	assert.Contains(t, fields, "quiz[0].options[2]")
}

func TestValidatePayload_RejectsWrongOptionCount(t *testing.T) {
	p := validPayload()
	p.Quiz[0].Options = []string{"London", "Paris", "Berlin"}
	violations := ValidatePayload(p)
	require.NotEmpty(t, violations)
	assert.Equal(t, "quiz[0].options", violations[0].Field)
}

func TestValidatePayload_RejectsEmptyEvidenceSpan(t *testing.T) {
	p := validPayload()
	p.Quiz[0].EvidenceSpan = "   "
	violations := ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Equal(t, "quiz[0].evidence_span", violations[0].Field)
}

func TestValidatePayload_AcceptsEvidenceSentinel(t *testing.T) {
	p := validPayload()
	p.Quiz[0].EvidenceSpan = EvidenceInsufficient
	assert.Empty(t, ValidatePayload(p))
}

func TestValidatePayload_ReportsAllViolationsInOnePass(t *testing.T) {
	p := validPayload()
	p.Quiz[0].Difficulty = "EASY"
	p.Quiz[0].EvidenceSpan = ""
	p.Quiz[1].Answer = "nope"
	violations := ValidatePayload(p)
	assert.Len(t, violations, 3)
}

func TestValidateCount(t *testing.T) {
	p := validPayload() // 2 questions
	assert.Empty(t, ValidateCount(p, 1, 5))
	assert.Empty(t, ValidateCount(p, 2, 2))
	assert.Len(t, ValidateCount(p, 3, 10), 1)
	assert.Len(t, ValidateCount(p, 1, 1), 1)
}

func TestPayload_ValueScanRoundTrip(t *testing.T) {
	want := validPayload()
	val, err := want.Value()
	require.NoError(t, err)

	var got Payload
	require.NoError(t, got.Scan(val))
	assert.Equal(t, *want, got)

	// Postgres may hand jsonb back as a string.
	var fromString Payload
	require.NoError(t, fromString.Scan(string(val.([]byte))))
	assert.Equal(t, *want, fromString)
}

func TestFormatViolations(t *testing.T) {
	out := FormatViolations([]Violation{
		{Field: "quiz[0].answer", Message: "bad"},
		{Field: "title", Message: "missing"},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- quiz[0].answer: bad", lines[0])
}
