// Package quiz holds the generated quiz document types shared by the
// validator, both generators, and the grader.
package quiz

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Difficulty is constrained to the three lowercase tokens; any other casing
// or value is a validation violation, not a coercible variant.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// EvidenceInsufficient is the fixed sentinel an item carries when no
// supporting text exists in the source article.
const EvidenceInsufficient = "insufficient evidence in article"

// OptionCount is the exact number of options every item must carry.
const OptionCount = 4

type KeyEntities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

type Item struct {
	Question     string     `json:"question"`
	Options      []string   `json:"options"`
	Answer       string     `json:"answer"`
	Difficulty   Difficulty `json:"difficulty"`
	Explanation  string     `json:"explanation"`
	EvidenceSpan string     `json:"evidence_span"`
}

// Payload is the canonical generated-content unit. Quiz order is the
// presentation and grading order; it never changes after creation.
type Payload struct {
	Title         string      `json:"title"`
	Summary       string      `json:"summary"`
	KeyEntities   KeyEntities `json:"key_entities"`
	Sections      []string    `json:"sections"`
	Quiz          []Item      `json:"quiz"`
	RelatedTopics []string    `json:"related_topics"`
	Notes         *string     `json:"notes,omitempty"`
}

// Value serializes the payload for the jsonb column.
func (p Payload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan restores the payload from the jsonb column.
func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = Payload{}
		return nil
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}
}
