package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Violation describes one way a candidate payload breaks the quiz contract.
// A validation run reports every violation in one pass so a single repair
// prompt can address all of them.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// FormatViolations renders violations one per line for repair prompts and logs.
func FormatViolations(vs []Violation) string {
	lines := make([]string, len(vs))
	for i, v := range vs {
		lines[i] = "- " + v.String()
	}
	return strings.Join(lines, "\n")
}

// payloadSchema is the structural half of the contract; cross-field rules
// (answer membership, option distinctness) are checked in ValidatePayload.
const payloadSchema = `{
  "type": "object",
  "required": ["title", "summary", "key_entities", "sections", "quiz", "related_topics"],
  "properties": {
    "title": {"type": "string"},
    "summary": {"type": "string"},
    "key_entities": {
      "type": "object",
      "required": ["people", "organizations", "locations"],
      "properties": {
        "people": {"type": "array", "items": {"type": "string"}},
        "organizations": {"type": "array", "items": {"type": "string"}},
        "locations": {"type": "array", "items": {"type": "string"}}
      }
    },
    "sections": {"type": "array", "items": {"type": "string"}},
    "quiz": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "options", "answer", "difficulty", "explanation", "evidence_span"],
        "properties": {
          "question": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}, "minItems": 4, "maxItems": 4},
          "answer": {"type": "string"},
          "difficulty": {"type": "string"},
          "explanation": {"type": "string"},
          "evidence_span": {"type": "string"}
        }
      }
    },
    "related_topics": {"type": "array", "items": {"type": "string"}},
    "notes": {"type": ["string", "null"]}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaPrinter  = message.NewPrinter(language.English)
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payloadSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse payload schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("quiz_payload.json", doc); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("quiz_payload.json")
	})
	return compiledSchema, schemaErr
}

// Validate checks raw JSON against the full payload contract and returns the
// decoded payload when, and only when, no violations were found. Pure.
func Validate(raw []byte) (*Payload, []Violation) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, []Violation{{Field: "(root)", Message: fmt.Sprintf("response is not valid JSON: %v", err)}}
	}

	var violations []Violation

	sch, err := compiled()
	if err != nil {
		return nil, []Violation{{Field: "(root)", Message: err.Error()}}
	}
	if err := sch.Validate(inst); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			violations = append(violations, flattenSchemaError(ve)...)
		} else {
			violations = append(violations, Violation{Field: "(root)", Message: err.Error()})
		}
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		if len(violations) == 0 {
			violations = append(violations, Violation{Field: "(root)", Message: fmt.Sprintf("cannot decode payload: %v", err)})
		}
		return nil, violations
	}

	violations = append(violations, ValidatePayload(&payload)...)
	if len(violations) > 0 {
		return nil, violations
	}
	return &payload, nil
}

// ValidatePayload runs the semantic checks over an already-decoded payload.
// Valid payloads come back with an empty violation list, unchanged.
func ValidatePayload(p *Payload) []Violation {
	var violations []Violation
	if strings.TrimSpace(p.Title) == "" {
		violations = append(violations, Violation{Field: "title", Message: "must be non-empty"})
	}
	if strings.TrimSpace(p.Summary) == "" {
		violations = append(violations, Violation{Field: "summary", Message: "must be non-empty"})
	}
	for i := range p.Quiz {
		violations = append(violations, ValidateItem(&p.Quiz[i], fmt.Sprintf("quiz[%d]", i))...)
	}
	return violations
}

// ValidateItem checks one quiz item; field names in the returned violations
// are prefixed with prefix (e.g. "quiz[3]").
func ValidateItem(item *Item, prefix string) []Violation {
	var violations []Violation
	field := func(name string) string { return prefix + "." + name }

	if strings.TrimSpace(item.Question) == "" {
		violations = append(violations, Violation{Field: field("question"), Message: "must be non-empty"})
	}
	if len(item.Options) != OptionCount {
		violations = append(violations, Violation{
			Field:   field("options"),
			Message: fmt.Sprintf("must contain exactly %d options, got %d", OptionCount, len(item.Options)),
		})
	}
	seen := make(map[string]bool, len(item.Options))
	for j, opt := range item.Options {
		if strings.TrimSpace(opt) == "" {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("%s[%d]", field("options"), j),
				Message: "option must be non-empty",
			})
			continue
		}
		if seen[opt] {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("%s[%d]", field("options"), j),
				Message: fmt.Sprintf("duplicate option %q; all options must be distinct", opt),
			})
		}
		seen[opt] = true
	}
	if !seen[item.Answer] {
		violations = append(violations, Violation{
			Field:   field("answer"),
			Message: fmt.Sprintf("answer %q must exactly match one of the options", item.Answer),
		})
	}
	switch item.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		violations = append(violations, Violation{
			Field:   field("difficulty"),
			Message: fmt.Sprintf("must be exactly one of \"easy\", \"medium\", \"hard\"; got %q", string(item.Difficulty)),
		})
	}
	if strings.TrimSpace(item.EvidenceSpan) == "" {
		violations = append(violations, Violation{
			Field:   field("evidence_span"),
			Message: fmt.Sprintf("must be non-empty; use the sentinel %q when the article lacks support", EvidenceInsufficient),
		})
	}
	return violations
}

// ValidateCount enforces the requested question-count bounds; a payload
// outside them counts as a validation failure, not a partial success.
func ValidateCount(p *Payload, minQuestions, maxQuestions int) []Violation {
	n := len(p.Quiz)
	if n < minQuestions || n > maxQuestions {
		return []Violation{{
			Field:   "quiz",
			Message: fmt.Sprintf("must contain between %d and %d questions, got %d", minQuestions, maxQuestions, n),
		}}
	}
	return nil
}

func flattenSchemaError(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		field := "(root)"
		if len(ve.InstanceLocation) > 0 {
			field = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return []Violation{{Field: field, Message: ve.ErrorKind.LocalizedString(schemaPrinter)}}
	}
	var out []Violation
	for _, cause := range ve.Causes {
		out = append(out, flattenSchemaError(cause)...)
	}
	return out
}
