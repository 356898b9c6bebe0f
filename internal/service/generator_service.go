package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deepquiz/wikiquiz/config"
	"github.com/deepquiz/wikiquiz/internal/quiz"
	"github.com/rs/zerolog/log"
)

// ErrEscalate signals that the LLM path is done trying (transport failure,
// or validation still failing after the single repair attempt) and the
// caller should run the rule-based fallback instead.
var ErrEscalate = errors.New("escalate to fallback generator")

// QuizGeneratorService drives one generation request through the LLM:
// compose, invoke, validate, at most one repair, final validate. It either
// returns a schema-valid payload within the question-count bounds or
// ErrEscalate; never an unchecked payload.
type QuizGeneratorService interface {
	Generate(ctx context.Context, article *Article, minQuestions, maxQuestions int) (*quiz.Payload, error)
}

type quizGeneratorService struct {
	llm GeminiLLMService
	cfg *config.Config
}

func NewQuizGeneratorService(llm GeminiLLMService, cfg *config.Config) QuizGeneratorService {
	return &quizGeneratorService{llm: llm, cfg: cfg}
}

const systemRules = `You are an expert quiz writer with rigorous attention to textual accuracy.

Rules:
- Use ONLY facts present in the provided Article Text.
- If information is missing, use the exact string "insufficient evidence in article".
- Return valid JSON only that satisfies the schema below (no prose).
- difficulty must be exactly one of: "easy", "medium", "hard" (lowercase).
- Every question's four options must be distinct and the answer must equal one of them exactly.
- Include an evidence_span for every question (short quote or section title).
- If the article is ambiguous, set a short root-level notes string.

JSON schema (must match exactly):
{
  "title": "string",
  "summary": "string",
  "key_entities": {
    "people": ["string"],
    "organizations": ["string"],
    "locations": ["string"]
  },
  "sections": ["string"],
  "quiz": [
    {
      "question": "string",
      "options": ["string", "string", "string", "string"],
      "answer": "string",
      "difficulty": "easy|medium|hard",
      "explanation": "string",
      "evidence_span": "string"
    }
  ],
  "related_topics": ["string"],
  "notes": "string|null"
}`

func (s *quizGeneratorService) Generate(ctx context.Context, article *Article, minQuestions, maxQuestions int) (*quiz.Payload, error) {
	if !s.llm.Available() {
		log.Info().Msg("LLM unavailable, escalating to fallback generator")
		return nil, ErrEscalate
	}

	raw, err := s.llm.GenerateQuizJSON(ctx, s.buildPrompt(article, minQuestions, maxQuestions))
	if err != nil {
		log.Warn().Err(err).Msg("LLM invocation failed, escalating to fallback generator")
		return nil, ErrEscalate
	}

	payload, violations := s.parseAndValidate(raw, minQuestions, maxQuestions)
	if len(violations) == 0 {
		return payload, nil
	}
	log.Warn().
		Int("violations", len(violations)).
		Str("first", violations[0].String()).
		Msg("LLM output failed validation, issuing single repair attempt")

	// Exactly one repair; a second attempt against a paid model is never made.
	raw, err = s.llm.GenerateQuizJSON(ctx, s.buildRepairPrompt(article, minQuestions, maxQuestions, violations))
	if err != nil {
		log.Warn().Err(err).Msg("Repair invocation failed, escalating to fallback generator")
		return nil, ErrEscalate
	}

	payload, violations = s.parseAndValidate(raw, minQuestions, maxQuestions)
	if len(violations) == 0 {
		return payload, nil
	}
	log.Warn().
		Int("violations", len(violations)).
		Msg("Repaired output still invalid, escalating to fallback generator")
	return nil, ErrEscalate
}

func (s *quizGeneratorService) buildPrompt(article *Article, minQuestions, maxQuestions int) string {
	var sb strings.Builder
	sb.WriteString(systemRules)
	sb.WriteString("\n\n")
	writeArticleContext(&sb, article, minQuestions, maxQuestions)
	sb.WriteString("Respond with JSON only.")
	return sb.String()
}

func (s *quizGeneratorService) buildRepairPrompt(article *Article, minQuestions, maxQuestions int, violations []quiz.Violation) string {
	var sb strings.Builder
	sb.WriteString(systemRules)
	sb.WriteString("\n\nIMPORTANT: Your previous JSON did not match the schema. Correct exactly the violations listed below while preserving everything else.\n\n")
	sb.WriteString("VALIDATION_ERRORS:\n")
	sb.WriteString(quiz.FormatViolations(violations))
	sb.WriteString("\n\nRe-output a SINGLE JSON object that exactly matches the schema.\n")
	writeArticleContext(&sb, article, minQuestions, maxQuestions)
	sb.WriteString("Respond with JSON only.")
	return sb.String()
}

func writeArticleContext(sb *strings.Builder, article *Article, minQuestions, maxQuestions int) {
	fmt.Fprintf(sb, "Title: %s\n", article.Title)
	fmt.Fprintf(sb, "Sections: %s\n", strings.Join(article.Sections, "; "))
	fmt.Fprintf(sb, "MinQuestions: %d\n", minQuestions)
	fmt.Fprintf(sb, "MaxQuestions: %d\n", maxQuestions)
	fmt.Fprintf(sb, "Article Text:\n%s\n", article.Text)
}

func (s *quizGeneratorService) parseAndValidate(raw string, minQuestions, maxQuestions int) (*quiz.Payload, []quiz.Violation) {
	payload, violations := quiz.Validate(normalizeRawPayload(raw))
	if payload != nil {
		violations = append(violations, quiz.ValidateCount(payload, minQuestions, maxQuestions)...)
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return payload, nil
}

// normalizeRawPayload applies tolerant shape guardrails before validation:
// folds a flat key_entities object into people[] and fills missing arrays.
// Semantic problems (difficulty casing, answer membership) are left for the
// validator to report so the repair prompt can enumerate them.
func normalizeRawPayload(raw string) []byte {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return []byte(raw)
	}

	ke, _ := obj["key_entities"].(map[string]any)
	if ke == nil {
		obj["key_entities"] = map[string]any{"people": []any{}, "organizations": []any{}, "locations": []any{}}
	} else if _, hasPeople := ke["people"]; !hasPeople {
		names := make([]any, 0, len(ke))
		for name := range ke {
			names = append(names, name)
		}
		obj["key_entities"] = map[string]any{"people": names, "organizations": []any{}, "locations": []any{}}
	}

	if _, ok := obj["sections"]; !ok {
		obj["sections"] = []any{}
	}
	if _, ok := obj["related_topics"]; !ok {
		obj["related_topics"] = []any{}
	}

	normalized, err := json.Marshal(obj)
	if err != nil {
		return []byte(raw)
	}
	return normalized
}
