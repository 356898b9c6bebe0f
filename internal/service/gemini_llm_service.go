package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepquiz/wikiquiz/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// GeminiLLMService is the transport to the generative model. It returns the
// raw response text; schema validation and repair live in the generator.
type GeminiLLMService interface {
	// Available reports whether a client was configured; when false, the
	// generator escalates to the fallback immediately.
	Available() bool
	GenerateQuizJSON(ctx context.Context, prompt string) (string, error)
}

type geminiLLMService struct {
	model *genai.GenerativeModel
	cfg   *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Quiz generation will use the rule-based fallback.")
		return &geminiLLMService{cfg: cfg}, nil
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Gemini.Model)
	model.SetTemperature(0.3)
	model.ResponseMIMEType = "application/json"
	return &geminiLLMService{model: model, cfg: cfg}, nil
}

func (s *geminiLLMService) Available() bool { return s.model != nil }

func (s *geminiLLMService) GenerateQuizJSON(ctx context.Context, prompt string) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during quiz generation")
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := stripCodeFences(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return text, nil
}

// stripCodeFences removes a surrounding markdown fence that some model
// revisions still emit despite the JSON response MIME type.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
