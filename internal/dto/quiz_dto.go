package dto

import (
	"time"

	"github.com/deepquiz/wikiquiz/internal/quiz"
)

// GenerateQuizRequest asks for a quiz built from an article URL. Zero
// question bounds fall back to the configured defaults.
type GenerateQuizRequest struct {
	URL          string `json:"url" binding:"required"`
	Force        bool   `json:"force"`
	MinQuestions int    `json:"min_questions" binding:"omitempty,min=1"`
	MaxQuestions int    `json:"max_questions" binding:"omitempty,min=1,max=20"`
}

// QuizResponse is the full stored record.
type QuizResponse struct {
	ID            uint         `json:"id"`
	URL           string       `json:"url"`
	Title         string       `json:"title"`
	DateGenerated time.Time    `json:"date_generated"`
	Payload       quiz.Payload `json:"payload"`
}

// QuizSummaryDTO is the listing shape; the payload is omitted.
type QuizSummaryDTO struct {
	ID            uint      `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	DateGenerated time.Time `json:"date_generated"`
}

type HistoryResponse struct {
	Items []QuizSummaryDTO `json:"items"`
	Total int64            `json:"total"`
}

type ErrorResponse struct {
	Kind    string   `json:"kind,omitempty"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
