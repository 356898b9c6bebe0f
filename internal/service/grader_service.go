package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/deepquiz/wikiquiz/internal/dto"
	"github.com/deepquiz/wikiquiz/internal/quiz"
)

// GraderService compares a submission against a stored quiz. Grading reads
// the record and nothing else; it writes no state.
type GraderService interface {
	Grade(ctx context.Context, id uint, answers []int) (*dto.GradeResponse, error)
}

type graderService struct {
	quizzes QuizService
}

func NewGraderService(quizzes QuizService) GraderService {
	return &graderService{quizzes: quizzes}
}

func (s *graderService) Grade(ctx context.Context, id uint, answers []int) (*dto.GradeResponse, error) {
	record, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	questions := record.Payload.Quiz
	if len(answers) != len(questions) {
		return nil, apperr.New(apperr.KindMalformedSubmission,
			fmt.Sprintf("expected %d answers, got %d", len(questions), len(answers)))
	}
	for i, a := range answers {
		if a < -1 || a >= len(questions[i].Options) {
			return nil, apperr.New(apperr.KindMalformedSubmission,
				fmt.Sprintf("answer %d is out of range: %d", i, a))
		}
	}

	results := make([]dto.QuestionResult, len(questions))
	correctTotal := 0
	for i := range questions {
		item := &questions[i]
		correctIdx := correctIndex(item)
		isCorrect := answers[i] != -1 && correctIdx != -1 && answers[i] == correctIdx
		if isCorrect {
			correctTotal++
		}
		results[i] = dto.QuestionResult{
			Index:        i,
			Chosen:       answers[i],
			Correct:      correctIdx,
			IsCorrect:    isCorrect,
			Explanation:  item.Explanation,
			EvidenceSpan: item.EvidenceSpan,
		}
	}

	total := len(questions)
	score := 0.0
	if total > 0 {
		score = math.Round(float64(correctTotal)/float64(total)*100.0*100) / 100
	}

	return &dto.GradeResponse{
		ID:      record.ID,
		Total:   total,
		Correct: correctTotal,
		Score:   score,
		Results: results,
	}, nil
}

// correctIndex recomputes the answer's position within the options at
// grading time rather than trusting anything from the client. Exact match
// first; a trimmed case-insensitive pass covers legacy records whose answer
// text drifted from its option.
func correctIndex(item *quiz.Item) int {
	for i, opt := range item.Options {
		if opt == item.Answer {
			return i
		}
	}
	norm := strings.ToLower(strings.TrimSpace(item.Answer))
	for i, opt := range item.Options {
		if strings.ToLower(strings.TrimSpace(opt)) == norm {
			return i
		}
	}
	return -1
}
