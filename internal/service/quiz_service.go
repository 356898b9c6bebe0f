package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/deepquiz/wikiquiz/config"
	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/deepquiz/wikiquiz/internal/model"
	"github.com/deepquiz/wikiquiz/internal/quiz"
	"github.com/deepquiz/wikiquiz/internal/repository"
	"github.com/deepquiz/wikiquiz/internal/urlnorm"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// QuizService owns the get-or-create contract over the quiz store:
// idempotent lookups by canonical URL, append-only forced regeneration, and
// at-most-one generation in flight per canonical URL within this process.
type QuizService interface {
	GetOrCreate(ctx context.Context, rawURL string, force bool, minQuestions, maxQuestions int) (*model.Quiz, error)
	GetByID(ctx context.Context, id uint) (*model.Quiz, error)
	History(ctx context.Context, page, pageSize int) ([]model.Quiz, int64, error)
}

type quizService struct {
	repo      repository.QuizRepository
	scraper   ArticleScraper
	generator QuizGeneratorService
	fallback  FallbackGeneratorService
	cfg       *config.Config
	flight    singleflight.Group
}

func NewQuizService(
	repo repository.QuizRepository,
	scraper ArticleScraper,
	generator QuizGeneratorService,
	fallback FallbackGeneratorService,
	cfg *config.Config,
) QuizService {
	return &quizService{
		repo:      repo,
		scraper:   scraper,
		generator: generator,
		fallback:  fallback,
		cfg:       cfg,
	}
}

func (s *quizService) GetOrCreate(ctx context.Context, rawURL string, force bool, minQuestions, maxQuestions int) (*model.Quiz, error) {
	urlKey, err := urlnorm.Canonical(rawURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidURL, "invalid article URL", err)
	}

	if minQuestions <= 0 {
		minQuestions = s.cfg.Generation.MinQuestionsDefault
	}
	if maxQuestions <= 0 {
		maxQuestions = s.cfg.Generation.MaxQuestionsDefault
	}
	if maxQuestions < minQuestions {
		return nil, apperr.New(apperr.KindInvalidURL,
			fmt.Sprintf("max_questions (%d) must be >= min_questions (%d)", maxQuestions, minQuestions))
	}

	if force {
		// Forced regeneration always appends a fresh record; prior history
		// for the URL is left untouched.
		return s.generateAndStore(ctx, rawURL, urlKey, minQuestions, maxQuestions)
	}

	if existing, err := s.findLatest(urlKey); err != nil {
		return nil, err
	} else if existing != nil {
		log.Info().Uint("id", existing.ID).Str("url_key", urlKey).Msg("Returning cached quiz")
		return existing, nil
	}

	// Collapse concurrent non-forced generations for the same canonical URL
	// into a single flight; losers share the winner's record.
	result, err, shared := s.flight.Do(urlKey, func() (any, error) {
		if existing, err := s.findLatest(urlKey); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
		return s.generateAndStore(ctx, rawURL, urlKey, minQuestions, maxQuestions)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Info().Str("url_key", urlKey).Msg("Concurrent generation collapsed into shared flight")
	}
	return result.(*model.Quiz), nil
}

func (s *quizService) findLatest(urlKey string) (*model.Quiz, error) {
	record, err := s.repo.FindLatestByURLKey(urlKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup by url key: %w", err)
	}
	return record, nil
}

func (s *quizService) generateAndStore(ctx context.Context, rawURL, urlKey string, minQuestions, maxQuestions int) (*model.Quiz, error) {
	article, err := s.scraper.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	payload, err := s.generatePayload(ctx, article, minQuestions, maxQuestions)
	if err != nil {
		return nil, err
	}

	record := &model.Quiz{
		URL:     rawURL,
		URLKey:  urlKey,
		Title:   payload.Title,
		Payload: *payload,
	}
	if err := s.repo.Create(record); err != nil {
		return nil, fmt.Errorf("persist quiz: %w", err)
	}
	log.Info().Uint("id", record.ID).Str("url", rawURL).Int("questions", len(payload.Quiz)).Msg("Quiz stored")
	return record, nil
}

// generatePayload bounds the whole LLM path (prompt plus repair) with the
// generation timeout; on escalation or timeout the offline fallback runs
// with no deadline since it performs no I/O.
func (s *quizService) generatePayload(ctx context.Context, article *Article, minQuestions, maxQuestions int) (*quiz.Payload, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.Generation.Timeout)
	defer cancel()

	payload, err := s.generator.Generate(genCtx, article, minQuestions, maxQuestions)
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, ErrEscalate) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	log.Info().Str("title", article.Title).Msg("Running rule-based fallback generator")
	return s.fallback.Generate(article, minQuestions, maxQuestions)
}

func (s *quizService) GetByID(ctx context.Context, id uint) (*model.Quiz, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("quiz %d not found", id))
		}
		return nil, fmt.Errorf("find quiz %d: %w", id, err)
	}
	return record, nil
}

func (s *quizService) History(ctx context.Context, page, pageSize int) ([]model.Quiz, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 50 {
		pageSize = 50
	}
	records, total, err := s.repo.List((page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}
	return records, total, nil
}
