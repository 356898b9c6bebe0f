package controller

import (
	"net/http"
	"strconv"

	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/deepquiz/wikiquiz/internal/dto"
	"github.com/deepquiz/wikiquiz/internal/model"
	"github.com/deepquiz/wikiquiz/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

type QuizController struct {
	quizService   service.QuizService
	graderService service.GraderService
}

func NewQuizController(quizService service.QuizService, graderService service.GraderService) *QuizController {
	return &QuizController{
		quizService:   quizService,
		graderService: graderService,
	}
}

// GenerateQuiz godoc
// @Summary Generate a quiz from an article URL
// @Description Scrapes the article, generates a quiz (LLM with rule-based fallback), and persists it. Repeated non-forced requests for the same canonical URL return the cached record.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param request body dto.GenerateQuizRequest true "Article URL, force flag, optional question-count bounds"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid URL or request body"
// @Failure 502 {object} dto.ErrorResponse "Article could not be fetched"
// @Failure 503 {object} dto.ErrorResponse "Generation exhausted"
// @Router /quizzes [post]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	var req dto.GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	log.Info().Str("url", req.URL).Bool("force", req.Force).Msg("Quiz generation requested")

	record, err := c.quizService.GetOrCreate(ctx.Request.Context(), req.URL, req.Force, req.MinQuestions, req.MaxQuestions)
	if err != nil {
		respondError(ctx, err, "Failed to generate quiz")
		return
	}
	ctx.JSON(http.StatusCreated, toQuizResponse(record))
}

// GetQuiz godoc
// @Summary Get a stored quiz by id
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	record, err := c.quizService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, "Failed to load quiz")
		return
	}
	ctx.JSON(http.StatusOK, toQuizResponse(record))
}

// History godoc
// @Summary List generated quizzes
// @Description Pages over all stored quizzes, newest first. page_size is clamped to 50.
// @Tags quizzes
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 50)"
// @Success 200 {object} dto.HistoryResponse
// @Router /quizzes [get]
func (c *QuizController) History(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "10"))

	records, total, err := c.quizService.History(ctx.Request.Context(), page, pageSize)
	if err != nil {
		respondError(ctx, err, "Failed to list quizzes")
		return
	}

	items := make([]dto.QuizSummaryDTO, len(records))
	for i := range records {
		if err := copier.Copy(&items[i], &records[i]); err != nil {
			log.Error().Err(err).Uint("id", records[i].ID).Msg("Failed to map quiz summary")
		}
	}
	ctx.JSON(http.StatusOK, dto.HistoryResponse{Items: items, Total: total})
}

// GradeQuiz godoc
// @Summary Grade a quiz submission
// @Description Compares submitted option indices (one per question, -1 for unanswered) against the stored quiz.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param submission body dto.GradeRequest true "Chosen option index per question"
// @Success 200 {object} dto.GradeResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed submission"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{id}/grade [post]
func (c *QuizController) GradeQuiz(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req dto.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Kind:    string(apperr.KindMalformedSubmission),
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	result, err := c.graderService.Grade(ctx.Request.Context(), id, req.Answers)
	if err != nil {
		respondError(ctx, err, "Failed to grade submission")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (c *QuizController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid quiz ID format"})
		return 0, false
	}
	return uint(id), true
}

func respondError(ctx *gin.Context, err error, fallbackMsg string) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallbackMsg)
		ctx.JSON(status, dto.ErrorResponse{Message: fallbackMsg})
		return
	}
	kind, _ := apperr.KindOf(err)
	log.Warn().Err(err).Str("kind", string(kind)).Msg(fallbackMsg)
	ctx.JSON(status, dto.ErrorResponse{Kind: string(kind), Message: apperr.MessageOf(err)})
}

func toQuizResponse(record *model.Quiz) dto.QuizResponse {
	var resp dto.QuizResponse
	if err := copier.Copy(&resp, record); err != nil {
		log.Error().Err(err).Uint("id", record.ID).Msg("Failed to map quiz response")
	}
	resp.Payload = record.Payload
	return resp
}
