package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/deepquiz/wikiquiz/internal/dto"
	"github.com/deepquiz/wikiquiz/internal/model"
	"github.com/deepquiz/wikiquiz/internal/quiz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuizService struct {
	record *model.Quiz
	err    error
}

func (s *stubQuizService) GetOrCreate(_ context.Context, _ string, _ bool, _, _ int) (*model.Quiz, error) {
	return s.record, s.err
}

func (s *stubQuizService) GetByID(_ context.Context, id uint) (*model.Quiz, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.record == nil || s.record.ID != id {
		return nil, apperr.New(apperr.KindNotFound, "quiz not found")
	}
	return s.record, nil
}

func (s *stubQuizService) History(_ context.Context, _, _ int) ([]model.Quiz, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.record == nil {
		return nil, 0, nil
	}
	return []model.Quiz{*s.record}, 1, nil
}

type stubGraderService struct {
	response *dto.GradeResponse
	err      error
}

func (s *stubGraderService) Grade(_ context.Context, _ uint, _ []int) (*dto.GradeResponse, error) {
	return s.response, s.err
}

func storedQuiz() *model.Quiz {
	return &model.Quiz{
		ID:            7,
		URL:           "https://en.wikipedia.org/wiki/Ada_Lovelace",
		URLKey:        "https://en.wikipedia.org/wiki/Ada_Lovelace",
		Title:         "Ada Lovelace",
		DateGenerated: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Payload: quiz.Payload{
			Title:   "Ada Lovelace",
			Summary: "An English mathematician.",
			KeyEntities: quiz.KeyEntities{
				People: []string{"Ada Lovelace"}, Organizations: []string{}, Locations: []string{},
			},
			Sections: []string{"Work"},
			Quiz: []quiz.Item{{
				Question:     "Who wrote the first published algorithm?",
				Options:      []string{"Ada Lovelace", "Charles Babbage", "Alan Turing", "George Boole"},
				Answer:       "Ada Lovelace",
				Difficulty:   quiz.DifficultyEasy,
				Explanation:  "Her notes contained the Bernoulli program.",
				EvidenceSpan: "Work",
			}},
			RelatedTopics: []string{},
		},
	}
}

func newTestRouter(quizSvc *stubQuizService, graderSvc *stubGraderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctrl := NewQuizController(quizSvc, graderSvc)
	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/health", ctrl.Health)
	api.POST("/quizzes", ctrl.GenerateQuiz)
	api.GET("/quizzes", ctrl.History)
	api.GET("/quizzes/:id", ctrl.GetQuiz)
	api.POST("/quizzes/:id/grade", ctrl.GradeQuiz)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateQuizReturns201(t *testing.T) {
	router := newTestRouter(&stubQuizService{record: storedQuiz()}, &stubGraderService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes",
		`{"url":"https://en.wikipedia.org/wiki/Ada_Lovelace"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.QuizResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 7, resp.ID)
	assert.Equal(t, "Ada Lovelace", resp.Title)
	require.Len(t, resp.Payload.Quiz, 1)
	assert.Len(t, resp.Payload.Quiz[0].Options, quiz.OptionCount)
}

func TestGenerateQuizMissingURLIs400(t *testing.T) {
	router := newTestRouter(&stubQuizService{record: storedQuiz()}, &stubGraderService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes", `{"force":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQuizErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.KindInvalidURL, http.StatusBadRequest},
		{apperr.KindFetchFailed, http.StatusBadGateway},
		{apperr.KindGenerationExhausted, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		router := newTestRouter(&stubQuizService{err: apperr.New(tc.kind, "boom")}, &stubGraderService{})
		w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes",
			`{"url":"https://en.wikipedia.org/wiki/Ada_Lovelace"}`)
		require.Equal(t, tc.status, w.Code, "kind %s", tc.kind)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(tc.kind), resp.Kind)
		assert.NotEmpty(t, resp.Message)
	}
}

func TestGetQuizByID(t *testing.T) {
	router := newTestRouter(&stubQuizService{record: storedQuiz()}, &stubGraderService{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/quizzes/7", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/quizzes/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/quizzes/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryOmitsPayload(t *testing.T) {
	router := newTestRouter(&stubQuizService{record: storedQuiz()}, &stubGraderService{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/quizzes?page=1&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Ada Lovelace", resp.Items[0].Title)
	assert.NotContains(t, w.Body.String(), "evidence_span")
}

func TestGradeQuizStatuses(t *testing.T) {
	grade := &dto.GradeResponse{ID: 7, Total: 1, Correct: 1, Score: 100,
		Results: []dto.QuestionResult{{Index: 0, Chosen: 0, Correct: 0, IsCorrect: true}}}
	router := newTestRouter(&stubQuizService{record: storedQuiz()}, &stubGraderService{response: grade})

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes/7/grade", `{"answers":[0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.GradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100.0, resp.Score)

	badRouter := newTestRouter(&stubQuizService{record: storedQuiz()},
		&stubGraderService{err: apperr.New(apperr.KindMalformedSubmission, "expected 1 answers, got 3")})
	w = doJSON(t, badRouter, http.MethodPost, "/api/v1/quizzes/7/grade", `{"answers":[0,1,2]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missingRouter := newTestRouter(&stubQuizService{record: storedQuiz()},
		&stubGraderService{err: apperr.New(apperr.KindNotFound, "quiz 99 not found")})
	w = doJSON(t, missingRouter, http.MethodPost, "/api/v1/quizzes/99/grade", `{"answers":[0]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/quizzes/7/grade", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubQuizService{}, &stubGraderService{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
