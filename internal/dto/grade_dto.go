package dto

// GradeRequest carries one option index per stored question, in question
// order; -1 marks an unanswered question.
type GradeRequest struct {
	Answers []int `json:"answers"`
}

type QuestionResult struct {
	Index        int    `json:"index"`
	Chosen       int    `json:"chosen"`
	Correct      int    `json:"correct"`
	IsCorrect    bool   `json:"is_correct"`
	Explanation  string `json:"explanation"`
	EvidenceSpan string `json:"evidence_span"`
}

type GradeResponse struct {
	ID      uint             `json:"id"`
	Total   int              `json:"total"`
	Correct int              `json:"correct"`
	Score   float64          `json:"score"`
	Results []QuestionResult `json:"results"`
}
