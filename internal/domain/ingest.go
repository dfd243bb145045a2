package domain

import "strings"

// AnalyzedQuestion is one classified question produced by the analysis layer.
type AnalyzedQuestion struct {
	Content string  `json:"content" yaml:"content"`
	TypeID  int64   `json:"type_id" yaml:"type_id"`
	TagIDs  []int64 `json:"tag_ids" yaml:"tag_ids"`
}

// AnalysisResult is the payload handed to ingestion.
type AnalysisResult struct {
	Questions []AnalyzedQuestion `json:"questions" yaml:"questions"`
}

// IngestRequest persists one analysed exam.
type IngestRequest struct {
	ExamName    string         `json:"exam_name"`
	Description string         `json:"description"`
	Analysis    AnalysisResult `json:"analysis"`
}

// Validate checks the parts of the request that need no catalog lookup.
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.ExamName) == "" {
		return Invalid("exam name must not be empty")
	}
	if r.Analysis.Questions == nil {
		return Invalid("analysis has no questions list")
	}
	for i, q := range r.Analysis.Questions {
		if strings.TrimSpace(q.Content) == "" {
			return Invalid("question %d has empty content", i+1)
		}
	}
	return nil
}

// SavedQuestion describes one question written by ingestion.
type SavedQuestion struct {
	ID      int64   `json:"id"`
	Content string  `json:"content"`
	TypeID  int64   `json:"type_id"`
	TagIDs  []int64 `json:"tag_ids"`
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	ExamID         int64           `json:"exam_id"`
	Questions      []SavedQuestion `json:"questions"`
	TotalQuestions int             `json:"total_questions"`
}
