package domain

import "strings"

// MatchMode selects how search criteria combine.
type MatchMode string

const (
	// MatchAny selects questions satisfying at least one criterion.
	MatchAny MatchMode = "any"
	// MatchAll selects questions satisfying every supplied criterion.
	MatchAll MatchMode = "all"
)

// SearchCriteria filters questions. Zero-valued fields are not supplied.
// An ExamName made only of whitespace is supplied and matches every exam.
type SearchCriteria struct {
	ExamName string    `json:"exam_name,omitempty"`
	TypeID   *int64    `json:"type_id,omitempty"`
	TagIDs   []int64   `json:"tag_ids,omitempty"`
	Mode     MatchMode `json:"mode,omitempty"`
}

// Empty reports whether no criterion is supplied.
func (c SearchCriteria) Empty() bool {
	return c.ExamName == "" && c.TypeFilter() == nil && len(c.TagIDs) == 0
}

// TypeFilter returns the type id to filter on. A zero id is not a filter.
func (c SearchCriteria) TypeFilter() *int64 {
	if c.TypeID == nil || *c.TypeID == 0 {
		return nil
	}
	return c.TypeID
}

// Validate rejects unknown match modes.
func (c SearchCriteria) Validate() error {
	switch c.Mode {
	case "", MatchAny, MatchAll:
		return nil
	}
	return Invalid("unknown match mode %q", c.Mode)
}

// ExamTerm returns the lowercased, trimmed exam-name term.
func (c SearchCriteria) ExamTerm() string {
	return strings.ToLower(strings.TrimSpace(c.ExamName))
}

// EnrichedQuestion is a question joined with its exam, type and tags.
// ExamInfo and TypeInfo are nil when the row is missing or could not be read.
type EnrichedQuestion struct {
	Question
	ExamInfo *Exam         `json:"exam_info"`
	TypeInfo *QuestionType `json:"type_info"`
	Tags     []QuestionTag `json:"tags"`
}

// ExamMatch ranks an exam against a search term.
type ExamMatch int

const (
	ExamNoMatch ExamMatch = iota
	ExamDescriptionMatch
	ExamNameMatch
)

// MatchExam reports how e matches term, which must already be lowercased.
// The empty term matches every exam by name.
func MatchExam(e *Exam, term string) ExamMatch {
	switch {
	case strings.Contains(strings.ToLower(e.Name), term):
		return ExamNameMatch
	case strings.Contains(strings.ToLower(e.Description), term):
		return ExamDescriptionMatch
	}
	return ExamNoMatch
}
