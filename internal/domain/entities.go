package domain

import "time"

// QuestionType is an entry of the type catalog
type QuestionType struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// QuestionTag is a skill label belonging to one QuestionType
type QuestionTag struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	TypeID    int64      `json:"type_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Exam groups the questions of one paper
type Exam struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question is a single question of an exam
type Question struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Answer    string    `json:"answer"`
	TypeID    *int64    `json:"type_id"`
	ExamID    int64     `json:"exam_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasType reports whether the question is bound to typeID.
func (q *Question) HasType(typeID int64) bool {
	return q.TypeID != nil && *q.TypeID == typeID
}

// QuestionTagRelation attaches a tag to a question
type QuestionTagRelation struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	TagID      int64     `json:"tag_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TypeWithTags is a catalog entry together with the tags it owns
type TypeWithTags struct {
	QuestionType
	Tags []QuestionTag `json:"tags"`
}

// ExamInput holds the fields of a new exam.
type ExamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QuestionInput holds the fields of a new question.
type QuestionInput struct {
	Content string `json:"content"`
	Answer  string `json:"answer"`
	TypeID  *int64 `json:"type_id"`
	ExamID  int64  `json:"exam_id"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
