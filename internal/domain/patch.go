package domain

import (
	"strings"
	"time"
)

// ExamPatch is a partial update of an Exam. Nil fields are left unchanged.
type ExamPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply merges the patch into e and stamps UpdatedAt.
func (p ExamPatch) Apply(e *Exam, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return Invalid("exam name must not be empty")
		}
		e.Name = name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	e.UpdatedAt = now
	return nil
}

// QuestionPatch is a partial update of a Question. ClearTypeID unbinds the
// question from its type and takes precedence over TypeID.
type QuestionPatch struct {
	Content     *string `json:"content,omitempty"`
	Answer      *string `json:"answer,omitempty"`
	TypeID      *int64  `json:"type_id,omitempty"`
	ClearTypeID bool    `json:"clear_type_id,omitempty"`
	ExamID      *int64  `json:"exam_id,omitempty"`
}

// Apply merges the patch into q and stamps UpdatedAt.
func (p QuestionPatch) Apply(q *Question, now time.Time) error {
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return Invalid("question content must not be empty")
		}
		q.Content = *p.Content
	}
	if p.Answer != nil {
		q.Answer = *p.Answer
	}
	switch {
	case p.ClearTypeID:
		q.TypeID = nil
	case p.TypeID != nil:
		q.TypeID = Int64(*p.TypeID)
	}
	if p.ExamID != nil {
		q.ExamID = *p.ExamID
	}
	q.UpdatedAt = now
	return nil
}

// TagPatch is a partial update of a QuestionTag.
type TagPatch struct {
	Content *string `json:"content,omitempty"`
	TypeID  *int64  `json:"type_id,omitempty"`
}

// Empty reports whether the patch sets no field.
func (p TagPatch) Empty() bool {
	return p.Content == nil && p.TypeID == nil
}

// Apply merges the patch into t and stamps UpdatedAt. An empty patch is
// rejected.
func (p TagPatch) Apply(t *QuestionTag, now time.Time) error {
	if p.Empty() {
		return Invalid("tag patch sets no field")
	}
	if p.Content != nil {
		c, err := NormalizeContent("tag", *p.Content)
		if err != nil {
			return err
		}
		t.Content = c
	}
	if p.TypeID != nil {
		t.TypeID = *p.TypeID
	}
	t.UpdatedAt = &now
	return nil
}

// NormalizeContent trims content and rejects it when nothing remains.
func NormalizeContent(kind, content string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return "", Invalid("%s content must not be empty", kind)
	}
	return c, nil
}
