package domain

// ExamCascadeResult summarises an exam deletion.
type ExamCascadeResult struct {
	ExamID           int64 `json:"exam_id"`
	QuestionsDeleted int   `json:"questions_deleted"`
	RelationsDeleted int   `json:"relations_deleted"`
}

// TypeCascadeResult summarises a type deletion.
type TypeCascadeResult struct {
	TypeID           int64 `json:"type_id"`
	QuestionsUpdated int   `json:"questions_updated"`
	TagsDeleted      int   `json:"tags_deleted"`
	RelationsDeleted int   `json:"relations_deleted"`
}

// TagCascadeResult summarises a tag deletion.
type TagCascadeResult struct {
	TagID            int64 `json:"tag_id"`
	RelationsDeleted int   `json:"relations_deleted"`
}

// QuestionCascadeResult summarises a question deletion.
type QuestionCascadeResult struct {
	QuestionID       int64 `json:"question_id"`
	RelationsDeleted int   `json:"relations_deleted"`
}

// Stats counts the rows of every store.
type Stats struct {
	Exams         int `json:"exams"`
	Questions     int `json:"questions"`
	QuestionTypes int `json:"question_types"`
	QuestionTags  int `json:"question_tags"`
	Relations     int `json:"relations"`
}

// TagDrift is a relation whose tag belongs to a different type than its
// question.
type TagDrift struct {
	RelationID     int64  `json:"relation_id"`
	QuestionID     int64  `json:"question_id"`
	TagID          int64  `json:"tag_id"`
	QuestionTypeID *int64 `json:"question_type_id"`
	TagTypeID      int64  `json:"tag_type_id"`
}

// ConsistencyReport lists soft references that point at missing rows.
type ConsistencyReport struct {
	OrphanRelations  []int64    `json:"orphan_relations"`
	DanglingTypeRefs []int64    `json:"dangling_type_refs"`
	DanglingExamRefs []int64    `json:"dangling_exam_refs"`
	TagsWithoutType  []int64    `json:"tags_without_type"`
	Drift            []TagDrift `json:"drift"`
}

// Clean reports whether no dangling reference was found. Drift is not
// counted.
func (r *ConsistencyReport) Clean() bool {
	return len(r.OrphanRelations) == 0 && len(r.DanglingTypeRefs) == 0 &&
		len(r.DanglingExamRefs) == 0 && len(r.TagsWithoutType) == 0
}

// RepairResult summarises a repair pass.
type RepairResult struct {
	RelationsDeleted int `json:"relations_deleted"`
	TypeRefsCleared  int `json:"type_refs_cleared"`
	QuestionsDeleted int `json:"questions_deleted"`
}
