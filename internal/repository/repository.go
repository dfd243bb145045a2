package repository

import (
	"context"

	"exambank/internal/catalog"
	"exambank/internal/domain"
)

// TypeRepository manages the question type catalog
type TypeRepository interface {
	Add(ctx context.Context, content string) (int64, error)
	Get(ctx context.Context, id int64) (*domain.QuestionType, error)
	GetAll(ctx context.Context) ([]domain.QuestionType, error)
	GetByContent(ctx context.Context, content string) (*domain.QuestionType, error)
	Update(ctx context.Context, id int64, content string) (int64, error)
	// Delete clears the type from its questions and deletes its tags
	Delete(ctx context.Context, id int64) (*domain.TypeCascadeResult, error)
}

// TagRepository manages question tags
type TagRepository interface {
	Add(ctx context.Context, content string, typeID int64) (int64, error)
	Get(ctx context.Context, id int64) (*domain.QuestionTag, error)
	GetAll(ctx context.Context) ([]domain.QuestionTag, error)
	GetByTypeID(ctx context.Context, typeID int64) ([]domain.QuestionTag, error)
	GetByContent(ctx context.Context, content string) (*domain.QuestionTag, error)
	Update(ctx context.Context, id int64, patch domain.TagPatch) (int64, error)
	Delete(ctx context.Context, id int64) (*domain.TagCascadeResult, error)
}

// ExamRepository manages exams
type ExamRepository interface {
	Add(ctx context.Context, in domain.ExamInput) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Exam, error)
	GetAll(ctx context.Context) ([]domain.Exam, error)
	// SearchByName matches name or description, name matches first
	SearchByName(ctx context.Context, keyword string) ([]domain.Exam, error)
	Update(ctx context.Context, id int64, patch domain.ExamPatch) (int64, error)
	// Delete removes the exam with all of its questions and their relations
	Delete(ctx context.Context, id int64) (*domain.ExamCascadeResult, error)
}

// QuestionRepository manages questions
type QuestionRepository interface {
	Add(ctx context.Context, in domain.QuestionInput) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Question, error)
	GetAll(ctx context.Context) ([]domain.Question, error)
	GetByExamID(ctx context.Context, examID int64) ([]domain.Question, error)
	GetByTypeID(ctx context.Context, typeID int64) ([]domain.Question, error)
	GetByTagID(ctx context.Context, tagID int64) ([]domain.Question, error)
	Update(ctx context.Context, id int64, patch domain.QuestionPatch) (int64, error)
	Delete(ctx context.Context, id int64) (*domain.QuestionCascadeResult, error)
}

// RelationManager owns the question-tag join store and the cascades that
// keep it consistent
type RelationManager interface {
	// Attach is idempotent and returns the id of the existing relation
	// when the pair is already attached
	Attach(ctx context.Context, questionID, tagID int64) (int64, error)
	// Detach reports false without error when the pair is not attached
	Detach(ctx context.Context, questionID, tagID int64) (bool, error)
	DetachAll(ctx context.Context, questionID int64) (int, error)

	ForQuestion(ctx context.Context, questionID int64) ([]domain.QuestionTagRelation, error)
	ForTag(ctx context.Context, tagID int64) ([]domain.QuestionTagRelation, error)
	TagsForQuestion(ctx context.Context, questionID int64) ([]domain.QuestionTag, error)
	QuestionsForTag(ctx context.Context, tagID int64) ([]domain.Question, error)

	CascadeDeleteForExam(ctx context.Context, examID int64) (*domain.ExamCascadeResult, error)
	CascadeDeleteForType(ctx context.Context, typeID int64) (*domain.TypeCascadeResult, error)
	CascadeDeleteForTag(ctx context.Context, tagID int64) (*domain.TagCascadeResult, error)
	CascadeDeleteForQuestion(ctx context.Context, questionID int64) (*domain.QuestionCascadeResult, error)
}

// Repository is the full data access surface of the question bank
type Repository interface {
	Types() TypeRepository
	Tags() TagRepository
	Exams() ExamRepository
	Questions() QuestionRepository
	Relations() RelationManager

	// Search returns enriched questions matching criteria
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.EnrichedQuestion, error)
	// Ingest persists an analysed exam atomically
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// Catalog lists every type with its tags
	Catalog(ctx context.Context) ([]domain.TypeWithTags, error)
	Stats(ctx context.Context) (*domain.Stats, error)

	// Consistency maintenance
	Check(ctx context.Context) (*domain.ConsistencyReport, error)
	Repair(ctx context.Context) (*domain.RepairResult, error)

	// Reset clears every store, reseeding the catalog when cat is not nil
	Reset(ctx context.Context, cat *catalog.Catalog) error

	// Close releases resources
	Close() error
}
