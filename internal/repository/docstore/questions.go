package docstore

import (
	"context"
	"strings"
	"time"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

type questionRepo struct {
	r *Repository
}

func (q *questionRepo) Add(ctx context.Context, in domain.QuestionInput) (int64, error) {
	if strings.TrimSpace(in.Content) == "" {
		return 0, domain.Invalid("question content must not be empty")
	}
	stores := []string{storeTypes, storeExams, storeQuestions}
	return within(ctx, q.r, stores, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		if err := requireExam(tx, in.ExamID); err != nil {
			return 0, err
		}
		if in.TypeID != nil {
			if err := requireType(tx, *in.TypeID); err != nil {
				return 0, err
			}
		}
		return addQuestion(tx, in, q.r.now())
	})
}

func addQuestion(tx *engine.Tx, in domain.QuestionInput, now time.Time) (int64, error) {
	return tx.Store(storeQuestions).Add(domain.Question{
		Content:   in.Content,
		Answer:    in.Answer,
		TypeID:    in.TypeID,
		ExamID:    in.ExamID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (q *questionRepo) Get(ctx context.Context, id int64) (*domain.Question, error) {
	return within(ctx, q.r, []string{storeQuestions}, engine.ReadOnly, func(tx *engine.Tx) (*domain.Question, error) {
		return mustFetch[domain.Question](tx.Store(storeQuestions), "question", id)
	})
}

func (q *questionRepo) GetAll(ctx context.Context) ([]domain.Question, error) {
	return within(ctx, q.r, []string{storeQuestions}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Question, error) {
		return engine.All[domain.Question](tx.Store(storeQuestions))
	})
}

func (q *questionRepo) GetByExamID(ctx context.Context, examID int64) ([]domain.Question, error) {
	return within(ctx, q.r, []string{storeQuestions}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Question, error) {
		return engine.AllByIndex[domain.Question](tx.Store(storeQuestions).Index(idxExamID), examID)
	})
}

func (q *questionRepo) GetByTypeID(ctx context.Context, typeID int64) ([]domain.Question, error) {
	return within(ctx, q.r, []string{storeQuestions}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Question, error) {
		return engine.AllByIndex[domain.Question](tx.Store(storeQuestions).Index(idxTypeID), typeID)
	})
}

func (q *questionRepo) GetByTagID(ctx context.Context, tagID int64) ([]domain.Question, error) {
	return q.r.relations.QuestionsForTag(ctx, tagID)
}

// Update merges patch into the question. A changed type is checked for
// existence only; tags already attached are not revisited.
func (q *questionRepo) Update(ctx context.Context, id int64, patch domain.QuestionPatch) (int64, error) {
	stores := []string{storeTypes, storeExams, storeQuestions}
	return within(ctx, q.r, stores, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		s := tx.Store(storeQuestions)
		question, err := mustFetch[domain.Question](s, "question", id)
		if err != nil {
			return 0, err
		}
		if err := patch.Apply(question, q.r.now()); err != nil {
			return 0, err
		}
		if patch.ExamID != nil {
			if err := requireExam(tx, question.ExamID); err != nil {
				return 0, err
			}
		}
		if patch.TypeID != nil && !patch.ClearTypeID {
			if err := requireType(tx, *question.TypeID); err != nil {
				return 0, err
			}
		}
		if err := s.Put(id, question); err != nil {
			return 0, err
		}
		return id, nil
	})
}

func (q *questionRepo) Delete(ctx context.Context, id int64) (*domain.QuestionCascadeResult, error) {
	return q.r.relations.cascadeQuestion(ctx, id, true)
}

// requireExam fails validation when examID names no stored exam.
func requireExam(tx *engine.Tx, examID int64) error {
	exam, err := engine.Fetch[domain.Exam](tx.Store(storeExams), examID)
	if err != nil {
		return err
	}
	if exam == nil {
		return domain.Invalid("exam %d does not exist", examID)
	}
	return nil
}
