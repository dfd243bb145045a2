package docstore

import (
	"context"
	"strings"
	"time"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

type examRepo struct {
	r *Repository
}

func (e *examRepo) Add(ctx context.Context, in domain.ExamInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, domain.Invalid("exam name must not be empty")
	}
	return within(ctx, e.r, []string{storeExams}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		return addExam(tx, name, in.Description, e.r.now())
	})
}

func addExam(tx *engine.Tx, name, description string, now time.Time) (int64, error) {
	return tx.Store(storeExams).Add(domain.Exam{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (e *examRepo) Get(ctx context.Context, id int64) (*domain.Exam, error) {
	return within(ctx, e.r, []string{storeExams}, engine.ReadOnly, func(tx *engine.Tx) (*domain.Exam, error) {
		return mustFetch[domain.Exam](tx.Store(storeExams), "exam", id)
	})
}

func (e *examRepo) GetAll(ctx context.Context) ([]domain.Exam, error) {
	return within(ctx, e.r, []string{storeExams}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Exam, error) {
		return engine.All[domain.Exam](tx.Store(storeExams))
	})
}

// SearchByName returns exams whose name or description contains keyword,
// ignoring case. Name matches come first; both groups keep key order.
func (e *examRepo) SearchByName(ctx context.Context, keyword string) ([]domain.Exam, error) {
	term := strings.ToLower(strings.TrimSpace(keyword))
	return within(ctx, e.r, []string{storeExams}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Exam, error) {
		return matchExams(tx, term)
	})
}

func matchExams(tx *engine.Tx, term string) ([]domain.Exam, error) {
	exams, err := engine.All[domain.Exam](tx.Store(storeExams))
	if err != nil {
		return nil, err
	}
	var byName, byDescription []domain.Exam
	for i := range exams {
		switch domain.MatchExam(&exams[i], term) {
		case domain.ExamNameMatch:
			byName = append(byName, exams[i])
		case domain.ExamDescriptionMatch:
			byDescription = append(byDescription, exams[i])
		}
	}
	return append(byName, byDescription...), nil
}

func (e *examRepo) Update(ctx context.Context, id int64, patch domain.ExamPatch) (int64, error) {
	return within(ctx, e.r, []string{storeExams}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		s := tx.Store(storeExams)
		exam, err := mustFetch[domain.Exam](s, "exam", id)
		if err != nil {
			return 0, err
		}
		if err := patch.Apply(exam, e.r.now()); err != nil {
			return 0, err
		}
		if err := s.Put(id, exam); err != nil {
			return 0, err
		}
		return id, nil
	})
}

func (e *examRepo) Delete(ctx context.Context, id int64) (*domain.ExamCascadeResult, error) {
	return e.r.relations.cascadeExam(ctx, id, true)
}
