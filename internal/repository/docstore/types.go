package docstore

import (
	"context"
	"fmt"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

type typeRepo struct {
	r *Repository
}

func (t *typeRepo) Add(ctx context.Context, content string) (int64, error) {
	c, err := domain.NormalizeContent("type", content)
	if err != nil {
		return 0, err
	}
	return within(ctx, t.r, []string{storeTypes}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		s := tx.Store(storeTypes)
		if err := ensureUniqueContent[domain.QuestionType](s, "question type", c, 0, typeID); err != nil {
			return 0, err
		}
		id, err := s.Add(domain.QuestionType{Content: c, CreatedAt: t.r.now()})
		if engine.IsConstraint(err) {
			return 0, domain.Duplicate("question type", c)
		}
		return id, err
	})
}

func (t *typeRepo) Get(ctx context.Context, id int64) (*domain.QuestionType, error) {
	return within(ctx, t.r, []string{storeTypes}, engine.ReadOnly, func(tx *engine.Tx) (*domain.QuestionType, error) {
		return mustFetch[domain.QuestionType](tx.Store(storeTypes), "question type", id)
	})
}

func (t *typeRepo) GetAll(ctx context.Context) ([]domain.QuestionType, error) {
	return within(ctx, t.r, []string{storeTypes}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionType, error) {
		return engine.All[domain.QuestionType](tx.Store(storeTypes))
	})
}

func (t *typeRepo) GetByContent(ctx context.Context, content string) (*domain.QuestionType, error) {
	return within(ctx, t.r, []string{storeTypes}, engine.ReadOnly, func(tx *engine.Tx) (*domain.QuestionType, error) {
		qt, err := engine.Lookup[domain.QuestionType](tx.Store(storeTypes).Index(idxContent), content)
		if err != nil {
			return nil, err
		}
		if qt == nil {
			return nil, fmt.Errorf("question type %q: %w", content, domain.ErrNotFound)
		}
		return qt, nil
	})
}

func (t *typeRepo) Update(ctx context.Context, id int64, content string) (int64, error) {
	c, err := domain.NormalizeContent("type", content)
	if err != nil {
		return 0, err
	}
	return within(ctx, t.r, []string{storeTypes}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		s := tx.Store(storeTypes)
		qt, err := mustFetch[domain.QuestionType](s, "question type", id)
		if err != nil {
			return 0, err
		}
		if err := ensureUniqueContent[domain.QuestionType](s, "question type", c, id, typeID); err != nil {
			return 0, err
		}
		now := t.r.now()
		qt.Content = c
		qt.UpdatedAt = &now
		if err := s.Put(id, qt); err != nil {
			if engine.IsConstraint(err) {
				return 0, domain.Duplicate("question type", c)
			}
			return 0, err
		}
		return id, nil
	})
}

func (t *typeRepo) Delete(ctx context.Context, id int64) (*domain.TypeCascadeResult, error) {
	return t.r.relations.cascadeType(ctx, id, true)
}

func typeID(qt *domain.QuestionType) int64 { return qt.ID }

// ensureUniqueContent fails with ErrDuplicateContent when a row other than
// self already holds content.
func ensureUniqueContent[T any](s *engine.Store, kind, content string, self int64, idOf func(*T) int64) error {
	existing, err := engine.Lookup[T](s.Index(idxContent), content)
	if err != nil {
		return err
	}
	if existing != nil && idOf(existing) != self {
		return domain.Duplicate(kind, content)
	}
	return nil
}

// mustFetch reads id from s and fails with ErrNotFound when it is missing.
func mustFetch[T any](s *engine.Store, kind string, id int64) (*T, error) {
	v, err := engine.Fetch[T](s, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NotFound(kind, id)
	}
	return v, nil
}
