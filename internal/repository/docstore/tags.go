package docstore

import (
	"context"
	"fmt"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

type tagRepo struct {
	r *Repository
}

func (t *tagRepo) Add(ctx context.Context, content string, typeID int64) (int64, error) {
	c, err := domain.NormalizeContent("tag", content)
	if err != nil {
		return 0, err
	}
	return within(ctx, t.r, []string{storeTypes, storeTags}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		if err := requireType(tx, typeID); err != nil {
			return 0, err
		}
		s := tx.Store(storeTags)
		if err := ensureUniqueContent[domain.QuestionTag](s, "question tag", c, 0, tagID); err != nil {
			return 0, err
		}
		id, err := s.Add(domain.QuestionTag{Content: c, TypeID: typeID, CreatedAt: t.r.now()})
		if engine.IsConstraint(err) {
			return 0, domain.Duplicate("question tag", c)
		}
		return id, err
	})
}

func (t *tagRepo) Get(ctx context.Context, id int64) (*domain.QuestionTag, error) {
	return within(ctx, t.r, []string{storeTags}, engine.ReadOnly, func(tx *engine.Tx) (*domain.QuestionTag, error) {
		return mustFetch[domain.QuestionTag](tx.Store(storeTags), "question tag", id)
	})
}

func (t *tagRepo) GetAll(ctx context.Context) ([]domain.QuestionTag, error) {
	return within(ctx, t.r, []string{storeTags}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionTag, error) {
		return engine.All[domain.QuestionTag](tx.Store(storeTags))
	})
}

func (t *tagRepo) GetByTypeID(ctx context.Context, typeID int64) ([]domain.QuestionTag, error) {
	return within(ctx, t.r, []string{storeTags}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionTag, error) {
		return engine.AllByIndex[domain.QuestionTag](tx.Store(storeTags).Index(idxTypeID), typeID)
	})
}

func (t *tagRepo) GetByContent(ctx context.Context, content string) (*domain.QuestionTag, error) {
	return within(ctx, t.r, []string{storeTags}, engine.ReadOnly, func(tx *engine.Tx) (*domain.QuestionTag, error) {
		tag, err := engine.Lookup[domain.QuestionTag](tx.Store(storeTags).Index(idxContent), content)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			return nil, fmt.Errorf("question tag %q: %w", content, domain.ErrNotFound)
		}
		return tag, nil
	})
}

// Update merges patch into the tag. Changing the type of a tag does not
// revisit questions the tag is attached to.
func (t *tagRepo) Update(ctx context.Context, id int64, patch domain.TagPatch) (int64, error) {
	if patch.Empty() {
		return 0, domain.Invalid("tag patch sets no field")
	}
	return within(ctx, t.r, []string{storeTypes, storeTags}, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		s := tx.Store(storeTags)
		tag, err := mustFetch[domain.QuestionTag](s, "question tag", id)
		if err != nil {
			return 0, err
		}
		if err := patch.Apply(tag, t.r.now()); err != nil {
			return 0, err
		}
		if patch.TypeID != nil {
			if err := requireType(tx, tag.TypeID); err != nil {
				return 0, err
			}
		}
		if err := ensureUniqueContent[domain.QuestionTag](s, "question tag", tag.Content, id, tagID); err != nil {
			return 0, err
		}
		if err := s.Put(id, tag); err != nil {
			if engine.IsConstraint(err) {
				return 0, domain.Duplicate("question tag", tag.Content)
			}
			return 0, err
		}
		return id, nil
	})
}

func (t *tagRepo) Delete(ctx context.Context, id int64) (*domain.TagCascadeResult, error) {
	return t.r.relations.cascadeTag(ctx, id, true)
}

func tagID(tag *domain.QuestionTag) int64 { return tag.ID }

// requireType fails validation when typeID names no stored type.
func requireType(tx *engine.Tx, typeID int64) error {
	qt, err := engine.Fetch[domain.QuestionType](tx.Store(storeTypes), typeID)
	if err != nil {
		return err
	}
	if qt == nil {
		return domain.Invalid("question type %d does not exist", typeID)
	}
	return nil
}
