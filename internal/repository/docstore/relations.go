package docstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

// relationManager owns the question-tag join store. Each cascade discovers
// the affected rows and mutates them in one transaction, deleting the
// owning row last.
type relationManager struct {
	r *Repository
}

// ============================================================================
// Attach / Detach
// ============================================================================

func (m *relationManager) Attach(ctx context.Context, questionID, tagID int64) (int64, error) {
	stores := []string{storeQuestions, storeTags, storeRelations}
	return within(ctx, m.r, stores, engine.ReadWrite, func(tx *engine.Tx) (int64, error) {
		return attach(tx, questionID, tagID, m.r.now())
	})
}

// attach inserts the (questionID, tagID) relation unless it already exists,
// returning the id of the stored relation either way.
func attach(tx *engine.Tx, questionID, tagID int64, now time.Time) (int64, error) {
	if _, err := mustFetch[domain.Question](tx.Store(storeQuestions), "question", questionID); err != nil {
		return 0, err
	}
	if _, err := mustFetch[domain.QuestionTag](tx.Store(storeTags), "question tag", tagID); err != nil {
		return 0, err
	}
	rel := tx.Store(storeRelations)
	existing, err := engine.Lookup[domain.QuestionTagRelation](rel.Index(idxQuestionTag), questionID, tagID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	return rel.Add(domain.QuestionTagRelation{QuestionID: questionID, TagID: tagID, CreatedAt: now})
}

func (m *relationManager) Detach(ctx context.Context, questionID, tagID int64) (bool, error) {
	return within(ctx, m.r, []string{storeRelations}, engine.ReadWrite, func(tx *engine.Tx) (bool, error) {
		rel := tx.Store(storeRelations)
		existing, err := engine.Lookup[domain.QuestionTagRelation](rel.Index(idxQuestionTag), questionID, tagID)
		if err != nil || existing == nil {
			return false, err
		}
		return rel.Delete(existing.ID)
	})
}

func (m *relationManager) DetachAll(ctx context.Context, questionID int64) (int, error) {
	return within(ctx, m.r, []string{storeRelations}, engine.ReadWrite, func(tx *engine.Tx) (int, error) {
		return detachBy(tx, idxQuestionID, questionID)
	})
}

// detachBy deletes every relation whose index key equals key.
func detachBy(tx *engine.Tx, index string, key int64) (int, error) {
	rel := tx.Store(storeRelations)
	ids, err := rel.Index(index).Keys(key)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := rel.Delete(id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// ============================================================================
// Lookups
// ============================================================================

func (m *relationManager) ForQuestion(ctx context.Context, questionID int64) ([]domain.QuestionTagRelation, error) {
	return within(ctx, m.r, []string{storeRelations}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionTagRelation, error) {
		return engine.AllByIndex[domain.QuestionTagRelation](tx.Store(storeRelations).Index(idxQuestionID), questionID)
	})
}

func (m *relationManager) ForTag(ctx context.Context, tagID int64) ([]domain.QuestionTagRelation, error) {
	return within(ctx, m.r, []string{storeRelations}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionTagRelation, error) {
		return engine.AllByIndex[domain.QuestionTagRelation](tx.Store(storeRelations).Index(idxTagID), tagID)
	})
}

func (m *relationManager) TagsForQuestion(ctx context.Context, questionID int64) ([]domain.QuestionTag, error) {
	return within(ctx, m.r, []string{storeRelations, storeTags}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.QuestionTag, error) {
		return tagsOf(tx, questionID)
	})
}

// tagsOf joins the relations of questionID with the tag store. Relations
// pointing at missing tags are skipped.
func tagsOf(tx *engine.Tx, questionID int64) ([]domain.QuestionTag, error) {
	rels, err := engine.AllByIndex[domain.QuestionTagRelation](tx.Store(storeRelations).Index(idxQuestionID), questionID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rels))
	for i, rel := range rels {
		ids[i] = rel.TagID
	}
	return engine.Join[domain.QuestionTag](tx.Store(storeTags), ids)
}

func (m *relationManager) QuestionsForTag(ctx context.Context, tagID int64) ([]domain.Question, error) {
	return within(ctx, m.r, []string{storeRelations, storeQuestions}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Question, error) {
		ids, err := questionIDsForTag(tx, tagID)
		if err != nil {
			return nil, err
		}
		return engine.Join[domain.Question](tx.Store(storeQuestions), ids)
	})
}

func questionIDsForTag(tx *engine.Tx, tagID int64) ([]int64, error) {
	rels, err := engine.AllByIndex[domain.QuestionTagRelation](tx.Store(storeRelations).Index(idxTagID), tagID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rels))
	for i, rel := range rels {
		ids[i] = rel.QuestionID
	}
	return ids, nil
}

// ============================================================================
// Cascades
// ============================================================================
//
// The exported cascades are idempotent: a missing owning row still has its
// dependents cleaned up. Repository deletes pass requireOwner so that a
// missing row reports ErrNotFound.

func (m *relationManager) CascadeDeleteForExam(ctx context.Context, examID int64) (*domain.ExamCascadeResult, error) {
	return m.cascadeExam(ctx, examID, false)
}

func (m *relationManager) CascadeDeleteForType(ctx context.Context, typeID int64) (*domain.TypeCascadeResult, error) {
	return m.cascadeType(ctx, typeID, false)
}

func (m *relationManager) CascadeDeleteForTag(ctx context.Context, tagID int64) (*domain.TagCascadeResult, error) {
	return m.cascadeTag(ctx, tagID, false)
}

func (m *relationManager) CascadeDeleteForQuestion(ctx context.Context, questionID int64) (*domain.QuestionCascadeResult, error) {
	return m.cascadeQuestion(ctx, questionID, false)
}

func (m *relationManager) cascadeExam(ctx context.Context, examID int64, requireOwner bool) (*domain.ExamCascadeResult, error) {
	stores := []string{storeExams, storeQuestions, storeRelations}
	res, err := within(ctx, m.r, stores, engine.ReadWrite, func(tx *engine.Tx) (*domain.ExamCascadeResult, error) {
		exams := tx.Store(storeExams)
		if requireOwner {
			if _, err := mustFetch[domain.Exam](exams, "exam", examID); err != nil {
				return nil, err
			}
		}
		questions := tx.Store(storeQuestions)
		ids, err := questions.Index(idxExamID).Keys(examID)
		if err != nil {
			return nil, err
		}
		res := &domain.ExamCascadeResult{ExamID: examID}
		for _, id := range ids {
			if _, err := questions.Delete(id); err != nil {
				return nil, err
			}
			n, err := detachBy(tx, idxQuestionID, id)
			if err != nil {
				return nil, err
			}
			res.QuestionsDeleted++
			res.RelationsDeleted += n
		}
		if _, err := exams.Delete(examID); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	m.r.log.Info("exam deleted",
		zap.Int64("exam_id", examID),
		zap.Int("questions_deleted", res.QuestionsDeleted),
		zap.Int("relations_deleted", res.RelationsDeleted))
	return res, nil
}

func (m *relationManager) cascadeType(ctx context.Context, typeID int64, requireOwner bool) (*domain.TypeCascadeResult, error) {
	res, err := within(ctx, m.r, []string{storeTypes, storeTags, storeQuestions, storeRelations}, engine.ReadWrite,
		func(tx *engine.Tx) (*domain.TypeCascadeResult, error) {
			types := tx.Store(storeTypes)
			if requireOwner {
				if _, err := mustFetch[domain.QuestionType](types, "question type", typeID); err != nil {
					return nil, err
				}
			}
			res := &domain.TypeCascadeResult{TypeID: typeID}
			now := m.r.now()

			questions := tx.Store(storeQuestions)
			bound, err := engine.AllByIndex[domain.Question](questions.Index(idxTypeID), typeID)
			if err != nil {
				return nil, err
			}
			for _, q := range bound {
				q.TypeID = nil
				q.UpdatedAt = now
				if err := questions.Put(q.ID, q); err != nil {
					return nil, err
				}
				res.QuestionsUpdated++
			}

			tags := tx.Store(storeTags)
			tagIDs, err := tags.Index(idxTypeID).Keys(typeID)
			if err != nil {
				return nil, err
			}
			for _, id := range tagIDs {
				n, err := detachBy(tx, idxTagID, id)
				if err != nil {
					return nil, err
				}
				if _, err := tags.Delete(id); err != nil {
					return nil, err
				}
				res.RelationsDeleted += n
				res.TagsDeleted++
			}

			if _, err := types.Delete(typeID); err != nil {
				return nil, err
			}
			return res, nil
		})
	if err != nil {
		return nil, err
	}
	m.r.log.Info("question type deleted",
		zap.Int64("type_id", typeID),
		zap.Int("questions_updated", res.QuestionsUpdated),
		zap.Int("tags_deleted", res.TagsDeleted),
		zap.Int("relations_deleted", res.RelationsDeleted))
	return res, nil
}

func (m *relationManager) cascadeTag(ctx context.Context, tagID int64, requireOwner bool) (*domain.TagCascadeResult, error) {
	return within(ctx, m.r, []string{storeTags, storeRelations}, engine.ReadWrite, func(tx *engine.Tx) (*domain.TagCascadeResult, error) {
		tags := tx.Store(storeTags)
		if requireOwner {
			if _, err := mustFetch[domain.QuestionTag](tags, "question tag", tagID); err != nil {
				return nil, err
			}
		}
		n, err := detachBy(tx, idxTagID, tagID)
		if err != nil {
			return nil, err
		}
		if _, err := tags.Delete(tagID); err != nil {
			return nil, err
		}
		return &domain.TagCascadeResult{TagID: tagID, RelationsDeleted: n}, nil
	})
}

func (m *relationManager) cascadeQuestion(ctx context.Context, questionID int64, requireOwner bool) (*domain.QuestionCascadeResult, error) {
	return within(ctx, m.r, []string{storeQuestions, storeRelations}, engine.ReadWrite, func(tx *engine.Tx) (*domain.QuestionCascadeResult, error) {
		questions := tx.Store(storeQuestions)
		if requireOwner {
			if _, err := mustFetch[domain.Question](questions, "question", questionID); err != nil {
				return nil, err
			}
		}
		n, err := detachBy(tx, idxQuestionID, questionID)
		if err != nil {
			return nil, err
		}
		if _, err := questions.Delete(questionID); err != nil {
			return nil, err
		}
		return &domain.QuestionCascadeResult{QuestionID: questionID, RelationsDeleted: n}, nil
	})
}
