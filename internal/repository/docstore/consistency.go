package docstore

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

// snapshot holds every row of every store, keyed by id.
type snapshot struct {
	types     map[int64]domain.QuestionType
	tags      map[int64]domain.QuestionTag
	exams     map[int64]domain.Exam
	questions []domain.Question
	relations []domain.QuestionTagRelation
}

func loadSnapshot(tx *engine.Tx) (*snapshot, error) {
	types, err := engine.All[domain.QuestionType](tx.Store(storeTypes))
	if err != nil {
		return nil, err
	}
	tags, err := engine.All[domain.QuestionTag](tx.Store(storeTags))
	if err != nil {
		return nil, err
	}
	exams, err := engine.All[domain.Exam](tx.Store(storeExams))
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		types: make(map[int64]domain.QuestionType, len(types)),
		tags:  make(map[int64]domain.QuestionTag, len(tags)),
		exams: make(map[int64]domain.Exam, len(exams)),
	}
	for _, t := range types {
		s.types[t.ID] = t
	}
	for _, t := range tags {
		s.tags[t.ID] = t
	}
	for _, e := range exams {
		s.exams[e.ID] = e
	}
	if s.questions, err = engine.All[domain.Question](tx.Store(storeQuestions)); err != nil {
		return nil, err
	}
	if s.relations, err = engine.All[domain.QuestionTagRelation](tx.Store(storeRelations)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *snapshot) check() *domain.ConsistencyReport {
	report := &domain.ConsistencyReport{
		OrphanRelations:  []int64{},
		DanglingTypeRefs: []int64{},
		DanglingExamRefs: []int64{},
		TagsWithoutType:  []int64{},
		Drift:            []domain.TagDrift{},
	}
	questions := make(map[int64]domain.Question, len(s.questions))
	for _, q := range s.questions {
		questions[q.ID] = q
		if q.TypeID != nil {
			if _, ok := s.types[*q.TypeID]; !ok {
				report.DanglingTypeRefs = append(report.DanglingTypeRefs, q.ID)
			}
		}
		if _, ok := s.exams[q.ExamID]; !ok {
			report.DanglingExamRefs = append(report.DanglingExamRefs, q.ID)
		}
	}
	for _, tag := range sortedTags(s.tags) {
		if _, ok := s.types[tag.TypeID]; !ok {
			report.TagsWithoutType = append(report.TagsWithoutType, tag.ID)
		}
	}
	for _, rel := range s.relations {
		q, qok := questions[rel.QuestionID]
		tag, tok := s.tags[rel.TagID]
		if !qok || !tok {
			report.OrphanRelations = append(report.OrphanRelations, rel.ID)
			continue
		}
		if !q.HasType(tag.TypeID) {
			report.Drift = append(report.Drift, domain.TagDrift{
				RelationID:     rel.ID,
				QuestionID:     q.ID,
				TagID:          tag.ID,
				QuestionTypeID: q.TypeID,
				TagTypeID:      tag.TypeID,
			})
		}
	}
	return report
}

func sortedTags(m map[int64]domain.QuestionTag) []domain.QuestionTag {
	out := make([]domain.QuestionTag, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.QuestionTag) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Check reports soft references that point at missing rows and relations
// whose tag type differs from the question type.
func (r *Repository) Check(ctx context.Context) (*domain.ConsistencyReport, error) {
	return within(ctx, r, allStores, engine.ReadOnly, func(tx *engine.Tx) (*domain.ConsistencyReport, error) {
		s, err := loadSnapshot(tx)
		if err != nil {
			return nil, err
		}
		return s.check(), nil
	})
}

// Repair deletes orphaned relations, clears type references to missing
// types and deletes questions of missing exams together with their
// relations. Tags of missing types and tag/type drift are left alone.
func (r *Repository) Repair(ctx context.Context) (*domain.RepairResult, error) {
	res, err := within(ctx, r, allStores, engine.ReadWrite, func(tx *engine.Tx) (*domain.RepairResult, error) {
		s, err := loadSnapshot(tx)
		if err != nil {
			return nil, err
		}
		report := s.check()
		res := &domain.RepairResult{}

		rel := tx.Store(storeRelations)
		for _, id := range report.OrphanRelations {
			if _, err := rel.Delete(id); err != nil {
				return nil, err
			}
			res.RelationsDeleted++
		}

		questions := tx.Store(storeQuestions)
		doomed := make(map[int64]bool, len(report.DanglingExamRefs))
		for _, id := range report.DanglingExamRefs {
			doomed[id] = true
			n, err := detachBy(tx, idxQuestionID, id)
			if err != nil {
				return nil, err
			}
			if _, err := questions.Delete(id); err != nil {
				return nil, err
			}
			res.RelationsDeleted += n
			res.QuestionsDeleted++
		}

		now := r.now()
		for _, id := range report.DanglingTypeRefs {
			if doomed[id] {
				continue
			}
			q, err := mustFetch[domain.Question](questions, "question", id)
			if err != nil {
				return nil, err
			}
			q.TypeID = nil
			q.UpdatedAt = now
			if err := questions.Put(id, q); err != nil {
				return nil, err
			}
			res.TypeRefsCleared++
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("consistency repair finished",
		zap.Int("relations_deleted", res.RelationsDeleted),
		zap.Int("type_refs_cleared", res.TypeRefsCleared),
		zap.Int("questions_deleted", res.QuestionsDeleted))
	return res, nil
}
