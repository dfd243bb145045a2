package docstore

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

// Search selects questions by criteria and enriches each hit with its exam,
// type and tags.
//
// With the default MatchAny mode every supplied criterion contributes its
// matches independently and the results are unioned in first-match order:
// exam-name matches, then type matches, then tag matches. MatchAll keeps
// only questions selected by every supplied criterion. No criteria selects
// every question.
func (r *Repository) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.EnrichedQuestion, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	stores := []string{storeExams, storeQuestions, storeRelations}
	questions, err := within(ctx, r, stores, engine.ReadOnly, func(tx *engine.Tx) ([]domain.Question, error) {
		return matchQuestions(tx, criteria)
	})
	if err != nil {
		return nil, err
	}
	return r.enrich(ctx, questions)
}

func matchQuestions(tx *engine.Tx, c domain.SearchCriteria) ([]domain.Question, error) {
	questions := tx.Store(storeQuestions)
	if c.Empty() {
		return engine.All[domain.Question](questions)
	}

	var sets [][]int64
	if c.ExamName != "" {
		exams, err := matchExams(tx, c.ExamTerm())
		if err != nil {
			return nil, err
		}
		var ids []int64
		for _, e := range exams {
			keys, err := questions.Index(idxExamID).Keys(e.ID)
			if err != nil {
				return nil, err
			}
			ids = append(ids, keys...)
		}
		sets = append(sets, ids)
	}
	if typeID := c.TypeFilter(); typeID != nil {
		ids, err := questions.Index(idxTypeID).Keys(*typeID)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ids)
	}
	if len(c.TagIDs) > 0 {
		var ids []int64
		for _, tagID := range c.TagIDs {
			keys, err := questionIDsForTag(tx, tagID)
			if err != nil {
				return nil, err
			}
			ids = append(ids, keys...)
		}
		sets = append(sets, ids)
	}

	var ids []int64
	if c.Mode == domain.MatchAll {
		ids = intersect(sets)
	} else {
		ids = union(sets)
	}
	// Relations may outlive their question; Join skips the missing rows.
	return engine.Join[domain.Question](questions, ids)
}

// union concatenates sets, keeping the first occurrence of every id.
func union(sets [][]int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, set := range sets {
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// intersect keeps the ids of the first set present in every other set, in
// first-set order without duplicates.
func intersect(sets [][]int64) []int64 {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, set := range sets {
		inSet := make(map[int64]bool, len(set))
		for _, id := range set {
			if !inSet[id] {
				inSet[id] = true
				counts[id]++
			}
		}
	}
	var out []int64
	for _, id := range union(sets[:1]) {
		if counts[id] == len(sets) {
			out = append(out, id)
		}
	}
	return out
}

// enrich joins every question with its exam, type and tags. A field that
// cannot be read is logged and left empty; only cancellation fails the call.
func (r *Repository) enrich(ctx context.Context, questions []domain.Question) ([]domain.EnrichedQuestion, error) {
	out := make([]domain.EnrichedQuestion, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.enrichConcurrency)

	for i := range questions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.enrichOne(gctx, questions[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) enrichOne(ctx context.Context, q domain.Question) domain.EnrichedQuestion {
	eq := domain.EnrichedQuestion{Question: q, Tags: []domain.QuestionTag{}}
	log := r.log.With(zap.Int64("question_id", q.ID))

	stores := []string{storeExams, storeTypes, storeRelations, storeTags}
	err := r.db.Run(ctx, stores, engine.ReadOnly, func(tx *engine.Tx) error {
		exam, err := engine.Fetch[domain.Exam](tx.Store(storeExams), q.ExamID)
		if err != nil {
			log.Warn("exam enrichment failed", zap.Int64("exam_id", q.ExamID), zap.Error(err))
		}
		eq.ExamInfo = exam

		if q.TypeID != nil {
			qt, err := engine.Fetch[domain.QuestionType](tx.Store(storeTypes), *q.TypeID)
			if err != nil {
				log.Warn("type enrichment failed", zap.Int64("type_id", *q.TypeID), zap.Error(err))
			}
			eq.TypeInfo = qt
		}

		tags, err := tagsOf(tx, q.ID)
		if err != nil {
			log.Warn("tag enrichment failed", zap.Error(err))
		} else if tags != nil {
			eq.Tags = tags
		}
		return nil
	})
	if err != nil {
		log.Warn("enrichment skipped", zap.Error(err))
	}
	return eq
}
