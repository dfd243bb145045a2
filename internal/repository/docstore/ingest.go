package docstore

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

// Ingest writes an analysed exam: the exam row, one question per analysed
// question and its tag relations. The analysis is validated against the
// stored catalog before the first write, and the whole ingestion commits or
// rolls back as one transaction.
func (r *Repository) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := within(ctx, r, allStores, engine.ReadWrite, func(tx *engine.Tx) (*domain.IngestResult, error) {
		if err := validateAnalysis(tx, req.Analysis); err != nil {
			return nil, err
		}

		now := r.now()
		examID, err := addExam(tx, strings.TrimSpace(req.ExamName), req.Description, now)
		if err != nil {
			return nil, err
		}

		res := &domain.IngestResult{
			ExamID:    examID,
			Questions: make([]domain.SavedQuestion, 0, len(req.Analysis.Questions)),
		}
		for _, aq := range req.Analysis.Questions {
			questionID, err := addQuestion(tx, domain.QuestionInput{
				Content: aq.Content,
				TypeID:  domain.Int64(aq.TypeID),
				ExamID:  examID,
			}, now)
			if err != nil {
				return nil, err
			}
			tagIDs := dedupe(aq.TagIDs)
			for _, tagID := range tagIDs {
				if _, err := attach(tx, questionID, tagID, now); err != nil {
					return nil, err
				}
			}
			res.Questions = append(res.Questions, domain.SavedQuestion{
				ID:      questionID,
				Content: aq.Content,
				TypeID:  aq.TypeID,
				TagIDs:  tagIDs,
			})
		}
		res.TotalQuestions = len(res.Questions)
		return res, nil
	})
	if err != nil {
		r.log.Warn("ingestion failed", zap.String("exam_name", req.ExamName), zap.Error(err))
		return nil, err
	}
	r.log.Info("exam ingested",
		zap.Int64("exam_id", res.ExamID),
		zap.Int("questions", res.TotalQuestions))
	return res, nil
}

// validateAnalysis checks every analysed question against the stored
// catalog: the type must exist and every tag must exist and belong to it.
func validateAnalysis(tx *engine.Tx, a domain.AnalysisResult) error {
	types := make(map[int64]bool)
	tags := make(map[int64]*domain.QuestionTag)

	for i, q := range a.Questions {
		n := i + 1
		known, seen := types[q.TypeID]
		if !seen {
			qt, err := engine.Fetch[domain.QuestionType](tx.Store(storeTypes), q.TypeID)
			if err != nil {
				return err
			}
			known = qt != nil
			types[q.TypeID] = known
		}
		if !known {
			return domain.Invalid("question %d: type %d does not exist", n, q.TypeID)
		}

		for _, tagID := range q.TagIDs {
			tag, seen := tags[tagID]
			if !seen {
				var err error
				tag, err = engine.Fetch[domain.QuestionTag](tx.Store(storeTags), tagID)
				if err != nil {
					return err
				}
				tags[tagID] = tag
			}
			if tag == nil {
				return domain.Invalid("question %d: tag %d does not exist", n, tagID)
			}
			if tag.TypeID != q.TypeID {
				return domain.Invalid("question %d: tag %q (%d) belongs to type %d, not %d",
					n, tag.Content, tagID, tag.TypeID, q.TypeID)
			}
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
