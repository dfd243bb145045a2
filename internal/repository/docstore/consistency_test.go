package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

func TestCheck_CleanDatabase(t *testing.T) {
	r := newTestRepo(t)
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")
	mustAttach(t, r, q, 2001)

	report, err := r.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Empty(t, report.Drift)
}

func TestCheckAndRepair(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	exam := mustAddExam(t, r, "期中", "")
	lost := mustAddExam(t, r, "丢失", "")
	orphanQ := mustAddQuestion(t, r, exam, domain.Int64(1001), "orphan relations")
	danglingType := mustAddQuestion(t, r, exam, domain.Int64(1002), "dangling type")
	danglingExam := mustAddQuestion(t, r, lost, domain.Int64(1001), "dangling exam")
	drifted := mustAddQuestion(t, r, exam, domain.Int64(1001), "drifted")
	mustAttach(t, r, orphanQ, 2001)
	mustAttach(t, r, danglingExam, 2002)
	mustAttach(t, r, drifted, 2003)

	var orphanRel int64
	rawWrite(t, r, func(tx *engine.Tx) error {
		ids, err := tx.Store(storeRelations).Index(idxQuestionID).Keys(orphanQ)
		if err != nil {
			return err
		}
		orphanRel = ids[0]
		if _, err := tx.Store(storeQuestions).Delete(orphanQ); err != nil {
			return err
		}
		if _, err := tx.Store(storeTypes).Delete(1002); err != nil {
			return err
		}
		if _, err := tx.Store(storeExams).Delete(lost); err != nil {
			return err
		}
		// Drift: the question changes type after tagging.
		q, err := engine.Fetch[domain.Question](tx.Store(storeQuestions), drifted)
		if err != nil {
			return err
		}
		q.TypeID = domain.Int64(1005)
		return tx.Store(storeQuestions).Put(drifted, q)
	})

	report, err := r.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []int64{orphanRel}, report.OrphanRelations)
	assert.Equal(t, []int64{danglingType}, report.DanglingTypeRefs)
	assert.Equal(t, []int64{danglingExam}, report.DanglingExamRefs)
	// Tags of type 1002 were left behind by the raw delete.
	assert.Len(t, report.TagsWithoutType, 7)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, drifted, report.Drift[0].QuestionID)
	assert.Equal(t, int64(1001), report.Drift[0].TagTypeID)

	res, err := r.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairResult{RelationsDeleted: 2, TypeRefsCleared: 1, QuestionsDeleted: 1}, *res)

	report, err = r.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.OrphanRelations)
	assert.Empty(t, report.DanglingTypeRefs)
	assert.Empty(t, report.DanglingExamRefs)
	assert.Len(t, report.TagsWithoutType, 7)
	assert.Len(t, report.Drift, 1)

	q, err := r.Questions().Get(ctx, danglingType)
	require.NoError(t, err)
	assert.Nil(t, q.TypeID)
}
