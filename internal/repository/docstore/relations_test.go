package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

func TestRelations_AttachIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")

	first, err := r.Relations().Attach(ctx, q, 2001)
	require.NoError(t, err)
	second, err := r.Relations().Attach(ctx, q, 2001)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, relationCount(t, r))
}

func TestRelations_AttachRequiresBothEnds(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")

	_, err := r.Relations().Attach(ctx, 9999, 2001)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.Relations().Attach(ctx, q, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, relationCount(t, r))
}

func TestRelations_DetachTwice(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")
	mustAttach(t, r, q, 2001, 2002)

	removed, err := r.Relations().Detach(ctx, q, 2001)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.Relations().Detach(ctx, q, 2001)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, relationCount(t, r))
}

func TestRelations_DetachAllAndLookups(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q1 := mustAddQuestion(t, r, exam, domain.Int64(1001), "q1")
	q2 := mustAddQuestion(t, r, exam, domain.Int64(1001), "q2")
	mustAttach(t, r, q1, 2003, 2001)
	mustAttach(t, r, q2, 2001)

	tags, err := r.Relations().TagsForQuestion(ctx, q1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2003, 2001}, tagIDsOf(tags))

	byTag, err := r.Relations().ForTag(ctx, 2001)
	require.NoError(t, err)
	assert.Len(t, byTag, 2)

	questions, err := r.Relations().QuestionsForTag(ctx, 2001)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, q1, questions[0].ID)

	n, err := r.Relations().DetachAll(ctx, q1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rels, err := r.Relations().ForQuestion(ctx, q1)
	require.NoError(t, err)
	assert.Empty(t, rels)
	assert.Equal(t, 1, relationCount(t, r))
}

func TestRelations_CascadesAreIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")
	mustAttach(t, r, q, 2001)

	res, err := r.Relations().CascadeDeleteForExam(ctx, exam)
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionsDeleted)

	res, err = r.Relations().CascadeDeleteForExam(ctx, exam)
	require.NoError(t, err)
	assert.Equal(t, domain.ExamCascadeResult{ExamID: exam}, *res)

	_, err = r.Relations().CascadeDeleteForTag(ctx, 987654)
	require.NoError(t, err)
	_, err = r.Relations().CascadeDeleteForQuestion(ctx, q)
	require.NoError(t, err)
	_, err = r.Relations().CascadeDeleteForType(ctx, 1007)
	require.NoError(t, err)
}

func TestRelations_CascadeCleansDependentsOfMissingOwner(t *testing.T) {
	r := newTestRepo(t)
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")
	mustAttach(t, r, q, 2001)

	// Simulate a cascade interrupted after the exam row went away.
	rawWrite(t, r, func(tx *engine.Tx) error {
		_, err := tx.Store(storeExams).Delete(exam)
		return err
	})

	res, err := r.Relations().CascadeDeleteForExam(context.Background(), exam)
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionsDeleted)
	assert.Equal(t, 1, res.RelationsDeleted)
	assert.Zero(t, relationCount(t, r))
}

func TestRelations_DeleteTagLeavesOtherRelations(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	res, err := r.Ingest(ctx, domain.IngestRequest{
		ExamName: "月考",
		Analysis: domain.AnalysisResult{Questions: []domain.AnalyzedQuestion{
			{Content: "小说阅读", TypeID: 1002, TagIDs: []int64{2007, 2008}},
			{Content: "散文阅读", TypeID: 1003, TagIDs: []int64{2014, 2015}},
		}},
	})
	require.NoError(t, err)
	tagged, other := res.Questions[0].ID, res.Questions[1].ID

	_, err = r.Tags().Delete(ctx, 2007)
	require.NoError(t, err)

	tags, err := r.Relations().TagsForQuestion(ctx, tagged)
	require.NoError(t, err)
	assert.Equal(t, []int64{2008}, tagIDsOf(tags))

	tags, err = r.Relations().TagsForQuestion(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []int64{2014, 2015}, tagIDsOf(tags))
}

func TestRelations_NoDuplicatePairs(t *testing.T) {
	r := newTestRepo(t)
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")

	for i := 0; i < 3; i++ {
		mustAttach(t, r, q, 2001, 2002, 2001)
	}
	rels, err := r.Relations().ForQuestion(context.Background(), q)
	require.NoError(t, err)
	pairs := make(map[[2]int64]int)
	for _, rel := range rels {
		pairs[[2]int64{rel.QuestionID, rel.TagID}]++
	}
	assert.Equal(t, map[[2]int64]int{{q, 2001}: 1, {q, 2002}: 1}, pairs)
}
