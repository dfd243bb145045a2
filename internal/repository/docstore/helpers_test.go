package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"exambank/internal/domain"
	"exambank/internal/engine"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory repository seeded with the default catalog
func newTestRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	repo, err := New(context.Background(), ":memory:", nil, opts...)
	require.NoError(t, err, "failed to create test repository")
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func mustAddExam(t *testing.T, r *Repository, name, description string) int64 {
	t.Helper()
	id, err := r.Exams().Add(context.Background(), domain.ExamInput{Name: name, Description: description})
	require.NoError(t, err)
	return id
}

func mustAddQuestion(t *testing.T, r *Repository, examID int64, typeID *int64, content string) int64 {
	t.Helper()
	id, err := r.Questions().Add(context.Background(), domain.QuestionInput{
		Content: content,
		TypeID:  typeID,
		ExamID:  examID,
	})
	require.NoError(t, err)
	return id
}

func mustAttach(t *testing.T, r *Repository, questionID int64, tagIDs ...int64) {
	t.Helper()
	for _, tagID := range tagIDs {
		_, err := r.Relations().Attach(context.Background(), questionID, tagID)
		require.NoError(t, err)
	}
}

// rawWrite runs fn in a read-write transaction over every store, bypassing
// the repository so tests can create inconsistent data.
func rawWrite(t *testing.T, r *Repository, fn func(tx *engine.Tx) error) {
	t.Helper()
	require.NoError(t, r.db.Run(context.Background(), allStores, engine.ReadWrite, fn))
}

func questionIDs(qs []domain.EnrichedQuestion) []int64 {
	ids := make([]int64, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func tagIDsOf(tags []domain.QuestionTag) []int64 {
	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

func relationCount(t *testing.T, r *Repository) int {
	t.Helper()
	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	return stats.Relations
}
