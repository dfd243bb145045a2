package docstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exambank/internal/catalog"
	"exambank/internal/domain"
)

func TestSchema_SeedsDefaultCatalog(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	types, err := r.Types().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 10)

	tags, err := r.Tags().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 54)

	poetry, err := r.Types().Get(ctx, 1006)
	require.NoError(t, err)
	assert.Equal(t, "古诗阅读与鉴赏", poetry.Content)

	owned, err := r.Tags().GetByTypeID(ctx, 1006)
	require.NoError(t, err)
	assert.Equal(t, []int64{2030, 2031, 2032, 2033, 2034, 2035}, tagIDsOf(owned))

	_, err = r.Types().Get(ctx, 1007)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchema_SeedRunsOnlyOnFirstOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bank.db")

	r, err := New(ctx, path, nil)
	require.NoError(t, err)
	_, err = r.Tags().Delete(ctx, 2001)
	require.NoError(t, err)
	extra, err := r.Types().Add(ctx, "口语交际")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = New(ctx, path, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Tags().Get(ctx, 2001)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := r.Types().Get(ctx, extra)
	require.NoError(t, err)
	assert.Equal(t, "口语交际", got.Content)
}

func TestSchema_CustomCatalog(t *testing.T) {
	cat, err := catalog.Load(strings.NewReader("types:\n  - id: 10\n    content: essay\n    tags:\n      - {id: 100, content: argument}\n"))
	require.NoError(t, err)

	r, err := New(context.Background(), ":memory:", cat)
	require.NoError(t, err)
	defer r.Close()

	view, err := r.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "essay", view[0].Content)
	assert.Equal(t, []int64{100}, tagIDsOf(view[0].Tags))
}

func TestSchema_UserKeysFollowSeededKeys(t *testing.T) {
	r := newTestRepo(t)
	id, err := r.Types().Add(context.Background(), "新题型")
	require.NoError(t, err)
	assert.Greater(t, id, int64(1011))

	tagID, err := r.Tags().Add(context.Background(), "新标签", id)
	require.NoError(t, err)
	assert.Greater(t, tagID, int64(2054))
}

func TestRepository_ClosedReportsUninitialized(t *testing.T) {
	r, err := New(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Types().GetAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUninitialized)
}

func TestRepository_StatsAndReset(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exam := mustAddExam(t, r, "期中", "")
	q := mustAddQuestion(t, r, exam, domain.Int64(1001), "q")
	mustAttach(t, r, q, 2001, 2002)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Exams: 1, Questions: 1, QuestionTypes: 10, QuestionTags: 54, Relations: 2}, *stats)

	require.NoError(t, r.Reset(ctx, nil))
	stats, err = r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, *stats)

	require.NoError(t, r.Reset(ctx, catalog.Default()))
	stats, err = r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.QuestionTypes)
	assert.Equal(t, 54, stats.QuestionTags)
	assert.Zero(t, stats.Exams)
}

func TestRepository_CatalogView(t *testing.T) {
	r := newTestRepo(t)
	view, err := r.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, view, 10)

	total := 0
	for _, entry := range view {
		for _, tag := range entry.Tags {
			assert.Equal(t, entry.ID, tag.TypeID)
		}
		total += len(entry.Tags)
	}
	assert.Equal(t, 54, total)
}
