package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exambank/internal/codec"
	"exambank/internal/domain"
	"exambank/internal/repository/docstore"
	"exambank/internal/service"
)

type fakeIngester struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeIngester) IngestFrom(_ context.Context, examName, _ string, r io.Reader, imp codec.Importer) (*domain.IngestResult, error) {
	f.mu.Lock()
	f.names = append(f.names, examName)
	f.mu.Unlock()
	analysis, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}
	return &domain.IngestResult{ExamID: 1, TotalQuestions: len(analysis.Questions)}, nil
}

func (f *fakeIngester) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func startInbox(t *testing.T, dir string, ing Ingester) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewInbox(dir, ing, nil).WithDebounce(20 * time.Millisecond).Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestIsAnalysisFile(t *testing.T) {
	assert.True(t, IsAnalysisFile("期中.json"))
	assert.True(t, IsAnalysisFile("final.YML"))
	assert.False(t, IsAnalysisFile(".draft.json"))
	assert.False(t, IsAnalysisFile("notes.txt"))
	assert.False(t, IsAnalysisFile(ProcessedDir))
}

func TestInbox_ProcessesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.json"), []byte(`{"questions":[]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))

	ing := &fakeIngester{}
	startInbox(t, dir, ing)

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "early.json"))
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.yaml"), []byte("questions: []\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("nope"), 0644))

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "late.yaml")) &&
			exists(filepath.Join(dir, FailedDir, "broken.json.error"))
	}, 5*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{"early", "late", "broken"}, ing.seen())
	assert.True(t, exists(filepath.Join(dir, "ignored.txt")))
	assert.False(t, exists(filepath.Join(dir, "broken.json")))
}

func TestInbox_IngestsIntoRepository(t *testing.T) {
	repo, err := docstore.New(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	svc := service.NewExamService(repo, nil, nil)

	dir := t.TempDir()
	payload := `{"questions":[{"content":"静夜思","type_id":1006,"tag_ids":[2030]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024 月考.json"), []byte(payload), 0644))
	startInbox(t, dir, svc)

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "2024 月考.json"))
	}, 5*time.Second, 10*time.Millisecond)

	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, "2024 月考", exams[0].Name)
}

func TestInbox_CancelledIngestLeavesFile(t *testing.T) {
	repo, err := docstore.New(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	svc := service.NewExamService(repo, nil, nil)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProcessedDir), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, FailedDir), 0755))
	path := filepath.Join(dir, "valid.json")
	payload := `{"questions":[{"content":"阅读下面的文字","type_id":1001,"tag_ids":[2001]}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	in := NewInbox(dir, svc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in.Process(ctx, path)

	assert.True(t, exists(path))
	assert.False(t, exists(filepath.Join(dir, FailedDir, "valid.json")))
	assert.False(t, exists(filepath.Join(dir, FailedDir, "valid.json.error")))
	assert.False(t, exists(filepath.Join(dir, ProcessedDir, "valid.json")))

	// The next run picks the file up.
	in.Process(context.Background(), path)
	assert.True(t, exists(filepath.Join(dir, ProcessedDir, "valid.json")))
	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, "valid", exams[0].Name)
}

type deadlineIngester struct{}

func (deadlineIngester) IngestFrom(context.Context, string, string, io.Reader, codec.Importer) (*domain.IngestResult, error) {
	return nil, fmt.Errorf("engine failure: %w", context.DeadlineExceeded)
}

func TestInbox_DeadlineErrorLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"questions":[]}`), 0644))

	NewInbox(dir, deadlineIngester{}, nil).Process(context.Background(), path)
	assert.True(t, exists(path))
	assert.False(t, exists(filepath.Join(dir, FailedDir, "slow.json.error")))
}

func TestInbox_MoveKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProcessedDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProcessedDir, "a.json"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"questions":[]}`), 0644))

	in := NewInbox(dir, &fakeIngester{}, nil)
	in.Process(context.Background(), filepath.Join(dir, "a.json"))

	old, err := os.ReadFile(filepath.Join(dir, ProcessedDir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
	entries, err := os.ReadDir(filepath.Join(dir, ProcessedDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWatch_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), IsAnalysisFile, func(context.Context, string) {})
	err := w.Watch(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
