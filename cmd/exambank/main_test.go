package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exambank/internal/domain"
)

// testEnv writes a config pointing at a fresh database file
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "database:\n  path: " + filepath.Join(dir, "bank.db") + "\nlog:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, args...)
	require.NoError(t, err, "exambank %s", strings.Join(args, " "))
	return out
}

const analysis = `Here is the classification:
{"questions":[
  {"content":"阅读下面的文字","type_id":1001,"tag_ids":[2001,2002]},
  {"content":"古诗鉴赏","type_id":1006,"tag_ids":[2030]}
]}`

func TestIngestSearchDelete(t *testing.T) {
	cfg := testEnv(t)
	file := filepath.Join(filepath.Dir(cfg), "analysis.txt")
	require.NoError(t, os.WriteFile(file, []byte(analysis), 0644))

	var res domain.IngestResult
	out := mustRun(t, cfg, "ingest", file, "--exam", "2024 期中", "--description", "语文")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.TotalQuestions)

	var found []domain.EnrichedQuestion
	out = mustRun(t, cfg, "search", "--tag", "2030")
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "古诗鉴赏", found[0].Content)
	assert.Equal(t, "2024 期中", found[0].ExamInfo.Name)

	out = mustRun(t, cfg, "search", "--exam", "期中", "--type", "1001", "--all", "--format", "yaml")
	assert.Contains(t, out, "阅读下面的文字")
	assert.NotContains(t, out, "古诗鉴赏")

	out = mustRun(t, cfg, "stats")
	assert.Regexp(t, `questions\s+2`, out)
	assert.Regexp(t, `question_tag_relations\s+3`, out)

	var cascade domain.ExamCascadeResult
	out = mustRun(t, cfg, "delete", "exam", strconv.FormatInt(res.ExamID, 10))
	require.NoError(t, json.Unmarshal([]byte(out), &cascade))
	assert.Equal(t, 2, cascade.QuestionsDeleted)
	assert.Equal(t, 3, cascade.RelationsDeleted)

	_, err := run(t, cfg, "delete", "exam", strconv.FormatInt(res.ExamID, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mustRun(t, cfg, "check")
}

func TestIngestRejectsUnknownTag(t *testing.T) {
	cfg := testEnv(t)
	file := filepath.Join(filepath.Dir(cfg), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("questions:\n  - content: q\n    type_id: 1001\n    tag_ids: [2999]\n"), 0644))

	_, err := run(t, cfg, "ingest", file, "--exam", "x")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	out := mustRun(t, cfg, "stats")
	assert.Regexp(t, `exams\s+0`, out)
}

func TestManualEditing(t *testing.T) {
	cfg := testEnv(t)

	examID := strings.TrimSpace(mustRun(t, cfg, "exams", "add", "月考"))
	qID := strings.TrimSpace(mustRun(t, cfg, "questions", "add", "作文题", "--exam", examID, "--type", "1011"))

	out := mustRun(t, cfg, "attach", qID, "2053", "2054")
	assert.Equal(t, 2, strings.Count(out, "attached"))
	out = mustRun(t, cfg, "detach", qID, "2054", "2001")
	assert.Contains(t, out, "tag 2054 detached")
	assert.Contains(t, out, "tag 2001 was not attached")

	mustRun(t, cfg, "questions", "update", qID, "--clear-type")
	var q struct {
		domain.Question
		Tags []domain.QuestionTag `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfg, "questions", "show", qID)), &q))
	assert.Nil(t, q.TypeID)
	require.Len(t, q.Tags, 1)
	assert.Equal(t, int64(2053), q.Tags[0].ID)

	out = mustRun(t, cfg, "exams", "list", "--search", "月")
	assert.Contains(t, out, "月考")

	_, err := run(t, cfg, "types", "add", "  ")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = run(t, cfg, "tags", "add", "新标签", "--type", "1007")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = run(t, cfg, "delete", "widget", "1")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	cfg := testEnv(t)

	_, err := run(t, cfg, "reset")
	assert.Error(t, err)

	mustRun(t, cfg, "reset", "--yes")
	out := mustRun(t, cfg, "stats")
	assert.Regexp(t, `question_types\s+0`, out)

	mustRun(t, cfg, "reset", "--yes", "--reseed")
	out = mustRun(t, cfg, "stats")
	assert.Regexp(t, `question_types\s+10`, out)
	assert.Regexp(t, `question_tags\s+54`, out)

	out = mustRun(t, cfg, "catalog")
	assert.Contains(t, out, "信息类阅读")
}

func TestConfigShowUsesFlags(t *testing.T) {
	cfg := testEnv(t)
	out := mustRun(t, cfg, "--db", ":memory:", "config", "show")
	assert.Contains(t, out, "source: "+cfg)
	assert.Contains(t, out, "database=:memory:")
}
