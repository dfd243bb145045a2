package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"exambank/internal/codec"
	"exambank/internal/domain"
)

const (
	// ProcessedDir receives files that were ingested
	ProcessedDir = "processed"
	// FailedDir receives rejected files, each with a .error note
	FailedDir = "failed"
)

// Ingester stores one analysis payload as a new exam
type Ingester interface {
	IngestFrom(ctx context.Context, examName, description string, r io.Reader, imp codec.Importer) (*domain.IngestResult, error)
}

// Inbox ingests analysis files dropped into a directory. Each file becomes
// an exam named after the file, without its extension.
type Inbox struct {
	dir      string
	ingester Ingester
	debounce time.Duration
	log      *zap.Logger
}

// NewInbox creates an inbox over dir. log may be nil.
func NewInbox(dir string, ingester Ingester, log *zap.Logger) *Inbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{
		dir:      dir,
		ingester: ingester,
		debounce: 500 * time.Millisecond,
		log:      log,
	}
}

// WithDebounce sets how long a file must stay quiet before ingestion
func (in *Inbox) WithDebounce(d time.Duration) *Inbox {
	in.debounce = d
	return in
}

// Run processes the inbox until ctx is cancelled
func (in *Inbox) Run(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(in.dir, sub), 0755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}
	return New(in.dir, IsAnalysisFile, in.Process).
		WithDebounce(in.debounce).
		WithLogger(in.log).
		Watch(ctx)
}

// Process ingests one file and moves it out of the inbox. A file whose
// ingestion is cut short by ctx stays in place.
func (in *Inbox) Process(ctx context.Context, path string) {
	name := filepath.Base(path)
	examName := strings.TrimSuffix(name, filepath.Ext(name))

	res, err := in.ingest(ctx, path, examName)
	if err != nil && interrupted(ctx, err) {
		in.log.Info("inbox file left for the next run", zap.String("file", name), zap.Error(err))
		return
	}
	if err != nil {
		in.log.Warn("inbox file rejected", zap.String("file", name), zap.Error(err))
		dest := in.move(path, FailedDir)
		if dest != "" {
			note := []byte(err.Error() + "\n")
			if werr := os.WriteFile(dest+".error", note, 0644); werr != nil {
				in.log.Warn("failed to write error note", zap.String("file", name), zap.Error(werr))
			}
		}
		return
	}

	in.log.Info("inbox file ingested",
		zap.String("file", name),
		zap.Int64("exam_id", res.ExamID),
		zap.Int("questions", res.TotalQuestions))
	in.move(path, ProcessedDir)
}

func (in *Inbox) ingest(ctx context.Context, path, examName string) (*domain.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return in.ingester.IngestFrom(ctx, examName, "", f, codec.ForPath(path))
}

// interrupted reports whether err comes from ctx ending rather than from
// the file itself
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// move renames path into sub, keeping an existing file of the same name
func (in *Inbox) move(path, sub string) string {
	name := filepath.Base(path)
	dest := filepath.Join(in.dir, sub, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(in.dir, sub,
			fmt.Sprintf("%s.%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		in.log.Error("failed to move inbox file", zap.String("file", name), zap.String("to", sub), zap.Error(err))
		return ""
	}
	return dest
}

// IsAnalysisFile reports whether name looks like an analysis payload
func IsAnalysisFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
