package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"exambank/internal/catalog"
	"exambank/internal/config"
	"exambank/internal/repository/docstore"
	"exambank/internal/service"
)

// app carries the state shared by every command of one invocation
type app struct {
	// Global flags
	configPath  string
	dbPath      string
	catalogPath string
	verbose     bool
	timeout     time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "exambank",
		Short: "Exam question bank with a typed tag catalog",
		Long: `exambank stores exams, their questions, and the question types and
tags that classify them. Analysed exams are ingested in one atomic step and
questions can be searched by exam name, type and tags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: search $EXAMBANK_CONFIG, ./exambank.yaml, ~/.config/exambank)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Database path (overrides database.path)")
	root.PersistentFlags().StringVar(&a.catalogPath, "catalog", "", "Seed catalog YAML (overrides catalog.path)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "Operation timeout (not applied to serve)")

	root.AddCommand(
		a.serveCmd(),
		a.ingestCmd(),
		a.searchCmd(),
		a.catalogCmd(),
		a.typesCmd(),
		a.tagsCmd(),
		a.examsCmd(),
		a.questionsCmd(),
		a.attachCmd(),
		a.detachCmd(),
		a.deleteCmd(),
		a.checkCmd(),
		a.repairCmd(),
		a.statsCmd(),
		a.resetCmd(),
		a.watchCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, _, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.catalogPath != "" {
		cfg.Catalog.Path = a.catalogPath
	}
	a.cfg = cfg

	level, err := cfg.ZapLevel()
	if err != nil {
		return err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if a.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// loadCatalog returns the configured seed catalog, or the embedded default
func (a *app) loadCatalog() (*catalog.Catalog, error) {
	if a.cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(a.cfg.Catalog.Path)
}

// open opens the repository and wraps it in a service; bus may be nil
func (a *app) open(ctx context.Context, bus *service.EventBus) (*service.ExamService, func(), error) {
	cat, err := a.loadCatalog()
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	repo, err := docstore.New(ctx, a.cfg.Database.Path, cat,
		docstore.WithLogger(a.logger.Named("docstore")),
		docstore.WithEnrichConcurrency(a.cfg.Search.EnrichConcurrency),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	a.logger.Debug("database opened", zap.String("path", a.cfg.Database.Path))

	svc := service.NewExamService(repo, bus, a.logger.Named("service"))
	closeFn := func() {
		if err := repo.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}

// withService runs fn against a freshly opened service under the timeout
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.ExamService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	svc, closeFn, err := a.open(ctx, nil)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
