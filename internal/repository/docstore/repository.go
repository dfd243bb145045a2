// Package docstore implements repository.Repository on top of the engine
// package. Every invariant a relational database would enforce (unique
// content, composite uniqueness, referential cascades, joins) is built here
// from store and index primitives.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"exambank/internal/catalog"
	"exambank/internal/domain"
	"exambank/internal/engine"
	"exambank/internal/repository"
)

// DefaultEnrichConcurrency bounds the number of questions enriched at once.
const DefaultEnrichConcurrency = 4

// Repository implements repository.Repository
type Repository struct {
	db                *engine.DB
	log               *zap.Logger
	now               func() time.Time
	enrichConcurrency int

	types     *typeRepo
	tags      *tagRepo
	exams     *examRepo
	questions *questionRepo
	relations *relationManager
}

var _ repository.Repository = (*Repository)(nil)

// Option configures a Repository
type Option func(*Repository)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithEnrichConcurrency bounds concurrent enrichment during search
func WithEnrichConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.enrichConcurrency = n
		}
	}
}

// New opens the database at path and applies the schema, seeding cat on
// first open. A nil cat seeds the embedded default catalog.
func New(ctx context.Context, path string, cat *catalog.Catalog, opts ...Option) (*Repository, error) {
	r := &Repository{
		log:               zap.NewNop(),
		now:               func() time.Time { return time.Now().UTC() },
		enrichConcurrency: DefaultEnrichConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if cat == nil {
		cat = catalog.Default()
	}

	db, err := engine.New(path, engine.WithLogger(r.log.Named("engine")))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEngineFailure, err)
	}
	if err := db.Open(ctx, schema(cat, r.now)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open schema: %w", translate(err))
	}
	r.db = db

	r.types = &typeRepo{r: r}
	r.tags = &tagRepo{r: r}
	r.exams = &examRepo{r: r}
	r.questions = &questionRepo{r: r}
	r.relations = &relationManager{r: r}

	r.log.Info("repository opened",
		zap.String("path", path),
		zap.Int("schema_version", db.Version()))
	return r, nil
}

// Types returns the question type repository
func (r *Repository) Types() repository.TypeRepository { return r.types }

// Tags returns the question tag repository
func (r *Repository) Tags() repository.TagRepository { return r.tags }

// Exams returns the exam repository
func (r *Repository) Exams() repository.ExamRepository { return r.exams }

// Questions returns the question repository
func (r *Repository) Questions() repository.QuestionRepository { return r.questions }

// Relations returns the relation manager
func (r *Repository) Relations() repository.RelationManager { return r.relations }

// Close releases the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) run(ctx context.Context, stores []string, mode engine.Mode, fn func(tx *engine.Tx) error) error {
	return translate(r.db.Run(ctx, stores, mode, fn))
}

func within[T any](ctx context.Context, r *Repository, stores []string, mode engine.Mode, fn func(tx *engine.Tx) (T, error)) (T, error) {
	v, err := engine.Within(ctx, r.db, stores, mode, fn)
	return v, translate(err)
}

// translate maps engine failures onto the domain error taxonomy. Domain
// errors raised inside a transaction pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrUninitialized):
		return fmt.Errorf("%w: %w", domain.ErrStorageUninitialized, err)
	case isDomainError(err):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrEngineFailure, err)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrDuplicateContent,
		domain.ErrValidationFailed,
		domain.ErrStorageUninitialized,
		domain.ErrEngineFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ============================================================================
// Views
// ============================================================================

// Catalog lists every type in key order with the tags it owns
func (r *Repository) Catalog(ctx context.Context) ([]domain.TypeWithTags, error) {
	return within(ctx, r, []string{storeTypes, storeTags}, engine.ReadOnly, func(tx *engine.Tx) ([]domain.TypeWithTags, error) {
		types, err := engine.All[domain.QuestionType](tx.Store(storeTypes))
		if err != nil {
			return nil, err
		}
		tags, err := engine.All[domain.QuestionTag](tx.Store(storeTags))
		if err != nil {
			return nil, err
		}
		byType := make(map[int64][]domain.QuestionTag)
		for _, tag := range tags {
			byType[tag.TypeID] = append(byType[tag.TypeID], tag)
		}
		out := make([]domain.TypeWithTags, 0, len(types))
		for _, t := range types {
			owned := byType[t.ID]
			if owned == nil {
				owned = []domain.QuestionTag{}
			}
			out = append(out, domain.TypeWithTags{QuestionType: t, Tags: owned})
		}
		return out, nil
	})
}

// Stats counts the rows of every store
func (r *Repository) Stats(ctx context.Context) (*domain.Stats, error) {
	return within(ctx, r, allStores, engine.ReadOnly, func(tx *engine.Tx) (*domain.Stats, error) {
		var s domain.Stats
		for _, c := range []struct {
			store string
			dst   *int
		}{
			{storeExams, &s.Exams},
			{storeQuestions, &s.Questions},
			{storeTypes, &s.QuestionTypes},
			{storeTags, &s.QuestionTags},
			{storeRelations, &s.Relations},
		} {
			n, err := tx.Store(c.store).Count()
			if err != nil {
				return nil, err
			}
			*c.dst = n
		}
		return &s, nil
	})
}

// Reset clears every store in one transaction. When cat is not nil the
// type and tag catalog is reseeded from it.
func (r *Repository) Reset(ctx context.Context, cat *catalog.Catalog) error {
	err := r.run(ctx, allStores, engine.ReadWrite, func(tx *engine.Tx) error {
		for _, name := range allStores {
			if err := tx.Store(name).Clear(); err != nil {
				return err
			}
		}
		if cat != nil {
			return seed(tx, cat, r.now())
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Info("database reset", zap.Bool("reseeded", cat != nil))
	return nil
}
