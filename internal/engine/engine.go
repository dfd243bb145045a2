package engine

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Mode selects whether a transaction may write.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "readonly"
}

// IndexSpec declares a secondary index over one or more document fields.
type IndexSpec struct {
	Name   string
	Fields []string
	Unique bool
}

// StoreSpec declares a store and its indexes.
type StoreSpec struct {
	Name    string
	Indexes []IndexSpec
}

// Schema is the full declaration applied by Open.
type Schema struct {
	Version int
	Stores  []StoreSpec
	// Upgrade runs after the stores are created, in the same transaction,
	// whenever the database version is lower than Version.
	Upgrade func(tx *Tx, oldVersion int) error
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (s Schema) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("%w: version must be positive", ErrInvalidSchema)
	}
	seen := make(map[string]bool)
	for _, st := range s.Stores {
		if !identRe.MatchString(st.Name) {
			return fmt.Errorf("%w: bad store name %q", ErrInvalidSchema, st.Name)
		}
		if seen[st.Name] {
			return fmt.Errorf("%w: duplicate store %q", ErrInvalidSchema, st.Name)
		}
		seen[st.Name] = true
		idx := make(map[string]bool)
		for _, ix := range st.Indexes {
			if !identRe.MatchString(ix.Name) || idx[ix.Name] || len(ix.Fields) == 0 {
				return fmt.Errorf("%w: bad index %q on %s", ErrInvalidSchema, ix.Name, st.Name)
			}
			idx[ix.Name] = true
			for _, f := range ix.Fields {
				if !identRe.MatchString(f) {
					return fmt.Errorf("%w: bad field %q in index %s.%s", ErrInvalidSchema, f, st.Name, ix.Name)
				}
			}
		}
	}
	return nil
}

// DB is an engine handle. One handle owns one underlying database.
type DB struct {
	sql *sql.DB
	log *zap.Logger

	mu      sync.RWMutex
	open    bool
	version int
	stores  map[string]StoreSpec
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.log = l
		}
	}
}

// New opens the SQLite database at path (":memory:" for an in-memory one).
// The engine is not usable until Open has applied a schema.
func New(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection makes the engine a single writer; it also keeps
	// an in-memory database alive for the lifetime of the handle.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := &DB{sql: sqlDB, log: zap.NewNop()}
	for _, opt := range opts {
		opt(db)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !isMemory(path) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db.log.Debug("engine handle opened", zap.String("path", path))
	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory") || strings.HasPrefix(path, "file::memory:")
}

// Open applies schema, creating stores and running the upgrade hook when
// the stored version is older. It marks the engine ready for Run.
func (db *DB) Open(ctx context.Context, schema Schema) error {
	if err := schema.validate(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var current int
	if err := db.sql.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return wrap("read version", "", err)
	}
	if current > schema.Version {
		return &Error{Op: "open", Err: fmt.Errorf("database version %d is newer than schema version %d", current, schema.Version)}
	}

	stores := make(map[string]StoreSpec, len(schema.Stores))
	for _, st := range schema.Stores {
		stores[st.Name] = st
	}

	if current < schema.Version {
		if err := db.upgrade(ctx, schema, stores, current); err != nil {
			return err
		}
		db.log.Info("schema upgraded",
			zap.Int("from_version", current),
			zap.Int("to_version", schema.Version),
			zap.Int("stores", len(stores)))
	}

	db.stores = stores
	db.version = schema.Version
	db.open = true
	return nil
}

func (db *DB) upgrade(ctx context.Context, schema Schema, stores map[string]StoreSpec, current int) error {
	sqlTx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin upgrade", "", err)
	}
	defer sqlTx.Rollback()

	for _, st := range schema.Stores {
		if _, err := sqlTx.ExecContext(ctx, createTableSQL(st)); err != nil {
			return wrap("create store", st.Name, err)
		}
		for _, ix := range st.Indexes {
			if _, err := sqlTx.ExecContext(ctx, createIndexSQL(st.Name, ix)); err != nil {
				return wrap("create index "+ix.Name, st.Name, err)
			}
		}
	}

	if schema.Upgrade != nil {
		tx := &Tx{
			ctx:   context.WithValue(ctx, txKey{}, db),
			sqlTx: sqlTx,
			mode:  ReadWrite,
			scope: stores,
		}
		err := tx.call(func() error { return schema.Upgrade(tx, current) })
		tx.done = true
		if err != nil {
			return err
		}
	}

	if _, err := sqlTx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schema.Version)); err != nil {
		return wrap("write version", "", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return wrap("commit upgrade", "", err)
	}
	return nil
}

func createTableSQL(st StoreSpec) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doc TEXT NOT NULL
	)`, st.Name)
}

func createIndexSQL(store string, ix IndexSpec) string {
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s__%s ON %s (%s)",
		unique, store, ix.Name, store, strings.Join(fieldExprs(ix.Fields), ", "))
}

func fieldExprs(fields []string) []string {
	exprs := make([]string, len(fields))
	for i, f := range fields {
		exprs[i] = fmt.Sprintf("json_extract(doc, '$.%s')", f)
	}
	return exprs
}

// Version returns the schema version applied by Open, or 0 before Open.
func (db *DB) Version() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.version
}

// Close releases the handle. Subsequent Run calls fail with ErrUninitialized.
func (db *DB) Close() error {
	db.mu.Lock()
	db.open = false
	db.mu.Unlock()
	return db.sql.Close()
}

type txKey struct{}

// Run executes fn inside one transaction scoped to stores. The transaction
// commits if fn returns nil and rolls back otherwise; a panic inside fn is
// recovered and reported as an error. Errors returned by fn are passed
// through unchanged.
func (db *DB) Run(ctx context.Context, stores []string, mode Mode, fn func(tx *Tx) error) error {
	if db == nil {
		return ErrUninitialized
	}
	if owner, ok := ctx.Value(txKey{}).(*DB); ok && owner == db {
		return &Error{Op: "begin", Err: ErrNestedTransaction}
	}

	db.mu.RLock()
	if !db.open {
		db.mu.RUnlock()
		return ErrUninitialized
	}
	scope := make(map[string]StoreSpec, len(stores))
	for _, name := range stores {
		spec, ok := db.stores[name]
		if !ok {
			db.mu.RUnlock()
			return &Error{Op: "begin", Store: name, Err: ErrUnknownStore}
		}
		scope[name] = spec
	}
	db.mu.RUnlock()

	sqlTx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin", "", err)
	}

	tx := &Tx{
		ctx:   context.WithValue(ctx, txKey{}, db),
		sqlTx: sqlTx,
		mode:  mode,
		scope: scope,
	}
	err = tx.call(func() error { return fn(tx) })
	tx.done = true
	if err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return wrap("commit", "", err)
	}
	return nil
}

// Within is Run for operations that produce a value.
func Within[T any](ctx context.Context, db *DB, stores []string, mode Mode, fn func(tx *Tx) (T, error)) (T, error) {
	var out T
	err := db.Run(ctx, stores, mode, func(tx *Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
