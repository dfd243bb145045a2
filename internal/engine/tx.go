package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tx is a transaction scoped to a fixed set of stores. It is valid only
// inside the operation passed to Run and is not safe for concurrent use.
type Tx struct {
	ctx   context.Context
	sqlTx *sql.Tx
	mode  Mode
	scope map[string]StoreSpec
	done  bool
}

// Context returns the context the transaction runs under. Passing it to Run
// from inside the operation is detected and rejected.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Mode reports whether the transaction may write.
func (tx *Tx) Mode() Mode {
	return tx.mode
}

func (tx *Tx) call(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Op: "transaction", Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return fn()
}

// Store returns a handle for the named store. A store outside the
// transaction scope yields a handle whose operations all fail.
func (tx *Tx) Store(name string) *Store {
	spec, ok := tx.scope[name]
	if !ok {
		return &Store{tx: tx, spec: StoreSpec{Name: name}, err: &Error{Op: "store", Store: name, Err: ErrStoreNotInScope}}
	}
	return &Store{tx: tx, spec: spec}
}

// Store is a handle on one store inside a transaction.
type Store struct {
	tx   *Tx
	spec StoreSpec
	err  error
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.spec.Name
}

func (s *Store) check(op string, write bool) error {
	if s.err != nil {
		return s.err
	}
	if s.tx.done {
		return &Error{Op: op, Store: s.spec.Name, Err: ErrTxDone}
	}
	if write && s.tx.mode != ReadWrite {
		return &Error{Op: op, Store: s.spec.Name, Err: ErrReadOnly}
	}
	return nil
}

// Add inserts v under a newly assigned key and returns the key. The key is
// written into the stored document as "id".
func (s *Store) Add(v any) (int64, error) {
	if err := s.check("add", true); err != nil {
		return 0, err
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return 0, &Error{Op: "encode", Store: s.spec.Name, Err: err}
	}
	res, err := s.tx.sqlTx.ExecContext(s.tx.ctx,
		fmt.Sprintf("INSERT INTO %s (doc) VALUES (?)", s.spec.Name), string(doc))
	if err != nil {
		return 0, wrap("add", s.spec.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("add", s.spec.Name, err)
	}
	if _, err := s.tx.sqlTx.ExecContext(s.tx.ctx,
		fmt.Sprintf("UPDATE %s SET doc = json_set(doc, '$.id', ?) WHERE id = ?", s.spec.Name), id, id); err != nil {
		return 0, wrap("add", s.spec.Name, err)
	}
	return id, nil
}

// Put inserts or replaces the document stored under id.
func (s *Store) Put(id int64, v any) error {
	if err := s.check("put", true); err != nil {
		return err
	}
	if id <= 0 {
		return &Error{Op: "put", Store: s.spec.Name, Err: fmt.Errorf("invalid key %d", id)}
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "encode", Store: s.spec.Name, Err: err}
	}
	_, err = s.tx.sqlTx.ExecContext(s.tx.ctx, fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES (?, json_set(?, '$.id', ?))
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, s.spec.Name), id, string(doc), id)
	if err != nil {
		return wrap("put", s.spec.Name, err)
	}
	return nil
}

// Get decodes the document stored under id into v. It reports false when
// no document exists.
func (s *Store) Get(id int64, v any) (bool, error) {
	if err := s.check("get", false); err != nil {
		return false, err
	}
	var doc string
	err := s.tx.sqlTx.QueryRowContext(s.tx.ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", s.spec.Name), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", s.spec.Name, err)
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return false, &Error{Op: "decode", Store: s.spec.Name, Err: err}
	}
	return true, nil
}

// GetMany returns the raw documents for the given keys. Missing keys are
// absent from the map.
func (s *Store) GetMany(ids []int64) (map[int64]json.RawMessage, error) {
	if err := s.check("get", false); err != nil {
		return nil, err
	}
	out := make(map[int64]json.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		marks[i] = "?"
	}
	rows, err := s.tx.sqlTx.QueryContext(s.tx.ctx, fmt.Sprintf(
		"SELECT id, doc FROM %s WHERE id IN (%s)", s.spec.Name, strings.Join(marks, ", ")), args...)
	if err != nil {
		return nil, wrap("get", s.spec.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			doc string
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, wrap("get", s.spec.Name, err)
		}
		out[id] = json.RawMessage(doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get", s.spec.Name, err)
	}
	return out, nil
}

// Delete removes the document under id and reports whether one existed.
// Deleting a missing key is not an error.
func (s *Store) Delete(id int64) (bool, error) {
	if err := s.check("delete", true); err != nil {
		return false, err
	}
	res, err := s.tx.sqlTx.ExecContext(s.tx.ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.spec.Name), id)
	if err != nil {
		return false, wrap("delete", s.spec.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete", s.spec.Name, err)
	}
	return n > 0, nil
}

// Clear removes every document. The key generator is not reset.
func (s *Store) Clear() error {
	if err := s.check("clear", true); err != nil {
		return err
	}
	if _, err := s.tx.sqlTx.ExecContext(s.tx.ctx, fmt.Sprintf("DELETE FROM %s", s.spec.Name)); err != nil {
		return wrap("clear", s.spec.Name, err)
	}
	return nil
}

// Count returns the number of documents in the store.
func (s *Store) Count() (int, error) {
	if err := s.check("count", false); err != nil {
		return 0, err
	}
	var n int
	if err := s.tx.sqlTx.QueryRowContext(s.tx.ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", s.spec.Name)).Scan(&n); err != nil {
		return 0, wrap("count", s.spec.Name, err)
	}
	return n, nil
}

// Scan calls fn for every document in key order.
func (s *Store) Scan(fn func(doc json.RawMessage) error) error {
	if err := s.check("scan", false); err != nil {
		return err
	}
	return s.scan("scan", fmt.Sprintf("SELECT doc FROM %s ORDER BY id", s.spec.Name), nil, fn)
}

func (s *Store) scan(op, query string, args []any, fn func(doc json.RawMessage) error) error {
	rows, err := s.tx.sqlTx.QueryContext(s.tx.ctx, query, args...)
	if err != nil {
		return wrap(op, s.spec.Name, err)
	}
	defer rows.Close()

	// Documents are buffered so fn may issue further statements on the
	// same connection.
	var docs []json.RawMessage
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return wrap(op, s.spec.Name, err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return wrap(op, s.spec.Name, err)
	}
	rows.Close()

	for _, doc := range docs {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// Index returns a handle on the named index of the store.
func (s *Store) Index(name string) *Index {
	ix := &Index{store: s, err: s.err}
	for _, spec := range s.spec.Indexes {
		if spec.Name == name {
			ix.spec = spec
			return ix
		}
	}
	if ix.err == nil {
		ix.err = &Error{Op: "index", Store: s.spec.Name, Err: fmt.Errorf("%w: %s", ErrUnknownIndex, name)}
	}
	return ix
}

// Index is a handle on a secondary index. Keys are matched by equality on
// every indexed field, in declaration order.
type Index struct {
	store *Store
	spec  IndexSpec
	err   error
}

func (ix *Index) where(key []any) (string, error) {
	if ix.err != nil {
		return "", ix.err
	}
	if len(key) != len(ix.spec.Fields) {
		return "", &Error{Op: "index " + ix.spec.Name, Store: ix.store.spec.Name,
			Err: fmt.Errorf("key has %d parts, index has %d fields", len(key), len(ix.spec.Fields))}
	}
	exprs := fieldExprs(ix.spec.Fields)
	for i := range exprs {
		exprs[i] += " = ?"
	}
	return strings.Join(exprs, " AND "), nil
}

// Get decodes the first document matching key into v.
func (ix *Index) Get(v any, key ...any) (bool, error) {
	found := false
	err := ix.scan("index get", " LIMIT 1", key, func(doc json.RawMessage) error {
		found = true
		if err := json.Unmarshal(doc, v); err != nil {
			return &Error{Op: "decode", Store: ix.store.spec.Name, Err: err}
		}
		return nil
	})
	return found, err
}

// Scan calls fn for every document matching key, in key order.
func (ix *Index) Scan(fn func(doc json.RawMessage) error, key ...any) error {
	return ix.scan("index scan", "", key, fn)
}

func (ix *Index) scan(op, suffix string, key []any, fn func(doc json.RawMessage) error) error {
	if err := ix.store.check(op, false); err != nil {
		return err
	}
	cond, err := ix.where(key)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s ORDER BY id%s", ix.store.spec.Name, cond, suffix)
	return ix.store.scan(op, query, key, fn)
}

// Keys returns the primary keys of every document matching key.
func (ix *Index) Keys(key ...any) ([]int64, error) {
	if err := ix.store.check("index keys", false); err != nil {
		return nil, err
	}
	cond, err := ix.where(key)
	if err != nil {
		return nil, err
	}
	rows, err := ix.store.tx.sqlTx.QueryContext(ix.store.tx.ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE %s ORDER BY id", ix.store.spec.Name, cond), key...)
	if err != nil {
		return nil, wrap("index keys", ix.store.spec.Name, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("index keys", ix.store.spec.Name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("index keys", ix.store.spec.Name, err)
	}
	return ids, nil
}

// Count returns the number of documents matching key.
func (ix *Index) Count(key ...any) (int, error) {
	if err := ix.store.check("index count", false); err != nil {
		return 0, err
	}
	cond, err := ix.where(key)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ix.store.tx.sqlTx.QueryRowContext(ix.store.tx.ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", ix.store.spec.Name, cond), key...).Scan(&n); err != nil {
		return 0, wrap("index count", ix.store.spec.Name, err)
	}
	return n, nil
}
