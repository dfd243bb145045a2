package engine

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUninitialized is returned by Run before Open has succeeded or after Close.
	ErrUninitialized = errors.New("engine not initialized")
	// ErrConstraint reports a unique index violation.
	ErrConstraint = errors.New("constraint violation")
	// ErrReadOnly is returned for writes issued in a ReadOnly transaction.
	ErrReadOnly = errors.New("transaction is read-only")
	// ErrStoreNotInScope is returned when a store outside the transaction scope is used.
	ErrStoreNotInScope = errors.New("store not in transaction scope")
	// ErrUnknownStore is returned when a store name was never declared.
	ErrUnknownStore = errors.New("unknown store")
	// ErrUnknownIndex is returned when an index name was never declared on the store.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrTxDone is returned when a transaction handle is used after Run returned.
	ErrTxDone = errors.New("transaction already finished")
	// ErrNestedTransaction is returned when Run is called from inside another Run.
	ErrNestedTransaction = errors.New("nested transaction")
	// ErrInvalidSchema is returned by Open for malformed schema declarations.
	ErrInvalidSchema = errors.New("invalid schema")
)

// Error describes a failure that originated in the engine.
type Error struct {
	Op    string
	Store string
	Err   error
}

func (e *Error) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("engine: %s %s: %v", e.Op, e.Store, e.Err)
	}
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err is a unique index violation.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// wrap converts a driver error into an *Error, classifying constraint failures.
func wrap(op, store string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		err = fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return &Error{Op: op, Store: store, Err: err}
}
