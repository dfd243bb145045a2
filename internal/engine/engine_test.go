package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================================================
// Test Helpers
// ============================================================================

type item struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Group int64  `json:"group"`
	Kind  string `json:"kind"`
}

var testSchema = Schema{
	Version: 1,
	Stores: []StoreSpec{
		{Name: "items", Indexes: []IndexSpec{
			{Name: "name", Fields: []string{"name"}, Unique: true},
			{Name: "group", Fields: []string{"group"}},
			{Name: "group_kind", Fields: []string{"group", "kind"}, Unique: true},
		}},
		{Name: "notes"},
	},
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Open(context.Background(), testSchema))
	return db
}

func addItem(t *testing.T, db *DB, it item) int64 {
	t.Helper()
	id, err := Within(context.Background(), db, []string{"items"}, ReadWrite, func(tx *Tx) (int64, error) {
		return tx.Store("items").Add(it)
	})
	require.NoError(t, err)
	return id
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestRun_BeforeOpen(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestRun_AfterClose(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Open(context.Background(), testSchema))
	require.NoError(t, db.Close())

	err = db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestOpen_InvalidSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"zero version", Schema{Version: 0}},
		{"bad store name", Schema{Version: 1, Stores: []StoreSpec{{Name: "Bad-Name"}}}},
		{"duplicate store", Schema{Version: 1, Stores: []StoreSpec{{Name: "a"}, {Name: "a"}}}},
		{"index without fields", Schema{Version: 1, Stores: []StoreSpec{{Name: "a", Indexes: []IndexSpec{{Name: "x"}}}}}},
		{"bad field", Schema{Version: 1, Stores: []StoreSpec{{Name: "a", Indexes: []IndexSpec{{Name: "x", Fields: []string{"a'b"}}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(":memory:")
			require.NoError(t, err)
			defer db.Close()
			assert.ErrorIs(t, db.Open(context.Background(), tt.schema), ErrInvalidSchema)
		})
	}
}

func TestOpen_UpgradeRunsOncePerVersion(t *testing.T) {
	path := t.TempDir() + "/engine.db"
	calls := 0
	schema := testSchema
	schema.Upgrade = func(tx *Tx, old int) error {
		calls++
		assert.Equal(t, 0, old)
		_, err := tx.Store("items").Add(item{Name: "seed"})
		return err
	}

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Open(context.Background(), schema))
	assert.Equal(t, 1, db.Version())
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Open(context.Background(), schema))
	assert.Equal(t, 1, calls)

	n, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) (int, error) {
		return tx.Store("items").Count()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_FailedUpgradeLeavesNoStores(t *testing.T) {
	path := t.TempDir() + "/engine.db"
	schema := testSchema
	schema.Upgrade = func(tx *Tx, old int) error {
		if _, err := tx.Store("items").Add(item{Name: "partial"}); err != nil {
			return err
		}
		return errors.New("seed failed")
	}

	db, err := New(path)
	require.NoError(t, err)
	require.Error(t, db.Open(context.Background(), schema))
	assert.Equal(t, 0, db.Version())
	err = db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, ErrUninitialized)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Open(context.Background(), testSchema))
	n, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) (int, error) {
		return tx.Store("items").Count()
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_NewerDatabaseRejected(t *testing.T) {
	path := t.TempDir() + "/engine.db"
	db, err := New(path)
	require.NoError(t, err)
	schema := testSchema
	schema.Version = 3
	require.NoError(t, db.Open(context.Background(), schema))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, db.Open(context.Background(), testSchema))
}

// ============================================================================
// Transactions
// ============================================================================

func TestRun_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	err := db.Run(context.Background(), []string{"items"}, ReadWrite, func(tx *Tx) error {
		if _, err := tx.Store("items").Add(item{Name: "a"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) (int, error) {
		return tx.Store("items").Count()
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	db := newTestDB(t)

	err := db.Run(context.Background(), []string{"items"}, ReadWrite, func(tx *Tx) error {
		_, _ = tx.Store("items").Add(item{Name: "a"})
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	n, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) (int, error) {
		return tx.Store("items").Count()
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_Nested(t *testing.T) {
	db := newTestDB(t)

	err := db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error {
		return db.Run(tx.Context(), []string{"items"}, ReadOnly, func(*Tx) error { return nil })
	})
	assert.ErrorIs(t, err, ErrNestedTransaction)
}

func TestRun_UnknownStore(t *testing.T) {
	db := newTestDB(t)
	err := db.Run(context.Background(), []string{"missing"}, ReadOnly, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestRun_CancelledContext(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.Run(ctx, []string{"items"}, ReadWrite, func(tx *Tx) error {
		_, err := tx.Store("items").Add(item{Name: "a"})
		return err
	})
	assert.Error(t, err)
}

func TestStore_ScopeAndMode(t *testing.T) {
	db := newTestDB(t)

	err := db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error {
		_, err := tx.Store("items").Add(item{Name: "a"})
		assert.ErrorIs(t, err, ErrReadOnly)

		_, err = tx.Store("notes").Count()
		assert.ErrorIs(t, err, ErrStoreNotInScope)

		_, err = tx.Store("items").Index("nope").Keys(1)
		assert.ErrorIs(t, err, ErrUnknownIndex)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UseAfterRun(t *testing.T) {
	db := newTestDB(t)

	var leaked *Store
	require.NoError(t, db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error {
		leaked = tx.Store("items")
		return nil
	}))
	_, err := leaked.Count()
	assert.ErrorIs(t, err, ErrTxDone)
}

// ============================================================================
// Store Operations
// ============================================================================

func TestStore_AddGetPutDelete(t *testing.T) {
	db := newTestDB(t)
	id := addItem(t, db, item{Name: "alpha", Group: 1, Kind: "x"})
	assert.Positive(t, id)

	err := db.Run(context.Background(), []string{"items"}, ReadWrite, func(tx *Tx) error {
		s := tx.Store("items")

		got, err := Fetch[item](s, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, item{ID: id, Name: "alpha", Group: 1, Kind: "x"}, *got)

		require.NoError(t, s.Put(id, item{Name: "beta", Group: 2, Kind: "x"}))
		got, err = Fetch[item](s, id)
		require.NoError(t, err)
		assert.Equal(t, "beta", got.Name)
		assert.Equal(t, id, got.ID)

		existed, err := s.Delete(id)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = s.Delete(id)
		require.NoError(t, err)
		assert.False(t, existed)

		got, err = Fetch[item](s, id)
		require.NoError(t, err)
		assert.Nil(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_KeysAreNotReused(t *testing.T) {
	db := newTestDB(t)
	first := addItem(t, db, item{Name: "a"})
	require.NoError(t, db.Run(context.Background(), []string{"items"}, ReadWrite, func(tx *Tx) error {
		return tx.Store("items").Clear()
	}))
	second := addItem(t, db, item{Name: "a"})
	assert.Greater(t, second, first)
}

func TestStore_UniqueIndexViolation(t *testing.T) {
	db := newTestDB(t)
	addItem(t, db, item{Name: "dup", Group: 1, Kind: "a"})

	_, err := Within(context.Background(), db, []string{"items"}, ReadWrite, func(tx *Tx) (int64, error) {
		return tx.Store("items").Add(item{Name: "dup", Group: 2, Kind: "a"})
	})
	require.Error(t, err)
	assert.True(t, IsConstraint(err))

	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "items", engErr.Store)
}

func TestStore_CompoundUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	addItem(t, db, item{Name: "a", Group: 1, Kind: "k"})
	addItem(t, db, item{Name: "b", Group: 1, Kind: "j"})

	_, err := Within(context.Background(), db, []string{"items"}, ReadWrite, func(tx *Tx) (int64, error) {
		return tx.Store("items").Add(item{Name: "c", Group: 1, Kind: "k"})
	})
	assert.True(t, IsConstraint(err))
}

// ============================================================================
// Index Operations
// ============================================================================

func TestIndex_Lookups(t *testing.T) {
	db := newTestDB(t)
	a := addItem(t, db, item{Name: "a", Group: 1, Kind: "x"})
	b := addItem(t, db, item{Name: "b", Group: 2, Kind: "x"})
	c := addItem(t, db, item{Name: "c", Group: 1, Kind: "y"})

	err := db.Run(context.Background(), []string{"items"}, ReadOnly, func(tx *Tx) error {
		s := tx.Store("items")

		keys, err := s.Index("group").Keys(int64(1))
		require.NoError(t, err)
		assert.Equal(t, []int64{a, c}, keys)

		n, err := s.Index("group").Count(int64(2))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := Lookup[item](s.Index("name"), "b")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b, got.ID)

		got, err = Lookup[item](s.Index("group_kind"), int64(1), "y")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c, got.ID)

		missing, err := Lookup[item](s.Index("name"), "zzz")
		require.NoError(t, err)
		assert.Nil(t, missing)

		items, err := AllByIndex[item](s.Index("group"), int64(1))
		require.NoError(t, err)
		assert.Len(t, items, 2)

		_, err = s.Index("group_kind").Keys(int64(1))
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestJoin_PreservesOrderAndSkipsMissing(t *testing.T) {
	db := newTestDB(t)
	a := addItem(t, db, item{Name: "a", Kind: "a"})
	b := addItem(t, db, item{Name: "b", Kind: "b"})
	c := addItem(t, db, item{Name: "c", Kind: "c"})

	got, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) ([]item, error) {
		return Join[item](tx.Store("items"), []int64{c, 9999, a, b})
	})
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, it := range got {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestAll_KeyOrder(t *testing.T) {
	db := newTestDB(t)
	for _, n := range []string{"z", "m", "a"} {
		addItem(t, db, item{Name: n, Kind: n})
	}
	got, err := Within(context.Background(), db, []string{"items"}, ReadOnly, func(tx *Tx) ([]item, error) {
		return All[item](tx.Store("items"))
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "z", got[0].Name)
	assert.Equal(t, "a", got[2].Name)
}
