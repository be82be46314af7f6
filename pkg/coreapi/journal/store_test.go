package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/coreapi/pkg/coreapi/journal"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) journal.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Append_and_List", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		rec := journal.NewFailureRecord("context.started.web.request", "appsec", errors.New("boom"))
		require.NoError(t, store.Append(ctx, rec))

		records, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, rec.ID, records[0].ID)
		assert.Equal(t, "context.started.web.request", records[0].Channel)
		assert.Equal(t, "appsec", records[0].Listener)
		assert.Equal(t, "boom", records[0].Message)
	})

	t.Run(name+"/List_NewestFirst", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		older := journal.NewFailureRecord("ch", "l1", errors.New("first"))
		older.OccurredAt = time.Now().UTC().Add(-time.Hour)
		newer := journal.NewFailureRecord("ch", "l2", errors.New("second"))

		require.NoError(t, store.Append(ctx, older))
		require.NoError(t, store.Append(ctx, newer))

		records, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "second", records[0].Message)
		assert.Equal(t, "first", records[1].Message)
	})

	t.Run(name+"/List_Limit", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch", "l", errors.New("e"))))
		}

		records, err := store.List(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run(name+"/ListByChannel", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch.a", "l", errors.New("a"))))
		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch.b", "l", errors.New("b"))))
		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch.a", "l", errors.New("a2"))))

		records, err := store.ListByChannel(ctx, "ch.a", 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, "ch.a", rec.Channel)
		}

		records, err = store.ListByChannel(ctx, "ch.missing", 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run(name+"/Count", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch.a", "l", errors.New("a"))))
		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch.b", "l", errors.New("b"))))

		count, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		byChannel, err := store.CountByChannel(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"ch.a": 1, "ch.b": 1}, byChannel)
	})

	t.Run(name+"/Prune", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		stale := journal.NewFailureRecord("ch", "l", errors.New("stale"))
		stale.OccurredAt = time.Now().UTC().Add(-48 * time.Hour)
		fresh := journal.NewFailureRecord("ch", "l", errors.New("fresh"))

		require.NoError(t, store.Append(ctx, stale))
		require.NoError(t, store.Append(ctx, fresh))

		removed, err := store.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		records, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "fresh", records[0].Message)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Append(ctx, journal.NewFailureRecord("ch", "l", errors.New("e")))
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		_, err = store.List(ctx, 0)
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		_, err = store.Count(ctx)
		assert.ErrorIs(t, err, journal.ErrStoreClosed)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContractTest(t, "memory", func(t *testing.T) journal.Store {
		return journal.NewMemoryStore(journal.MemoryStoreConfig{})
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	storeContractTest(t, "sqlite", func(t *testing.T) journal.Store {
		store, err := journal.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore(journal.MemoryStoreConfig{MaxSize: 2})
	defer store.Close()

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch", "l", errors.New(msg))))
	}

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].Message)
	assert.Equal(t, "second", records[1].Message)
}

func TestNewFailureRecord(t *testing.T) {
	rec := journal.NewFailureRecord("ch", "listener-1", errors.New("boom"))

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "ch", rec.Channel)
	assert.Equal(t, "listener-1", rec.Listener)
	assert.Equal(t, "boom", rec.Message)
	assert.False(t, rec.OccurredAt.IsZero())

	// A nil error produces an empty message, not a panic.
	rec = journal.NewFailureRecord("ch", "listener-1", nil)
	assert.Empty(t, rec.Message)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/failures.db"

	store, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, journal.NewFailureRecord("ch", "l", errors.New("persisted"))))
	require.NoError(t, store.Close())

	reopened, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
