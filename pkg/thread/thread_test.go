package thread

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AppendAndReadBack(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Create(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, id)

			require.NoError(t, store.Append(ctx, id, RoleUser, "suspicious login from 10.0.0.5"))
			require.NoError(t, store.Append(ctx, id, RoleAssistant, "[summary]\ninvestigating"))

			msgs, err := store.Messages(ctx, id)
			require.NoError(t, err)
			require.Len(t, msgs, 2)

			assert.Equal(t, RoleUser, msgs[0].Role)
			assert.Equal(t, "suspicious login from 10.0.0.5", msgs[0].Content)
			assert.Equal(t, RoleAssistant, msgs[1].Role)
			assert.Equal(t, id, msgs[1].ThreadID)
		})
	}
}

func TestStore_ThreadsAreIsolated(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			a, err := store.Create(ctx)
			require.NoError(t, err)
			b, err := store.Create(ctx)
			require.NoError(t, err)

			require.NoError(t, store.Append(ctx, a, RoleUser, "only in a"))

			msgsA, err := store.Messages(ctx, a)
			require.NoError(t, err)
			msgsB, err := store.Messages(ctx, b)
			require.NoError(t, err)

			assert.Len(t, msgsA, 1)
			assert.Empty(t, msgsB)
		})
	}
}

func TestStore_UnknownThread(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Append(ctx, "no-such-thread", RoleUser, "hello")
			assert.ErrorIs(t, err, ErrThreadNotFound)

			_, err = store.Messages(ctx, "no-such-thread")
			assert.ErrorIs(t, err, ErrThreadNotFound)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "threads.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, id, RoleUser, "persisted"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Content)
}
