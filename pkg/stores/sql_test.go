package stores

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"google.golang.org/genai"
)

func newSQLiteStore(t *testing.T) *SQLSessionStore {
	t.Helper()

	store, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	session, err := store.Create(ctx, "app", "u1", "s1", map[string]any{"lang": "go"})
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)

	_, err = store.Create(ctx, "app", "u1", "s1", nil)
	assert.True(t, errors.Is(err, errors.ErrSessionExists))

	first := NewEvent("inv", "user", genai.NewContentFromText("hello", genai.RoleUser))
	second := NewEvent("inv", "agent", genai.NewContentFromText("hi there", genai.RoleModel))
	second.Actions.StateDelta = map[string]any{"greeted": true, "temp:x": 1}

	require.NoError(t, store.AppendEvent(ctx, session, first))
	require.NoError(t, store.AppendEvent(ctx, session, second))
	assert.Len(t, session.Events, 2)

	loaded, err := store.Get(ctx, "app", "u1", "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Events, 2)
	assert.Equal(t, "hello", loaded.Events[0].Text())
	assert.Equal(t, "hi there", loaded.Events[1].Text())
	assert.Equal(t, "go", loaded.State["lang"])
	assert.Equal(t, true, loaded.State["greeted"])
	assert.NotContains(t, loaded.State, "temp:x")

	sessions, err := store.List(ctx, "app", "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Events)

	require.NoError(t, store.Delete(ctx, "app", "u1", "s1"))

	_, err = store.Get(ctx, "app", "u1", "s1")
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
}

func TestSQLSessionStoreAppendToMissingSession(t *testing.T) {
	store := newSQLiteStore(t)
	session := NewSession("app", "u1", "ghost", nil)

	err := store.AppendEvent(context.Background(), session, NewEvent("inv", "user", nil))
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
	assert.Empty(t, session.Events)
}

func TestSQLSessionStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	session, err := store.Create(ctx, "app", "u1", "s1", nil)
	require.NoError(t, err)

	const writers, perWriter = 8, 5

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)

	for w := 0; w < writers; w++ {
		wg.Add(1)

		go func(own *Session) {
			defer wg.Done()

			for i := 0; i < perWriter; i++ {
				text := fmt.Sprintf("message %d", i)
				errs <- store.AppendEvent(ctx, own, NewEvent("inv", "user", genai.NewContentFromText(text, genai.RoleUser)))
			}
		}(session.Clone())
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	loaded, err := store.Get(ctx, "app", "u1", "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Events, writers*perWriter)

	ids := map[string]struct{}{}

	for _, event := range loaded.Events {
		ids[event.ID] = struct{}{}
	}

	assert.Len(t, ids, writers*perWriter)
}

func TestIsConflict(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	insert := `INSERT INTO events (app_name, user_id, session_id, position, id, invocation_id, author, payload, timestamp) VALUES ('app', 'u1', 's1', 0, 'e', 'inv', 'user', '{}', 0)`

	_, err := store.db.ExecContext(ctx, insert)
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, insert)
	require.Error(t, err)
	assert.True(t, isConflict(err))
	assert.True(t, isConflict(fmt.Errorf("after 5 attempts, last error: %w", err)))

	assert.True(t, isConflict(&pq.Error{Code: "23505"}))
	assert.False(t, isConflict(&pq.Error{Code: "23503"}))
	assert.False(t, isConflict(stderrors.New("connection refused")))
	assert.False(t, isConflict(nil))
}

func TestRebind(t *testing.T) {
	postgres := NewSQLSessionStore(nil, DialectPostgres)
	sqlite := NewSQLSessionStore(nil, DialectSQLite)

	query := `SELECT * FROM sessions WHERE app_name = ? AND id = ?`

	assert.Equal(t, `SELECT * FROM sessions WHERE app_name = $1 AND id = $2`, postgres.rebind(query))
	assert.Equal(t, query, sqlite.rebind(query))
}
