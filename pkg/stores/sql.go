package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"
	"github.com/theapemachine/agentdeck/pkg/errors"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		app_name    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		id          TEXT NOT NULL,
		state       TEXT NOT NULL,
		create_time BIGINT NOT NULL,
		update_time BIGINT NOT NULL,
		PRIMARY KEY (app_name, user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		app_name      TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		session_id    TEXT NOT NULL,
		position      BIGINT NOT NULL,
		id            TEXT NOT NULL,
		invocation_id TEXT NOT NULL,
		author        TEXT NOT NULL,
		payload       TEXT NOT NULL,
		timestamp     BIGINT NOT NULL,
		PRIMARY KEY (app_name, user_id, session_id, position)
	)`,
}

/*
SQLSessionStore persists sessions in PostgreSQL (lib/pq) or SQLite
(modernc.org/sqlite). State and events are stored as JSON text so the same
schema works on both.
*/
type SQLSessionStore struct {
	db      *sql.DB
	dialect Dialect
	locks   sync.Map
}

/*
appendRetry covers two writers picking the same event position, which the
primary key rejects. Only conflicts are retried.
*/
var appendRetry = &errors.RetryConfig{
	MaxAttempts:   5,
	InitialDelay:  10 * time.Millisecond,
	MaxDelay:      200 * time.Millisecond,
	BackoffFactor: 2,
}

func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLSessionStore, error) {
	driver := map[Dialect]string{
		DialectPostgres: "postgres",
		DialectSQLite:   "sqlite",
	}[dialect]

	if driver == "" {
		return nil, fmt.Errorf("no sql driver for dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)

	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	store := NewSQLSessionStore(db, dialect)

	if err = store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func NewSQLSessionStore(db *sql.DB, dialect Dialect) *SQLSessionStore {
	return &SQLSessionStore{db: db, dialect: dialect}
}

func (store *SQLSessionStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := store.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate session schema: %w", err)
		}
	}

	return nil
}

/*
rebind rewrites ? placeholders into $n for Postgres.
*/
func (store *SQLSessionStore) rebind(query string) string {
	if store.dialect != DialectPostgres {
		return query
	}

	builder := strings.Builder{}
	n := 0

	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteString("$" + strconv.Itoa(n))
			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

func (store *SQLSessionStore) Create(
	ctx context.Context, appName, userID, sessionID string, state map[string]any,
) (*Session, error) {
	session := NewSession(appName, userID, sessionID, state)

	stateJSON, err := json.Marshal(session.State)

	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}

	var exists int

	err = store.db.QueryRowContext(ctx, store.rebind(
		`SELECT COUNT(*) FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
	), appName, userID, session.ID).Scan(&exists)

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	if exists > 0 {
		return nil, errors.ErrSessionExists.WithMessagef("session %s already exists", session.ID)
	}

	now := session.LastUpdateTime.UnixNano()

	if _, err = store.db.ExecContext(ctx, store.rebind(
		`INSERT INTO sessions (app_name, user_id, id, state, create_time, update_time) VALUES (?, ?, ?, ?, ?, ?)`,
	), appName, userID, session.ID, string(stateJSON), now, now); err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	log.Debug("session created", "app", appName, "user", userID, "session", session.ID)
	return session, nil
}

func (store *SQLSessionStore) Get(
	ctx context.Context, appName, userID, sessionID string,
) (*Session, error) {
	var (
		stateJSON string
		updated   int64
	)

	err := store.db.QueryRowContext(ctx, store.rebind(
		`SELECT state, update_time FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
	), appName, userID, sessionID).Scan(&stateJSON, &updated)

	if err == sql.ErrNoRows {
		return nil, errors.ErrSessionNotFound.WithMessagef("session %s not found", sessionID)
	}

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	session := &Session{
		ID:             sessionID,
		AppName:        appName,
		UserID:         userID,
		State:          map[string]any{},
		Events:         []*Event{},
		LastUpdateTime: time.Unix(0, updated).UTC(),
	}

	if err = json.Unmarshal([]byte(stateJSON), &session.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}

	rows, err := store.db.QueryContext(ctx, store.rebind(
		`SELECT payload FROM events WHERE app_name = ? AND user_id = ? AND session_id = ? ORDER BY position`,
	), appName, userID, sessionID)

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	defer rows.Close()

	for rows.Next() {
		var payload string

		if err = rows.Scan(&payload); err != nil {
			return nil, errors.ErrInternal.Wrap(err)
		}

		event := &Event{}

		if err = json.Unmarshal([]byte(payload), event); err != nil {
			log.Warn("skipping undecodable event", "session", sessionID, "error", err)
			continue
		}

		session.Events = append(session.Events, event)
	}

	return session, rows.Err()
}

func (store *SQLSessionStore) List(
	ctx context.Context, appName, userID string,
) ([]*Session, error) {
	rows, err := store.db.QueryContext(ctx, store.rebind(
		`SELECT id, state, update_time FROM sessions WHERE app_name = ? AND user_id = ? ORDER BY update_time DESC`,
	), appName, userID)

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	defer rows.Close()

	out := []*Session{}

	for rows.Next() {
		var (
			id        string
			stateJSON string
			updated   int64
		)

		if err = rows.Scan(&id, &stateJSON, &updated); err != nil {
			return nil, errors.ErrInternal.Wrap(err)
		}

		session := &Session{
			ID:             id,
			AppName:        appName,
			UserID:         userID,
			State:          map[string]any{},
			Events:         []*Event{},
			LastUpdateTime: time.Unix(0, updated).UTC(),
		}

		if err = json.Unmarshal([]byte(stateJSON), &session.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
		}

		out = append(out, session)
	}

	return out, rows.Err()
}

func (store *SQLSessionStore) Delete(
	ctx context.Context, appName, userID, sessionID string,
) error {
	tx, err := store.db.BeginTx(ctx, nil)

	if err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, store.rebind(
		`DELETE FROM events WHERE app_name = ? AND user_id = ? AND session_id = ?`,
	), appName, userID, sessionID); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	if _, err = tx.ExecContext(ctx, store.rebind(
		`DELETE FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
	), appName, userID, sessionID); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	if err = tx.Commit(); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	store.locks.Delete(sessionKey{appName, userID, sessionID})
	return nil
}

/*
AppendEvent writes the event and the resulting session state in one
transaction. The position column keeps events in append order regardless of
clock resolution. Appends to one session are serialised in process, and a
position taken by another process is retried.
*/
func (store *SQLSessionStore) AppendEvent(
	ctx context.Context, session *Session, event *Event,
) error {
	if event.Partial {
		return nil
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	next := session.Clone()
	next.Apply(event)

	stateJSON, err := json.Marshal(next.State)

	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	lock := store.lockFor(session)
	lock.Lock()
	defer lock.Unlock()

	if err = errors.RetryWithBackoff(ctx, appendRetry, func() error {
		return store.insertEvent(ctx, session, event, string(payload), string(stateJSON))
	}); err != nil {
		if isConflict(err) {
			return errors.ErrInternal.Wrap(err)
		}

		return err
	}

	session.Apply(event)
	return nil
}

/*
insertEvent writes the event at the next free position and the new state in
one transaction. A position conflict is returned as is so it can be retried.
Everything else is permanent.
*/
func (store *SQLSessionStore) insertEvent(
	ctx context.Context, session *Session, event *Event, payload, stateJSON string,
) error {
	tx, err := store.db.BeginTx(ctx, nil)

	if err != nil {
		return errors.Permanent(errors.ErrInternal.Wrap(err))
	}

	defer tx.Rollback()

	var position int64

	if err = tx.QueryRowContext(ctx, store.rebind(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM events WHERE app_name = ? AND user_id = ? AND session_id = ?`,
	), session.AppName, session.UserID, session.ID).Scan(&position); err != nil {
		return errors.Permanent(errors.ErrInternal.Wrap(err))
	}

	if _, err = tx.ExecContext(ctx, store.rebind(
		`INSERT INTO events (app_name, user_id, session_id, position, id, invocation_id, author, payload, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	), session.AppName, session.UserID, session.ID, position, event.ID, event.InvocationID, event.Author, payload, event.Timestamp.UnixNano()); err != nil {
		if isConflict(err) {
			log.Debug("event position taken, retrying", "session", session.ID, "position", position)
			return err
		}

		return errors.Permanent(errors.ErrInternal.Wrap(err))
	}

	result, err := tx.ExecContext(ctx, store.rebind(
		`UPDATE sessions SET state = ?, update_time = ? WHERE app_name = ? AND user_id = ? AND id = ?`,
	), stateJSON, event.Timestamp.UnixNano(), session.AppName, session.UserID, session.ID)

	if err != nil {
		return errors.Permanent(errors.ErrInternal.Wrap(err))
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.Permanent(errors.ErrSessionNotFound.WithMessagef("session %s not found", session.ID))
	}

	if err = tx.Commit(); err != nil {
		if isConflict(err) {
			return err
		}

		return errors.Permanent(errors.ErrInternal.Wrap(err))
	}

	return nil
}

// lockFor serialises appends to one session within this process.
func (store *SQLSessionStore) lockFor(session *Session) *sync.Mutex {
	lock, _ := store.locks.LoadOrStore(sessionKey{session.AppName, session.UserID, session.ID}, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

/*
isConflict reports a unique violation: SQLSTATE 23505 on Postgres, a UNIQUE
or PRIMARY KEY constraint failure on SQLite.
*/
func isConflict(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	message := err.Error()

	return strings.Contains(message, "UNIQUE constraint failed") ||
		strings.Contains(message, "PRIMARY KEY constraint failed")
}

func (store *SQLSessionStore) Close() error {
	return store.db.Close()
}
