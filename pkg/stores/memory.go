package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/theapemachine/agentdeck/pkg/errors"
)

type sessionKey struct {
	app  string
	user string
	id   string
}

// sessionData wraps the actual data with expiration time
type sessionData struct {
	session   *Session
	expiresAt time.Time
}

/*
InMemorySessionStore keeps sessions in a map. It is what the server uses when
no SESSION_SERVICE_URI is configured and what the tests use. Sessions expire
after a period without updates.
*/
type InMemorySessionStore struct {
	mu         sync.RWMutex
	data       map[sessionKey]*sessionData
	expiration time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

type InMemoryOption func(*InMemorySessionStore)

func WithExpiration(expiration time.Duration) InMemoryOption {
	return func(store *InMemorySessionStore) {
		store.expiration = expiration
	}
}

func NewInMemorySessionStore(options ...InMemoryOption) *InMemorySessionStore {
	store := &InMemorySessionStore{
		data:       make(map[sessionKey]*sessionData),
		expiration: 24 * time.Hour,
		done:       make(chan struct{}),
	}

	for _, option := range options {
		option(store)
	}

	go store.cleanupExpired(time.Hour)

	return store
}

func (store *InMemorySessionStore) Create(
	ctx context.Context, appName, userID, sessionID string, state map[string]any,
) (*Session, error) {
	session := NewSession(appName, userID, sessionID, state)
	key := sessionKey{appName, userID, session.ID}

	store.mu.Lock()
	defer store.mu.Unlock()

	if existing, ok := store.data[key]; ok && time.Now().Before(existing.expiresAt) {
		return nil, errors.ErrSessionExists.WithMessagef("session %s already exists", session.ID)
	}

	store.data[key] = &sessionData{
		session:   session,
		expiresAt: time.Now().Add(store.expiration),
	}

	return session.Clone(), nil
}

func (store *InMemorySessionStore) Get(
	ctx context.Context, appName, userID, sessionID string,
) (*Session, error) {
	key := sessionKey{appName, userID, sessionID}

	store.mu.RLock()
	data, ok := store.data[key]

	if !ok {
		store.mu.RUnlock()
		return nil, errors.ErrSessionNotFound.WithMessagef("session %s not found", sessionID)
	}

	expired := time.Now().After(data.expiresAt)
	session := data.session.Clone()
	store.mu.RUnlock()

	if expired {
		_ = store.Delete(ctx, appName, userID, sessionID)
		return nil, errors.ErrSessionNotFound.WithMessagef("session %s expired", sessionID)
	}

	return session, nil
}

func (store *InMemorySessionStore) List(
	ctx context.Context, appName, userID string,
) ([]*Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	now := time.Now()
	out := []*Session{}

	for key, data := range store.data {
		if key.app != appName || key.user != userID || now.After(data.expiresAt) {
			continue
		}

		session := data.session.Clone()
		session.Events = []*Event{}
		out = append(out, session)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdateTime.After(out[j].LastUpdateTime)
	})

	return out, nil
}

func (store *InMemorySessionStore) Delete(
	ctx context.Context, appName, userID, sessionID string,
) error {
	store.mu.Lock()
	delete(store.data, sessionKey{appName, userID, sessionID})
	store.mu.Unlock()

	return nil
}

/*
AppendEvent applies the event to the caller's session and to the stored copy,
and pushes the expiry forward. Partial streaming chunks are not persisted.
*/
func (store *InMemorySessionStore) AppendEvent(
	ctx context.Context, session *Session, event *Event,
) error {
	if event.Partial {
		return nil
	}

	key := sessionKey{session.AppName, session.UserID, session.ID}

	store.mu.Lock()
	defer store.mu.Unlock()

	data, ok := store.data[key]

	if !ok {
		return errors.ErrSessionNotFound.WithMessagef("session %s not found", session.ID)
	}

	data.session.Apply(event)
	data.expiresAt = time.Now().Add(store.expiration)
	session.Apply(event)

	return nil
}

func (store *InMemorySessionStore) Cleanup() {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()

	for key, data := range store.data {
		if now.After(data.expiresAt) {
			delete(store.data, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (store *InMemorySessionStore) Close() error {
	store.closeOnce.Do(func() {
		close(store.done)
	})

	return nil
}

func (store *InMemorySessionStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-store.done:
			return
		case <-ticker.C:
			store.Cleanup()
		}
	}
}
