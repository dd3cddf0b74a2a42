package stores

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/theapemachine/agentdeck/pkg/errors"
	"google.golang.org/genai"
)

// UserScopePrefix marks artifact names that are shared across a user's sessions.
const UserScopePrefix = "user:"

type ArtifactKey struct {
	AppName   string
	UserID    string
	SessionID string
	Name      string
}

/*
Scoped drops the session from the key for user scoped artifacts, so that
"user:avatar.png" resolves to the same object in every session.
*/
func (key ArtifactKey) Scoped() ArtifactKey {
	if strings.HasPrefix(key.Name, UserScopePrefix) {
		key.SessionID = ""
	}

	return key
}

/*
Path is the slash separated object path for the key, used by object stores.
*/
func (key ArtifactKey) Path() string {
	key = key.Scoped()

	if key.SessionID == "" {
		return strings.Join([]string{key.AppName, key.UserID, "user", key.Name}, "/")
	}

	return strings.Join([]string{key.AppName, key.UserID, key.SessionID, key.Name}, "/")
}

/*
ArtifactStore keeps versioned binary artifacts (generated images, uploaded
documents) per session. Every Save creates a new version, starting at 0.
*/
type ArtifactStore interface {
	Save(ctx context.Context, key ArtifactKey, part *genai.Part) (int, error)
	Load(ctx context.Context, key ArtifactKey, version int) (*genai.Part, error)
	List(ctx context.Context, appName, userID, sessionID string) ([]string, error)
	Versions(ctx context.Context, key ArtifactKey) ([]int, error)
	Delete(ctx context.Context, key ArtifactKey) error
}

type InMemoryArtifactStore struct {
	mu   sync.RWMutex
	data map[ArtifactKey][]*genai.Part
}

func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	return &InMemoryArtifactStore{
		data: make(map[ArtifactKey][]*genai.Part),
	}
}

func (store *InMemoryArtifactStore) Save(
	ctx context.Context, key ArtifactKey, part *genai.Part,
) (int, error) {
	if part == nil {
		return 0, errors.ErrInvalidRequest.WithMessagef("artifact %s has no content", key.Name)
	}

	key = key.Scoped()

	store.mu.Lock()
	defer store.mu.Unlock()

	store.data[key] = append(store.data[key], part)
	return len(store.data[key]) - 1, nil
}

/*
Load returns the requested version, or the latest one when version is
negative.
*/
func (store *InMemoryArtifactStore) Load(
	ctx context.Context, key ArtifactKey, version int,
) (*genai.Part, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	versions := store.data[key.Scoped()]

	if len(versions) == 0 {
		return nil, errors.ErrArtifactNotFound.WithMessagef("artifact %s not found", key.Name)
	}

	if version < 0 {
		version = len(versions) - 1
	}

	if version >= len(versions) {
		return nil, errors.ErrArtifactNotFound.WithMessagef(
			"artifact %s has no version %d", key.Name, version,
		)
	}

	return versions[version], nil
}

func (store *InMemoryArtifactStore) List(
	ctx context.Context, appName, userID, sessionID string,
) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	out := []string{}

	for key := range store.data {
		if key.AppName != appName || key.UserID != userID {
			continue
		}

		if key.SessionID == sessionID || key.SessionID == "" {
			out = append(out, key.Name)
		}
	}

	sort.Strings(out)
	return out, nil
}

func (store *InMemoryArtifactStore) Versions(
	ctx context.Context, key ArtifactKey,
) ([]int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	versions := store.data[key.Scoped()]

	if len(versions) == 0 {
		return nil, errors.ErrArtifactNotFound.WithMessagef("artifact %s not found", key.Name)
	}

	out := make([]int, len(versions))

	for i := range versions {
		out[i] = i
	}

	return out, nil
}

func (store *InMemoryArtifactStore) Delete(ctx context.Context, key ArtifactKey) error {
	store.mu.Lock()
	delete(store.data, key.Scoped())
	store.mu.Unlock()

	return nil
}
