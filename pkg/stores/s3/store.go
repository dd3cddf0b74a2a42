package s3

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

/*
objectStore is what Store needs from the bucket. Conn satisfies it; tests use
an in-memory map.
*/
type objectStore interface {
	Put(ctx context.Context, objectKey string, body []byte, contentType string) error
	Get(ctx context.Context, objectKey string) ([]byte, string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, objectKey string) error
}

/*
Store is an ArtifactStore on S3 compatible object storage. Each version is its
own object: <app>/<user>/<session|user>/<name>/<version>.
*/
type Store struct {
	conn objectStore
}

func NewStore(conn objectStore) *Store {
	return &Store{conn: conn}
}

func (store *Store) Save(
	ctx context.Context, key stores.ArtifactKey, part *genai.Part,
) (int, error) {
	if part == nil {
		return 0, errors.ErrInvalidRequest.WithMessagef("artifact %s has no content", key.Name)
	}

	versions, err := store.versions(ctx, key)

	if err != nil {
		return 0, err
	}

	next := 0

	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	body, contentType := encode(part)

	if err = store.conn.Put(ctx, objectKey(key, next), body, contentType); err != nil {
		log.Error("failed to store artifact", "artifact", key.Name, "error", err)
		return 0, errors.ErrInternal.Wrap(err)
	}

	return next, nil
}

func (store *Store) Load(
	ctx context.Context, key stores.ArtifactKey, version int,
) (*genai.Part, error) {
	if version < 0 {
		versions, err := store.versions(ctx, key)

		if err != nil {
			return nil, err
		}

		if len(versions) == 0 {
			return nil, errors.ErrArtifactNotFound.WithMessagef("artifact %s not found", key.Name)
		}

		version = versions[len(versions)-1]
	}

	body, contentType, err := store.conn.Get(ctx, objectKey(key, version))

	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrArtifactNotFound.WithMessagef(
				"artifact %s has no version %d", key.Name, version,
			)
		}

		return nil, errors.ErrInternal.Wrap(err)
	}

	return decode(body, contentType), nil
}

func (store *Store) List(
	ctx context.Context, appName, userID, sessionID string,
) ([]string, error) {
	seen := map[string]struct{}{}

	for _, scope := range []string{sessionID, "user"} {
		prefix := strings.Join([]string{appName, userID, scope}, "/") + "/"
		keys, err := store.conn.List(ctx, prefix)

		if err != nil {
			return nil, errors.ErrInternal.Wrap(err)
		}

		for _, key := range keys {
			name := path.Dir(strings.TrimPrefix(key, prefix))
			seen[name] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))

	for name := range seen {
		out = append(out, name)
	}

	sort.Strings(out)
	return out, nil
}

func (store *Store) Versions(
	ctx context.Context, key stores.ArtifactKey,
) ([]int, error) {
	versions, err := store.versions(ctx, key)

	if err != nil {
		return nil, err
	}

	if len(versions) == 0 {
		return nil, errors.ErrArtifactNotFound.WithMessagef("artifact %s not found", key.Name)
	}

	return versions, nil
}

func (store *Store) Delete(ctx context.Context, key stores.ArtifactKey) error {
	versions, err := store.versions(ctx, key)

	if err != nil {
		return err
	}

	for _, version := range versions {
		if err = store.conn.Remove(ctx, objectKey(key, version)); err != nil {
			return errors.ErrInternal.Wrap(err)
		}
	}

	return nil
}

func (store *Store) versions(
	ctx context.Context, key stores.ArtifactKey,
) ([]int, error) {
	prefix := key.Path() + "/"
	keys, err := store.conn.List(ctx, prefix)

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	versions := []int{}

	for _, objKey := range keys {
		version, err := strconv.Atoi(strings.TrimPrefix(objKey, prefix))

		if err != nil {
			continue
		}

		versions = append(versions, version)
	}

	sort.Ints(versions)
	return versions, nil
}

func objectKey(key stores.ArtifactKey, version int) string {
	return fmt.Sprintf("%s/%d", key.Path(), version)
}

const textContentType = "text/plain; charset=utf-8"

func encode(part *genai.Part) ([]byte, string) {
	if part.InlineData != nil {
		return part.InlineData.Data, part.InlineData.MIMEType
	}

	return []byte(part.Text), textContentType
}

func decode(body []byte, contentType string) *genai.Part {
	if contentType == textContentType || contentType == "" {
		return genai.NewPartFromText(string(body))
	}

	return genai.NewPartFromBytes(body, contentType)
}
