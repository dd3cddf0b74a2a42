package stores

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
)

type Dialect string

const (
	DialectMemory   Dialect = "memory"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Query parameters that hosted Postgres providers put in their connection
// strings but lib/pq does not understand.
var unsupportedParams = map[string]struct{}{
	"channel_binding": {},
	"channelbinding":  {},
}

/*
NormalizeURI turns a session service URI into something database/sql can open
and reports which backend it belongs to. It accepts the URIs people copy from
hosting dashboards, including SQLAlchemy style driver suffixes such as
postgresql+asyncpg://. For Postgres, unsupported query parameters are dropped
and sslmode defaults to require.
*/
func NormalizeURI(uri string) (string, Dialect, error) {
	uri = strings.TrimSpace(uri)

	if uri == "" || uri == "memory://" || uri == "memory" {
		return "", DialectMemory, nil
	}

	parsed, err := url.Parse(uri)

	if err != nil {
		return "", "", fmt.Errorf("invalid session service uri: %w", err)
	}

	scheme, _, _ := strings.Cut(strings.ToLower(parsed.Scheme), "+")

	switch scheme {
	case "postgres", "postgresql":
		parsed.Scheme = "postgres"
		query := parsed.Query()

		for key := range query {
			if _, drop := unsupportedParams[strings.ToLower(key)]; drop {
				query.Del(key)
			}
		}

		if query.Get("sslmode") == "" {
			query.Set("sslmode", "require")
		}

		parsed.RawQuery = query.Encode()
		return parsed.String(), DialectPostgres, nil
	case "sqlite", "sqlite3", "file":
		path := strings.TrimPrefix(uri, parsed.Scheme+"://")
		path = strings.TrimPrefix(path, parsed.Scheme+":")

		if path == "" {
			return "", "", fmt.Errorf("sqlite uri %q has no path", uri)
		}

		return path, DialectSQLite, nil
	case "memory":
		return "", DialectMemory, nil
	}

	return "", "", fmt.Errorf("unsupported session service scheme %q", parsed.Scheme)
}

/*
Open returns the SessionStore for a session service URI.
*/
func Open(ctx context.Context, uri string) (SessionStore, error) {
	dsn, dialect, err := NormalizeURI(uri)

	if err != nil {
		return nil, err
	}

	log.Info("opening session store", "backend", dialect)

	if dialect == DialectMemory {
		return NewInMemorySessionStore(), nil
	}

	return OpenSQL(ctx, dialect, dsn)
}
