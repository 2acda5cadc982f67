// Package store implements the Registry Service's Postgres-backed state:
// authors, modules, releases and auth_tokens, per spec.md §4.6.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rcpklmc/sn0int/internal/registry/domain"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// Store is the Registry Service's single database handle.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn, applies every pending migration, and returns a
// ready Store.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "opening registry database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, sferrors.Wrap(sferrors.StorageError, "connecting to registry database", err)
	}
	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, sferrors.Wrap(sferrors.StorageError, "migrating registry database", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers (cron, diagnostics).
func (s *Store) DB() *sqlx.DB { return s.db }

// Search returns modules with at least one published release whose name or
// description contains q, ordered featured first, then by downloads, then
// by name.
func (s *Store) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	var rows []domain.SearchResult
	err := s.db.SelectContext(ctx, &rows, `
		SELECT author, name, description, latest_version AS latest, featured, downloads
		FROM modules
		WHERE latest_version IS NOT NULL
		  AND (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY featured DESC, downloads DESC, name ASC
	`, q)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "searching modules", err)
	}
	return rows, nil
}

// FindModule fetches one module by (author, name).
func (s *Store) FindModule(ctx context.Context, author, name string) (*domain.Module, error) {
	var m domain.Module
	err := s.db.GetContext(ctx, &m, `
		SELECT id, author, name, description, latest_version, featured
		FROM modules WHERE author = $1 AND name = $2
	`, author, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sferrors.New(sferrors.NotFound, "module "+author+"/"+name+" not found")
	}
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "loading module", err)
	}
	return &m, nil
}

// FindRelease fetches one release of a module by version.
func (s *Store) FindRelease(ctx context.Context, moduleID int64, version string) (*domain.Release, error) {
	var r domain.Release
	err := s.db.GetContext(ctx, &r, `
		SELECT id, module_id, version, code, downloads, published_at
		FROM releases WHERE module_id = $1 AND version = $2
	`, moduleID, version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sferrors.New(sferrors.NotFound, "release "+version+" not found")
	}
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "loading release", err)
	}
	return &r, nil
}

// BumpDownloads atomically increments a release's and its module's download
// counters.
func (s *Store) BumpDownloads(ctx context.Context, release *domain.Release) error {
	_, err := s.db.ExecContext(ctx, `UPDATE releases SET downloads = downloads + 1 WHERE id = $1`, release.ID)
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "bumping release downloads", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE modules SET downloads = downloads + 1 WHERE id = $1`, release.ModuleID)
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "bumping module downloads", err)
	}
	return nil
}

// Publish creates the module if missing, inserts the new release, and
// advances latest_version if version is the new semver-greatest release,
// all inside one transaction — the invariant spec.md §4.6 and §8 require:
// publishing under a second author fails with NameTaken, republishing the
// same version fails with VersionExists.
func (s *Store) Publish(ctx context.Context, author, name, description, version, code string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "beginning publish transaction", err)
	}
	defer tx.Rollback()

	var row struct {
		ID      int64          `db:"id"`
		Author  string         `db:"author"`
		Latest  sql.NullString `db:"latest_version"`
	}
	err = tx.GetContext(ctx, &row, `SELECT id, author, latest_version FROM modules WHERE author = $1 AND name = $2 FOR UPDATE`, author, name)
	moduleID := row.ID
	existingAuthor := row.Author
	latest := row.Latest
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No module under this author yet — it may still exist under a
		// different author, which is the NameTaken case.
		var otherAuthor string
		probeErr := tx.GetContext(ctx, &otherAuthor, `SELECT author FROM modules WHERE name = $1 LIMIT 1`, name)
		if probeErr == nil && otherAuthor != author {
			return sferrors.New(sferrors.NameTaken, "module "+name+" is already published by a different author")
		}
		if probeErr != nil && !errors.Is(probeErr, sql.ErrNoRows) {
			return sferrors.Wrap(sferrors.StorageError, "checking module name", probeErr)
		}
		if err := tx.GetContext(ctx, &moduleID, `
			INSERT INTO modules (author, name, description) VALUES ($1, $2, $3) RETURNING id
		`, author, name, description); err != nil {
			return sferrors.Wrap(sferrors.StorageError, "creating module", err)
		}
	case err != nil:
		return sferrors.Wrap(sferrors.StorageError, "loading module for publish", err)
	case existingAuthor != author:
		return sferrors.New(sferrors.NameTaken, "module "+name+" is already published by a different author")
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO releases (module_id, version, code) VALUES ($1, $2, $3)
	`, moduleID, version, code); err != nil {
		if isUniqueViolation(err) {
			return sferrors.New(sferrors.VersionExists, "version "+version+" already published")
		}
		return sferrors.Wrap(sferrors.StorageError, "inserting release", err)
	}

	newer, err := isNewerVersion(version, latest.String)
	if err != nil {
		return sferrors.Wrap(sferrors.MetadataVersion, "comparing release version", err)
	}
	if newer {
		if _, err := tx.ExecContext(ctx, `UPDATE modules SET latest_version = $1 WHERE id = $2`, version, moduleID); err != nil {
			return sferrors.Wrap(sferrors.StorageError, "advancing latest_version", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sferrors.Wrap(sferrors.StorageError, "committing publish", err)
	}
	return nil
}

func isNewerVersion(candidate, currentLatest string) (bool, error) {
	if currentLatest == "" {
		return true, nil
	}
	c, err := semver.NewVersion(candidate)
	if err != nil {
		return false, err
	}
	cur, err := semver.NewVersion(currentLatest)
	if err != nil {
		return false, err
	}
	return c.GreaterThan(cur), nil
}

// isUniqueViolation reports whether err is Postgres's unique_violation
// (SQLSTATE 23505) — the error a concurrent duplicate (module_id, version)
// insert surfaces as.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// FindOrCreateAuthor maps an OAuth subject to a registry author name,
// creating the authors row on first login; on a later login under the same
// subject, the original name sticks even if the identity provider's login
// name has since changed.
func (s *Store) FindOrCreateAuthor(ctx context.Context, subject, login string) (string, error) {
	var name string
	err := s.db.GetContext(ctx, &name, `SELECT name FROM authors WHERE oauth_subject = $1`, subject)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", sferrors.Wrap(sferrors.StorageError, "looking up author", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO authors (name, oauth_subject) VALUES ($1, $2)`, login, subject)
	if err != nil {
		return "", sferrors.Wrap(sferrors.StorageError, "creating author", err)
	}
	return login, nil
}

// CreateAuthToken starts a login session: a state token with no user bound
// yet, expiring after oauth.ExpiresIn.
func (s *Store) CreateAuthToken(ctx context.Context, state string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO auth_tokens (state, expires_at) VALUES ($1, $2)`, state, expiresAt)
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "creating auth token", err)
	}
	return nil
}

// BindAuthTokenUser completes a login session once the OAuth callback has
// resolved an identity, recording the code the provider issued alongside
// the bound user for audit purposes.
func (s *Store) BindAuthTokenUser(ctx context.Context, state, code, user string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auth_tokens SET code = $1, "user" = $2 WHERE state = $3 AND expires_at > now()
	`, code, user, state)
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "binding auth token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sferrors.Wrap(sferrors.StorageError, "binding auth token", err)
	}
	if n == 0 {
		return sferrors.New(sferrors.AuthRequired, "login session not found or expired")
	}
	return nil
}

// GetAuthToken fetches a session by its state token, failing with
// AuthRequired on a miss or expiry.
func (s *Store) GetAuthToken(ctx context.Context, state string) (*domain.AuthToken, error) {
	var t domain.AuthToken
	err := s.db.GetContext(ctx, &t, `
		SELECT state, code, "user", expires_at FROM auth_tokens WHERE state = $1 AND expires_at > now()
	`, state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sferrors.New(sferrors.AuthRequired, "session not found or expired")
	}
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "loading auth token", err)
	}
	return &t, nil
}

// PruneExpiredAuthTokens deletes every session past its expiry, returning
// the count removed. Bound login sessions (user set) expire the same as
// unbound ones — whoami is meant to be polled promptly after authorize.
func (s *Store) PruneExpiredAuthTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, sferrors.Wrap(sferrors.StorageError, "pruning auth tokens", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, sferrors.Wrap(sferrors.StorageError, "pruning auth tokens", err)
	}
	return n, nil
}
