package service

import (
	"context"
	"sync"
	"time"

	"github.com/rcpklmc/sn0int/internal/oauth"
	"github.com/rcpklmc/sn0int/internal/registry/domain"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// mockStore implements Store in memory for service-level tests, following
// the in-memory mock pattern the rest of this codebase's lineage uses for
// exercising service logic without a live database.
type mockStore struct {
	mu sync.Mutex

	modules    map[string]*domain.Module // author/name
	releases   map[string]*domain.Release
	authors    map[string]string // subject -> name
	authTokens map[string]*domain.AuthToken
	nextID     int64
}

func newMockStore() *mockStore {
	return &mockStore{
		modules:    make(map[string]*domain.Module),
		releases:   make(map[string]*domain.Release),
		authors:    make(map[string]string),
		authTokens: make(map[string]*domain.AuthToken),
	}
}

func moduleKey(author, name string) string { return author + "/" + name }

func (m *mockStore) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []domain.SearchResult
	for _, mod := range m.modules {
		if mod.LatestVersion == nil {
			continue
		}
		results = append(results, domain.SearchResult{
			Author: mod.Author, Name: mod.Name, Description: mod.Description, Latest: *mod.LatestVersion,
		})
	}
	return results, nil
}

func (m *mockStore) FindModule(ctx context.Context, author, name string) (*domain.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.modules[moduleKey(author, name)]
	if !ok {
		return nil, sferrors.New(sferrors.NotFound, "module not found")
	}
	cp := *mod
	return &cp, nil
}

func (m *mockStore) FindRelease(ctx context.Context, moduleID int64, version string) (*domain.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.releases {
		if r.ModuleID == moduleID && r.Version == version {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sferrors.New(sferrors.NotFound, "release not found")
}

func (m *mockStore) BumpDownloads(ctx context.Context, release *domain.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.releases[release.Version]; ok {
		r.Downloads++
	}
	return nil
}

func (m *mockStore) Publish(ctx context.Context, author, name, description, version, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := moduleKey(author, name)
	mod, ok := m.modules[key]
	if !ok {
		for _, other := range m.modules {
			if other.Name == name && other.Author != author {
				return sferrors.New(sferrors.NameTaken, "module "+name+" is already published by a different author")
			}
		}
		m.nextID++
		mod = &domain.Module{ID: m.nextID, Author: author, Name: name, Description: description}
		m.modules[key] = mod
	}
	for _, r := range m.releases {
		if r.ModuleID == mod.ID && r.Version == version {
			return sferrors.New(sferrors.VersionExists, "version "+version+" already published")
		}
	}
	m.nextID++
	m.releases[version] = &domain.Release{ID: m.nextID, ModuleID: mod.ID, Version: version, Code: code}
	v := version
	mod.LatestVersion = &v
	return nil
}

func (m *mockStore) FindOrCreateAuthor(ctx context.Context, subject, login string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.authors[subject]; ok {
		return name, nil
	}
	m.authors[subject] = login
	return login, nil
}

func (m *mockStore) CreateAuthToken(ctx context.Context, state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authTokens[state] = &domain.AuthToken{State: state, ExpiresAt: expiresAt}
	return nil
}

func (m *mockStore) BindAuthTokenUser(ctx context.Context, state, code, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.authTokens[state]
	if !ok || tok.ExpiresAt.Before(time.Now()) {
		return sferrors.New(sferrors.AuthRequired, "login session not found or expired")
	}
	tok.Code = &code
	tok.User = &user
	return nil
}

func (m *mockStore) GetAuthToken(ctx context.Context, state string) (*domain.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.authTokens[state]
	if !ok || tok.ExpiresAt.Before(time.Now()) {
		return nil, sferrors.New(sferrors.AuthRequired, "session not found or expired")
	}
	cp := *tok
	return &cp, nil
}

func (m *mockStore) PruneExpiredAuthTokens(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for state, tok := range m.authTokens {
		if tok.ExpiresAt.Before(now) {
			delete(m.authTokens, state)
			n++
		}
	}
	return n, nil
}

// mockProvider is a fixed-identity oauth.IdentityProvider for tests.
type mockProvider struct {
	identity *oauth.Identity
	err      error
}

func (p *mockProvider) AuthURL(state string) string { return "https://provider.example/auth?state=" + state }

func (p *mockProvider) Exchange(ctx context.Context, code string) (*oauth.Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}
