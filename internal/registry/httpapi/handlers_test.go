package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcpklmc/sn0int/internal/oauth"
	"github.com/rcpklmc/sn0int/internal/registry/domain"
	"github.com/rcpklmc/sn0int/internal/registry/service"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

// fakeStore is a minimal in-memory service.Store for exercising the HTTP
// transport end to end without a live Postgres instance.
type fakeStore struct {
	mu      sync.Mutex
	modules map[string]*domain.Module
	tokens  map[string]*domain.AuthToken
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{modules: map[string]*domain.Module{}, tokens: map[string]*domain.AuthToken{}}
}

func (f *fakeStore) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SearchResult
	for _, m := range f.modules {
		if m.LatestVersion == nil {
			continue
		}
		if q != "" && !strings.Contains(m.Name, q) {
			continue
		}
		out = append(out, domain.SearchResult{Author: m.Author, Name: m.Name, Description: m.Description, Latest: *m.LatestVersion})
	}
	return out, nil
}

func (f *fakeStore) FindModule(ctx context.Context, author, name string) (*domain.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modules[author+"/"+name]
	if !ok {
		return nil, sferrors.New(sferrors.NotFound, "module not found")
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) FindRelease(ctx context.Context, moduleID int64, version string) (*domain.Release, error) {
	return nil, sferrors.New(sferrors.NotFound, "release not found")
}

func (f *fakeStore) BumpDownloads(ctx context.Context, release *domain.Release) error { return nil }

func (f *fakeStore) Publish(ctx context.Context, author, name, description, version, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := author + "/" + name
	m, ok := f.modules[key]
	if !ok {
		f.nextID++
		m = &domain.Module{ID: f.nextID, Author: author, Name: name, Description: description}
		f.modules[key] = m
	}
	v := version
	m.LatestVersion = &v
	return nil
}

func (f *fakeStore) FindOrCreateAuthor(ctx context.Context, subject, login string) (string, error) {
	return login, nil
}

func (f *fakeStore) CreateAuthToken(ctx context.Context, state string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[state] = &domain.AuthToken{State: state, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeStore) BindAuthTokenUser(ctx context.Context, state, code, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[state]
	if !ok {
		return sferrors.New(sferrors.AuthRequired, "login session not found")
	}
	tok.Code, tok.User = &code, &user
	return nil
}

func (f *fakeStore) GetAuthToken(ctx context.Context, state string) (*domain.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[state]
	if !ok {
		return nil, sferrors.New(sferrors.AuthRequired, "session not found")
	}
	cp := *tok
	return &cp, nil
}

func (f *fakeStore) PruneExpiredAuthTokens(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for state, tok := range f.tokens {
		if tok.ExpiresAt.Before(now) {
			delete(f.tokens, state)
			n++
		}
	}
	return n, nil
}

type fakeProvider struct{ identity *oauth.Identity }

func (p *fakeProvider) AuthURL(state string) string { return "https://provider.example/auth?state=" + state }
func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth.Identity, error) {
	return p.identity, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	svc := service.New(st, service.NoCache{}, &fakeProvider{identity: &oauth.Identity{Subject: "sub-1", Login: "alice"}}, nil)
	srv := httptest.NewServer(NewRouter(svc, logger.NewDefault("httpapi-test")))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestSearchReturnsEmptyResultsWhenNothingPublished(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v0/search?q=geoip")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var env struct {
		Success []domain.SearchResult `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Success) != 0 {
		t.Fatalf("expected no search results, got %#v", env.Success)
	}
}

func TestWhoamiWithoutAuthorizationHeaderReturnsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v0/whoami")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPublishThenInfoRoundTrip(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	if err := st.CreateAuthToken(ctx, "sess-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("create auth token: %v", err)
	}
	if err := st.BindAuthTokenUser(ctx, "sess-1", "code-1", "alice"); err != nil {
		t.Fatalf("bind auth token: %v", err)
	}

	body := strings.NewReader(`{"code":"-- Version: 1.0.0\n-- Description: geoip\n"}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v0/publish/geoip", body)
	req.Header.Set("Authorization", "sess-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	infoResp, err := http.Get(srv.URL + "/api/v0/info/alice/geoip")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	defer infoResp.Body.Close()
	if infoResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", infoResp.StatusCode)
	}
}

func TestAuthorizeRequiresCodeAndState(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v0/authorize")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
