// Package service implements the Registry Service's business logic:
// search, info, download, publish, login, authorize and whoami, per
// spec.md §4.6, fronted by a short-TTL cache and reporting Prometheus
// metrics.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rcpklmc/sn0int/internal/modmeta"
	"github.com/rcpklmc/sn0int/internal/oauth"
	"github.com/rcpklmc/sn0int/internal/registry/domain"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
	"github.com/rcpklmc/sn0int/pkg/logger"
	"github.com/rcpklmc/sn0int/pkg/metrics"
)

// Store is the data access interface the Service depends on, satisfied by
// *store.Store against real Postgres and by a mock in this package's tests.
type Store interface {
	Search(ctx context.Context, q string) ([]domain.SearchResult, error)
	FindModule(ctx context.Context, author, name string) (*domain.Module, error)
	FindRelease(ctx context.Context, moduleID int64, version string) (*domain.Release, error)
	BumpDownloads(ctx context.Context, release *domain.Release) error
	Publish(ctx context.Context, author, name, description, version, code string) error
	FindOrCreateAuthor(ctx context.Context, subject, login string) (string, error)
	CreateAuthToken(ctx context.Context, state string, expiresAt time.Time) error
	BindAuthTokenUser(ctx context.Context, state, code, user string) error
	GetAuthToken(ctx context.Context, state string) (*domain.AuthToken, error)
	PruneExpiredAuthTokens(ctx context.Context) (int64, error)
}

// identifierPolicy mirrors spec.md §6's identifier policy
// (`^[a-z0-9][a-z0-9_-]{0,31}$`): lowercase alphanumeric, dash and
// underscore, first character alphanumeric, 1-32 characters.
var identifierPolicy = func(s string) error {
	if len(s) == 0 || len(s) > 32 {
		return sferrors.New(sferrors.FilterSyntax, "identifier must be 1-32 characters")
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case i > 0 && (r == '-' || r == '_'):
		default:
			return sferrors.New(sferrors.FilterSyntax, fmt.Sprintf("identifier %q contains an invalid character", s))
		}
	}
	return nil
}

// Service is the Registry Service, holding its store, cache, identity
// provider and logger.
type Service struct {
	store    Store
	cache    Cache
	provider oauth.IdentityProvider
	log      *logger.Logger
}

// New constructs a Service. cache may be a no-op Cache (see cache.go) when
// no Redis is configured.
func New(st Store, cache Cache, provider oauth.IdentityProvider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{store: st, cache: cache, provider: provider, log: log}
}

// Search implements spec.md §4.6's search operation, cached for a short
// TTL and invalidated wholesale on every publish (cheap given read-mostly
// traffic and a small catalog).
func (s *Service) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	metrics.RegistrySearches.Inc()

	cacheKey := "search:" + q
	var cached []domain.SearchResult
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	results, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cacheKey, results, searchCacheTTL)
	return results, nil
}

// Info implements spec.md §4.6's info operation.
func (s *Service) Info(ctx context.Context, author, name string) (*domain.ModuleInfo, error) {
	cacheKey := "info:" + author + "/" + name
	var cached domain.ModuleInfo
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	m, err := s.store.FindModule(ctx, author, name)
	if err != nil {
		return nil, err
	}
	info := &domain.ModuleInfo{Author: m.Author, Name: m.Name, Description: m.Description, Latest: m.LatestVersion}
	s.cache.Set(ctx, cacheKey, info, searchCacheTTL)
	return info, nil
}

// Download implements spec.md §4.6's download operation: fetch the named
// release and atomically increment its download counters.
func (s *Service) Download(ctx context.Context, author, name, version string) (*domain.DownloadResult, error) {
	m, err := s.store.FindModule(ctx, author, name)
	if err != nil {
		return nil, err
	}
	release, err := s.store.FindRelease(ctx, m.ID, version)
	if err != nil {
		return nil, err
	}
	if err := s.store.BumpDownloads(ctx, release); err != nil {
		return nil, err
	}
	metrics.RegistryDownloads.Inc()
	return &domain.DownloadResult{Author: author, Name: name, Version: version, Code: release.Code}, nil
}

// Publish implements spec.md §4.6's publish operation: it authenticates
// session to obtain the publisher, validates the name policy and the
// module's own metadata header, and delegates the create-or-update +
// add-release transaction to the store.
func (s *Service) Publish(ctx context.Context, session, name, code string) (*domain.PublishResult, error) {
	user, err := s.Whoami(ctx, session)
	if err != nil {
		metrics.RecordPublish("error")
		return nil, err
	}
	if err := identifierPolicy(user.User); err != nil {
		metrics.RecordPublish("error")
		return nil, err
	}
	if err := identifierPolicy(name); err != nil {
		metrics.RecordPublish("error")
		return nil, err
	}

	meta, err := modmeta.Parse(code)
	if err != nil {
		metrics.RecordPublish("error")
		return nil, err
	}

	err = s.store.Publish(ctx, user.User, name, meta.Description, meta.Version.String(), code)
	if err != nil {
		switch {
		case sferrors.Is(err, sferrors.NameTaken):
			metrics.RecordPublish("name_taken")
		case sferrors.Is(err, sferrors.VersionExists):
			metrics.RecordPublish("version_exists")
		default:
			metrics.RecordPublish("error")
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, "info:"+user.User+"/"+name)
	s.cache.InvalidatePrefix(ctx, "search:")
	metrics.RecordPublish("success")

	return &domain.PublishResult{Author: user.User, Name: name, Version: meta.Version.String()}, nil
}

// Login implements spec.md §4.6's login operation: it mints a session
// state token, persists it unbound, and returns the identity provider's
// authorization URL the caller should redirect to.
func (s *Service) Login(ctx context.Context, session string) (string, error) {
	if err := s.store.CreateAuthToken(ctx, session, time.Now().Add(oauth.ExpiresIn)); err != nil {
		return "", err
	}
	return s.provider.AuthURL(session), nil
}

// Authorize implements spec.md §4.6's authorize operation: it exchanges
// code for an identity at the provider, maps that identity to a registry
// author (creating one on first login), and binds state's session to that
// author so a concurrent whoami poll can pick it up.
func (s *Service) Authorize(ctx context.Context, code, state string) error {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return sferrors.Wrap(sferrors.AuthRequired, "resolving oauth identity", err)
	}
	user, err := s.store.FindOrCreateAuthor(ctx, identity.Subject, identity.Login)
	if err != nil {
		return err
	}
	return s.store.BindAuthTokenUser(ctx, state, code, user)
}

// Whoami implements spec.md §4.6's whoami operation: it resolves a session
// token to the author bound to it, failing with AuthRequired if the
// session has no bound user yet (login not completed) or doesn't exist.
func (s *Service) Whoami(ctx context.Context, session string) (*domain.WhoamiResult, error) {
	token, err := s.store.GetAuthToken(ctx, session)
	if err != nil {
		return nil, err
	}
	if token.User == nil {
		return nil, sferrors.New(sferrors.AuthRequired, "login has not completed for this session")
	}
	return &domain.WhoamiResult{User: *token.User}, nil
}

const searchCacheTTL = 30 * time.Second
