package service

import (
	"context"
	"testing"
	"time"

	"github.com/rcpklmc/sn0int/internal/oauth"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

func newTestService(st *mockStore, provider oauth.IdentityProvider) *Service {
	return New(st, NoCache{}, provider, nil)
}

func futureExpiry() time.Time { return time.Now().Add(time.Minute) }

func TestPublishThenSearchAndInfo(t *testing.T) {
	st := newMockStore()
	prov := &mockProvider{identity: &oauth.Identity{Subject: "sub-1", Login: "alice"}}
	svc := newTestService(st, prov)
	ctx := context.Background()

	if err := st.CreateAuthToken(ctx, "sess-1", futureExpiry()); err != nil {
		t.Fatalf("create auth token: %v", err)
	}
	if err := svc.Authorize(ctx, "code-1", "sess-1"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	result, err := svc.Publish(ctx, "sess-1", "geoip", "-- Version: 1.0.0\n-- Description: geoip lookups\n")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Author != "alice" || result.Version != "1.0.0" {
		t.Fatalf("unexpected publish result: %#v", result)
	}

	results, err := svc.Search(ctx, "geoip")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "geoip" {
		t.Fatalf("unexpected search results: %#v", results)
	}

	info, err := svc.Info(ctx, "alice", "geoip")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Latest == nil || *info.Latest != "1.0.0" {
		t.Fatalf("unexpected info: %#v", info)
	}
}

func TestPublishRejectsInvalidModuleName(t *testing.T) {
	st := newMockStore()
	prov := &mockProvider{identity: &oauth.Identity{Subject: "sub-1", Login: "alice"}}
	svc := newTestService(st, prov)
	ctx := context.Background()

	if err := st.CreateAuthToken(ctx, "sess-1", futureExpiry()); err != nil {
		t.Fatalf("create auth token: %v", err)
	}
	if err := svc.Authorize(ctx, "code-1", "sess-1"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	_, err := svc.Publish(ctx, "sess-1", "Not Valid!", "-- Version: 1.0.0\n")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax, got %v", err)
	}
}

func TestPublishWithoutLoginFailsAuthRequired(t *testing.T) {
	st := newMockStore()
	prov := &mockProvider{identity: &oauth.Identity{Subject: "sub-1", Login: "alice"}}
	svc := newTestService(st, prov)

	_, err := svc.Publish(context.Background(), "no-such-session", "geoip", "-- Version: 1.0.0\n")
	if !sferrors.Is(err, sferrors.AuthRequired) {
		t.Fatalf("expected AuthRequired, got %v", err)
	}
}

func TestWhoamiBeforeAuthorizeFailsAuthRequired(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockProvider{})
	ctx := context.Background()

	if err := st.CreateAuthToken(ctx, "sess-1", futureExpiry()); err != nil {
		t.Fatalf("create auth token: %v", err)
	}
	_, err := svc.Whoami(ctx, "sess-1")
	if !sferrors.Is(err, sferrors.AuthRequired) {
		t.Fatalf("expected AuthRequired before authorize completes, got %v", err)
	}
}
