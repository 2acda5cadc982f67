package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// openTestStore connects to a disposable Postgres database named by
// OSMIUM_TEST_DSN, skipping the test when it isn't set. Mirrors the
// env-var-gated integration tests elsewhere in this codebase's lineage.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("OSMIUM_TEST_DSN"))
	if dsn == "" {
		t.Skip("OSMIUM_TEST_DSN not set")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPublishRejectsNameTakenByAnotherAuthor(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Publish(ctx, "alice", "geoip", "geoip lookups", "1.0.0", "-- Version: 1.0.0\n"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := st.Publish(ctx, "bob", "geoip", "geoip lookups", "1.0.0", "-- Version: 1.0.0\n")
	if !sferrors.Is(err, sferrors.NameTaken) {
		t.Fatalf("expected NameTaken, got %v", err)
	}
}

func TestPublishRejectsDuplicateVersion(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Publish(ctx, "alice", "dupver", "d", "1.0.0", "-- Version: 1.0.0\n"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := st.Publish(ctx, "alice", "dupver", "d", "1.0.0", "-- Version: 1.0.0\n")
	if !sferrors.Is(err, sferrors.VersionExists) {
		t.Fatalf("expected VersionExists, got %v", err)
	}
}

func TestPublishAdvancesLatestVersionOnlyForwards(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Publish(ctx, "alice", "advance", "d", "1.0.0", "-- Version: 1.0.0\n"); err != nil {
		t.Fatalf("publish 1.0.0: %v", err)
	}
	if err := st.Publish(ctx, "alice", "advance", "d", "0.9.0", "-- Version: 0.9.0\n"); err != nil {
		t.Fatalf("publish 0.9.0: %v", err)
	}
	mod, err := st.FindModule(ctx, "alice", "advance")
	if err != nil {
		t.Fatalf("find module: %v", err)
	}
	if mod.LatestVersion == nil || *mod.LatestVersion != "1.0.0" {
		t.Fatalf("expected latest_version to stay 1.0.0, got %v", mod.LatestVersion)
	}

	if err := st.Publish(ctx, "alice", "advance", "d", "1.1.0", "-- Version: 1.1.0\n"); err != nil {
		t.Fatalf("publish 1.1.0: %v", err)
	}
	mod, err = st.FindModule(ctx, "alice", "advance")
	if err != nil {
		t.Fatalf("find module: %v", err)
	}
	if mod.LatestVersion == nil || *mod.LatestVersion != "1.1.0" {
		t.Fatalf("expected latest_version to advance to 1.1.0, got %v", mod.LatestVersion)
	}
}

func TestAuthTokenLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateAuthToken(ctx, "state-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("create auth token: %v", err)
	}
	if err := st.BindAuthTokenUser(ctx, "state-1", "auth-code-1", "alice"); err != nil {
		t.Fatalf("bind auth token: %v", err)
	}
	tok, err := st.GetAuthToken(ctx, "state-1")
	if err != nil {
		t.Fatalf("get auth token: %v", err)
	}
	if tok.User == nil || *tok.User != "alice" {
		t.Fatalf("expected bound user alice, got %v", tok.User)
	}
}

func TestPruneExpiredAuthTokens(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateAuthToken(ctx, "state-expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create expired auth token: %v", err)
	}
	n, err := st.PruneExpiredAuthTokens(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected at least one expired token pruned, got %d", n)
	}
	if _, err := st.GetAuthToken(ctx, "state-expired"); !sferrors.Is(err, sferrors.AuthRequired) {
		t.Fatalf("expected AuthRequired after prune, got %v", err)
	}
}
