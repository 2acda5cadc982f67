package entity

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	schema := `
	CREATE TABLE domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL UNIQUE,
		unscoped BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE TABLE subdomains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL UNIQUE,
		unscoped BOOLEAN NOT NULL DEFAULT 0,
		domain_id INTEGER NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
		resolvable BOOLEAN
	);
	CREATE TABLE ipaddrs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL UNIQUE,
		unscoped BOOLEAN NOT NULL DEFAULT 0,
		country TEXT,
		asn INTEGER,
		description TEXT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestDomainInsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore[DomainRow, NewDomain, DomainUpdate](db, DomainSpec)
	ctx := context.Background()

	id1, err := store.Insert(ctx, NewDomain{Value: "example.com"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := store.Insert(ctx, NewDomain{Value: "example.com"})
	if err != nil {
		t.Fatalf("insert again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id on repeat insert, got %d and %d", id1, id2)
	}

	rows, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
}

func TestIpAddrUpsertIsMonotonic(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore[IpAddrRow, NewIpAddr, IpAddrUpdate](db, IpAddrSpec)
	ctx := context.Background()

	country := "US"
	id, err := store.Upsert(ctx, NewIpAddr{Value: "1.2.3.4", Country: &country})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// A later upsert with country absent must not clear the existing value.
	if _, err := store.Upsert(ctx, NewIpAddr{Value: "1.2.3.4"}); err != nil {
		t.Fatalf("upsert without country: %v", err)
	}
	row, err := store.ByID(ctx, id)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if row.Country == nil || *row.Country != "US" {
		t.Fatalf("expected country to remain US, got %v", row.Country)
	}

	// A later upsert with a different country must overwrite it.
	germany := "DE"
	if _, err := store.Upsert(ctx, NewIpAddr{Value: "1.2.3.4", Country: &germany}); err != nil {
		t.Fatalf("upsert with new country: %v", err)
	}
	row, err = store.ByID(ctx, id)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if row.Country == nil || *row.Country != "DE" {
		t.Fatalf("expected country to become DE, got %v", row.Country)
	}
}

func TestSubdomainFilterAndScope(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	domains := NewStore[DomainRow, NewDomain, DomainUpdate](db, DomainSpec)
	subs := NewStore[SubdomainRow, NewSubdomain, SubdomainUpdate](db, SubdomainSpec)
	ctx := context.Background()

	domainID, err := domains.Insert(ctx, NewDomain{Value: "example.com"})
	if err != nil {
		t.Fatalf("insert domain: %v", err)
	}
	resolvable := true
	if _, err := subs.Insert(ctx, NewSubdomain{Value: "www.example.com", DomainID: domainID, Resolvable: &resolvable}); err != nil {
		t.Fatalf("insert subdomain: %v", err)
	}

	rows, err := subs.Filter(ctx, "resolvable = 1")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one resolvable subdomain, got %d", len(rows))
	}

	if _, err := subs.Noscope(ctx, "value = 'www.example.com'"); err != nil {
		t.Fatalf("noscope: %v", err)
	}
	visible, err := subs.DefaultSelect(ctx)
	if err != nil {
		t.Fatalf("default select: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("expected noscoped subdomain hidden from default select, got %d", len(visible))
	}
}

func TestIpAddrUpsertCountingReportsInsertVsUpdateVsNoop(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore[IpAddrRow, NewIpAddr, IpAddrUpdate](db, IpAddrSpec)
	ctx := context.Background()

	country := "US"
	_, inserted, updated, err := store.UpsertCounting(ctx, NewIpAddr{Value: "5.6.7.8", Country: &country})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !inserted || updated {
		t.Fatalf("expected a first upsert to report inserted=true, updated=false, got inserted=%v updated=%v", inserted, updated)
	}

	_, inserted, updated, err = store.UpsertCounting(ctx, NewIpAddr{Value: "5.6.7.8", Country: &country})
	if err != nil {
		t.Fatalf("upsert repeat: %v", err)
	}
	if inserted || updated {
		t.Fatalf("expected a no-op upsert to report inserted=false, updated=false, got inserted=%v updated=%v", inserted, updated)
	}

	germany := "DE"
	_, inserted, updated, err = store.UpsertCounting(ctx, NewIpAddr{Value: "5.6.7.8", Country: &germany})
	if err != nil {
		t.Fatalf("upsert with new country: %v", err)
	}
	if inserted || !updated {
		t.Fatalf("expected a changed-attribute upsert to report inserted=false, updated=true, got inserted=%v updated=%v", inserted, updated)
	}
}
