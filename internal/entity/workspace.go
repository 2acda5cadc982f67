package entity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS domains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS subdomains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	domain_id INTEGER NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
	resolvable BOOLEAN
);
CREATE TABLE IF NOT EXISTS ipaddrs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	country TEXT,
	asn INTEGER,
	description TEXT
);
CREATE TABLE IF NOT EXISTS subdomain_ipaddrs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	subdomain_id INTEGER NOT NULL REFERENCES subdomains(id) ON DELETE CASCADE,
	ipaddr_id INTEGER NOT NULL REFERENCES ipaddrs(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS urls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	subdomain_id INTEGER NOT NULL REFERENCES subdomains(id) ON DELETE CASCADE,
	status INTEGER,
	body TEXT,
	title TEXT
);
CREATE TABLE IF NOT EXISTS emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	valid BOOLEAN
);
CREATE TABLE IF NOT EXISTS phonenumbers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	valid BOOLEAN,
	name TEXT,
	country TEXT
);
CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	vendor TEXT,
	hostname TEXT,
	last_seen TEXT
);
CREATE TABLE IF NOT EXISTS networks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	latitude REAL,
	longitude REAL
);
CREATE TABLE IF NOT EXISTS network_devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	network_id INTEGER NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
	device_id INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
	ipaddr TEXT,
	last_seen TEXT
);
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	url TEXT,
	last_seen TEXT
);
CREATE TABLE IF NOT EXISTS breaches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS breach_emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	breach_id INTEGER NOT NULL REFERENCES breaches(id) ON DELETE CASCADE,
	email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	password TEXT
);
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	unscoped BOOLEAN NOT NULL DEFAULT 0,
	camera_make TEXT,
	camera_model TEXT,
	latitude REAL,
	longitude REAL,
	created_at TEXT
);
`

// Workspace owns a single sqlite-backed workspace directory: one database
// file, one advisory lock file, and a Store per entity family bound to the
// database handle.
type Workspace struct {
	dir      string
	lockPath string
	db       *sqlx.DB
	log      *logger.Logger

	Domains          *Store[DomainRow, NewDomain, DomainUpdate]
	Subdomains       *Store[SubdomainRow, NewSubdomain, SubdomainUpdate]
	IpAddrs          *Store[IpAddrRow, NewIpAddr, IpAddrUpdate]
	SubdomainIpAddrs *Store[SubdomainIpAddrRow, NewSubdomainIpAddr, SubdomainIpAddrUpdate]
	Urls             *Store[UrlRow, NewUrl, UrlUpdate]
	Emails           *Store[EmailRow, NewEmail, EmailUpdate]
	PhoneNumbers     *Store[PhoneNumberRow, NewPhoneNumber, PhoneNumberUpdate]
	Devices          *Store[DeviceRow, NewDevice, DeviceUpdate]
	Networks         *Store[NetworkRow, NewNetwork, NetworkUpdate]
	NetworkDevices   *Store[NetworkDeviceRow, NewNetworkDevice, NetworkDeviceUpdate]
	Accounts         *Store[AccountRow, NewAccount, AccountUpdate]
	Breaches         *Store[BreachRow, NewBreach, BreachUpdate]
	BreachEmails     *Store[BreachEmailRow, NewBreachEmail, BreachEmailUpdate]
	Images           *Store[ImageRow, NewImage, ImageUpdate]
}

// OpenWorkspace opens (creating if needed) the sqlite database under dir,
// taking the workspace's advisory lock. A second concurrent Open on the
// same dir fails with WorkspaceLocked rather than silently sharing state.
func OpenWorkspace(dir string, log *logger.Logger) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "creating workspace directory", err)
	}

	lockPath := filepath.Join(dir, "osmium.lock")
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, sferrors.New(sferrors.WorkspaceLocked, fmt.Sprintf("workspace %s is already open", dir))
		}
		return nil, sferrors.Wrap(sferrors.StorageError, "creating workspace lock", err)
	}
	lockFile.Close()

	// foreign_keys is a per-connection pragma in sqlite; setting it via Exec
	// against the pool only affects whichever connection happens to run it,
	// leaving others in the pool without cascade enforcement. Setting it in
	// the DSN makes the driver apply it to every connection it opens.
	dbPath := filepath.Join(dir, "osmium.db") + "?_foreign_keys=1"
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		os.Remove(lockPath)
		return nil, sferrors.Wrap(sferrors.StorageError, "opening workspace database", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		os.Remove(lockPath)
		return nil, sferrors.Wrap(sferrors.StorageError, "enabling WAL", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		os.Remove(lockPath)
		return nil, sferrors.Wrap(sferrors.StorageError, "applying schema", err)
	}

	if log == nil {
		log = logger.NewDefault("workspace")
	}

	ws := &Workspace{dir: dir, lockPath: lockPath, db: db, log: log}
	ws.bindStores(db)
	return ws, nil
}

func (w *Workspace) bindStores(ext Ext) {
	w.Domains = NewStore[DomainRow, NewDomain, DomainUpdate](ext, DomainSpec)
	w.Subdomains = NewStore[SubdomainRow, NewSubdomain, SubdomainUpdate](ext, SubdomainSpec)
	w.IpAddrs = NewStore[IpAddrRow, NewIpAddr, IpAddrUpdate](ext, IpAddrSpec)
	w.SubdomainIpAddrs = NewStore[SubdomainIpAddrRow, NewSubdomainIpAddr, SubdomainIpAddrUpdate](ext, SubdomainIpAddrSpec)
	w.Urls = NewStore[UrlRow, NewUrl, UrlUpdate](ext, UrlSpec)
	w.Emails = NewStore[EmailRow, NewEmail, EmailUpdate](ext, EmailSpec)
	w.PhoneNumbers = NewStore[PhoneNumberRow, NewPhoneNumber, PhoneNumberUpdate](ext, PhoneNumberSpec)
	w.Devices = NewStore[DeviceRow, NewDevice, DeviceUpdate](ext, DeviceSpec)
	w.Networks = NewStore[NetworkRow, NewNetwork, NetworkUpdate](ext, NetworkSpec)
	w.NetworkDevices = NewStore[NetworkDeviceRow, NewNetworkDevice, NetworkDeviceUpdate](ext, NetworkDeviceSpec)
	w.Accounts = NewStore[AccountRow, NewAccount, AccountUpdate](ext, AccountSpec)
	w.Breaches = NewStore[BreachRow, NewBreach, BreachUpdate](ext, BreachSpec)
	w.BreachEmails = NewStore[BreachEmailRow, NewBreachEmail, BreachEmailUpdate](ext, BreachEmailSpec)
	w.Images = NewStore[ImageRow, NewImage, ImageUpdate](ext, ImageSpec)
}

// DB exposes the underlying handle for callers (migrations, diagnostics)
// that need it directly.
func (w *Workspace) DB() *sqlx.DB { return w.db }

// Tx is a Workspace bound to a single transaction: the set of Stores the
// module runtime gives each worker, so every host-API call a module script
// makes during one seed's execution lands in the same atomic unit of work.
type Tx struct {
	Workspace
	tx *sqlx.Tx
}

// BeginTx opens a new transaction-scoped view of the workspace. The caller
// must Commit or Rollback exactly once.
func (w *Workspace) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "beginning transaction", err)
	}
	t := &Tx{tx: tx}
	t.bindStores(tx)
	t.dir, t.lockPath, t.log = w.dir, w.lockPath, w.log
	return t, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return sferrors.Wrap(sferrors.StorageError, "committing transaction", err)
	}
	return nil
}

// Rollback aborts the transaction, discarding every write made through it.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return sferrors.Wrap(sferrors.StorageError, "rolling back transaction", err)
	}
	return nil
}

// Close releases the database handle and the advisory lock file. A closed
// Workspace must not be used again.
func (w *Workspace) Close() error {
	var firstErr error
	if err := w.db.Close(); err != nil {
		firstErr = sferrors.Wrap(sferrors.StorageError, "closing workspace database", err)
	}
	if err := os.Remove(w.lockPath); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = sferrors.Wrap(sferrors.StorageError, "removing workspace lock", err)
	}
	return firstErr
}
