// Package domain holds the Registry Service's state shapes: authors,
// modules, releases and auth tokens, per spec.md §4.6.
package domain

import "time"

// Author is a registered publisher, identified by the OAuth subject their
// identity provider issued.
type Author struct {
	Name         string    `db:"name" json:"name"`
	OAuthSubject string    `db:"oauth_subject" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Module is one published name under one author, tracking the highest
// semver release published so far.
type Module struct {
	ID            int64   `db:"id" json:"-"`
	Author        string  `db:"author" json:"author"`
	Name          string  `db:"name" json:"name"`
	Description   string  `db:"description" json:"description"`
	LatestVersion *string `db:"latest_version" json:"latest"`
	Featured      bool    `db:"featured" json:"featured"`
}

// Release is one published version of a Module's source.
type Release struct {
	ID          int64     `db:"id" json:"-"`
	ModuleID    int64     `db:"module_id" json:"-"`
	Version     string    `db:"version" json:"version"`
	Code        string    `db:"code" json:"code"`
	Downloads   int64     `db:"downloads" json:"downloads"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

// AuthToken is a login session: a random state token that starts out
// unbound (issued by login) and, once the OAuth callback completes
// (authorize), carries the resolved author name a client can retrieve with
// whoami. Tokens past ExpiresAt are pruned by cron, whether a User is bound
// or not.
type AuthToken struct {
	State     string    `db:"state" json:"-"`
	Code      *string   `db:"code" json:"-"`
	User      *string   `db:"user" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"-"`
}

// SearchResult is one row of a search response.
type SearchResult struct {
	Author      string  `json:"author"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latest      string  `json:"latest"`
	Featured    bool    `json:"featured"`
	Downloads   int64   `json:"downloads"`
}

// ModuleInfo is the response shape for info.
type ModuleInfo struct {
	Author      string  `json:"author"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latest      *string `json:"latest"`
}

// DownloadResult is the response shape for download.
type DownloadResult struct {
	Author  string `json:"author"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Code    string `json:"code"`
}

// PublishResult is the response shape for publish.
type PublishResult struct {
	Author  string `json:"author"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// WhoamiResult is the response shape for whoami.
type WhoamiResult struct {
	User string `json:"user"`
}
