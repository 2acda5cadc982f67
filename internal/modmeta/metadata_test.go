package modmeta

import (
	"testing"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

func TestParseValidHeader(t *testing.T) {
	src := `-- Description: Looks up subdomains
-- Version: 0.3.1
-- Author: example
-- License: MIT
-- Source: domain
-- Keyring-Access: shodan, hunter

function run(arg) {}
`
	md, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Description != "Looks up subdomains" {
		t.Fatalf("unexpected description: %q", md.Description)
	}
	if md.Version.String() != "0.3.1" {
		t.Fatalf("unexpected version: %v", md.Version)
	}
	if md.Source != "domain" {
		t.Fatalf("unexpected source: %q", md.Source)
	}
	if len(md.KeyringAccess) != 2 || md.KeyringAccess[0] != "shodan" || md.KeyringAccess[1] != "hunter" {
		t.Fatalf("unexpected keyring access: %v", md.KeyringAccess)
	}
	if !md.CanAccessKeyring("shodan") || md.CanAccessKeyring("other") {
		t.Fatalf("CanAccessKeyring behaved incorrectly")
	}
}

func TestParseUnknownKeyFails(t *testing.T) {
	src := `-- Description: x
-- Version: 0.1.0
-- Homepage: https://example.com

function run(arg) {}
`
	_, err := Parse(src)
	if !sferrors.Is(err, sferrors.MetadataUnknownKey) {
		t.Fatalf("expected MetadataUnknownKey, got %v", err)
	}
}

func TestParseMalformedVersionFails(t *testing.T) {
	src := `-- Description: x
-- Version: not-a-semver

function run(arg) {}
`
	_, err := Parse(src)
	if !sferrors.Is(err, sferrors.MetadataVersion) {
		t.Fatalf("expected MetadataVersion, got %v", err)
	}
}

func TestParseMissingVersionFails(t *testing.T) {
	src := `-- Description: x

function run(arg) {}
`
	_, err := Parse(src)
	if !sferrors.Is(err, sferrors.MetadataVersion) {
		t.Fatalf("expected MetadataVersion for missing version, got %v", err)
	}
}
