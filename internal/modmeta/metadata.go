// Package modmeta parses the leading metadata block of a module source
// file: a run of "-- Key: value" annotation comments describing the module
// before its executable script source begins.
package modmeta

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// Metadata is the structured header extracted from a module's source.
type Metadata struct {
	Description   string
	Version       *semver.Version
	Author        string
	License       string
	Source        string
	KeyringAccess []string
}

// recognizedKeys is the set of accepted annotation keys, lower-cased;
// keys are matched case-insensitively.
var recognizedKeys = map[string]bool{
	"description":    true,
	"version":        true,
	"author":         true,
	"license":        true,
	"source":         true,
	"keyring-access": true,
}

// Parse reads the leading "-- Key: value" lines of src and returns the
// Metadata they describe. Blank lines are skipped; parsing stops at the
// first line that is not a "--" comment containing a colon, and everything
// from there on is the module's executable body and is not inspected. An unknown key anywhere in the
// leading block is rejected with MetadataUnknownKey; a malformed Version is
// rejected with MetadataVersion.
func Parse(src string) (*Metadata, error) {
	md := &Metadata{}

	lines := strings.Split(src, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "--") {
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
		key, value, ok := strings.Cut(body, ":")
		if !ok {
			break
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if !recognizedKeys[key] {
			return nil, sferrors.New(sferrors.MetadataUnknownKey, "unknown metadata key: "+key)
		}

		switch key {
		case "description":
			md.Description = value
		case "version":
			v, err := semver.NewVersion(value)
			if err != nil {
				return nil, sferrors.Wrap(sferrors.MetadataVersion, "invalid version: "+value, err)
			}
			md.Version = v
		case "author":
			md.Author = value
		case "license":
			md.License = value
		case "source":
			md.Source = value
		case "keyring-access":
			md.KeyringAccess = splitList(value)
		}
	}

	if md.Version == nil {
		return nil, sferrors.New(sferrors.MetadataVersion, "module is missing a Version annotation")
	}

	return md, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CanAccessKeyring reports whether the module's declared keyring_access
// permits reading the given namespace.
func (m *Metadata) CanAccessKeyring(namespace string) bool {
	for _, ns := range m.KeyringAccess {
		if ns == namespace {
			return true
		}
	}
	return false
}
