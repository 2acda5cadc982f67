// Package modindex implements the local Module Index: a filesystem cache
// of installed modules keyed by author/name@version, populated either from
// a registry download or by loading a module source file directly.
package modindex

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rcpklmc/sn0int/internal/modmeta"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// Key identifies one installed module release.
type Key struct {
	Author  string
	Name    string
	Version string
}

// String renders the key in its canonical author/name@version form.
func (k Key) String() string {
	return k.Author + "/" + k.Name + "@" + k.Version
}

// Entry is one installed module: its parsed metadata plus the source text
// the runtime sandboxes.
type Entry struct {
	Key      Key
	Source   string
	Metadata *modmeta.Metadata
}

// Index is a filesystem-backed cache of installed modules rooted at dir,
// one file per release at <dir>/<author>/<name>/<version>.source.
type Index struct {
	mu   sync.RWMutex
	dir  string
	cache map[Key]*Entry
}

// Open prepares the index rooted at dir, creating it if necessary. Nothing
// is eagerly loaded; entries are read through on first Get.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "creating module index directory", err)
	}
	return &Index{dir: dir, cache: make(map[Key]*Entry)}, nil
}

func (idx *Index) path(key Key) string {
	return filepath.Join(idx.dir, key.Author, key.Name, key.Version+".source")
}

// Put parses source's metadata header and records it under key, both in
// memory and on disk, overwriting any existing release at the same key.
func (idx *Index) Put(key Key, source string) (*Entry, error) {
	md, err := modmeta.Parse(source)
	if err != nil {
		return nil, err
	}

	path := idx.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "creating module directory", err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "writing module source", err)
	}

	entry := &Entry{Key: key, Source: source, Metadata: md}
	idx.mu.Lock()
	idx.cache[key] = entry
	idx.mu.Unlock()
	return entry, nil
}

// Get returns the installed release at key, reading through to disk on a
// cache miss and failing with NotFound if it was never installed.
func (idx *Index) Get(key Key) (*Entry, error) {
	idx.mu.RLock()
	entry, ok := idx.cache[key]
	idx.mu.RUnlock()
	if ok {
		return entry, nil
	}

	data, err := os.ReadFile(idx.path(key))
	if os.IsNotExist(err) {
		return nil, sferrors.New(sferrors.NotFound, "module "+key.String()+" is not installed")
	}
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "reading module source", err)
	}
	md, err := modmeta.Parse(string(data))
	if err != nil {
		return nil, err
	}
	entry = &Entry{Key: key, Source: string(data), Metadata: md}

	idx.mu.Lock()
	idx.cache[key] = entry
	idx.mu.Unlock()
	return entry, nil
}

// Remove deletes the installed release at key from disk and cache.
func (idx *Index) Remove(key Key) error {
	idx.mu.Lock()
	delete(idx.cache, key)
	idx.mu.Unlock()

	if err := os.Remove(idx.path(key)); err != nil && !os.IsNotExist(err) {
		return sferrors.Wrap(sferrors.StorageError, "removing module source", err)
	}
	return nil
}

// List enumerates every installed author/name combination and the
// versions installed under it, walking the filesystem directly so it
// reflects releases installed outside this process too.
func (idx *Index) List() ([]Key, error) {
	var keys []Key
	authors, err := os.ReadDir(idx.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sferrors.Wrap(sferrors.StorageError, "listing module index", err)
	}
	for _, a := range authors {
		if !a.IsDir() {
			continue
		}
		namesDir := filepath.Join(idx.dir, a.Name())
		names, err := os.ReadDir(namesDir)
		if err != nil {
			return nil, sferrors.Wrap(sferrors.StorageError, "listing module index", err)
		}
		for _, n := range names {
			if !n.IsDir() {
				continue
			}
			versionsDir := filepath.Join(namesDir, n.Name())
			versions, err := os.ReadDir(versionsDir)
			if err != nil {
				return nil, sferrors.Wrap(sferrors.StorageError, "listing module index", err)
			}
			for _, v := range versions {
				if v.IsDir() {
					continue
				}
				version := v.Name()
				version = version[:len(version)-len(filepath.Ext(version))]
				keys = append(keys, Key{Author: a.Name(), Name: n.Name(), Version: version})
			}
		}
	}
	return keys, nil
}
