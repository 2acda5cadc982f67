// Package keyringstore implements an encrypted-at-rest, namespace-keyed
// credential file backing the Host API's keyring() function. It is a local
// file, not a remote secrets manager: one AES-GCM-encrypted JSON blob,
// keyed by a passphrase stretched with scrypt.
package keyringstore

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"sync"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// Entry is one credential stored under a namespace.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type onDiskFormat struct {
	Salt       []byte `json:"salt"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store is an open keyring file: namespace -> entries, held decrypted in
// memory and re-encrypted to disk on every mutation.
type Store struct {
	mu         sync.RWMutex
	path       string
	salt       []byte
	cipher     Cipher
	namespaces map[string][]Entry
}

// Open loads the keyring at path, decrypting it with passphrase. A missing
// file is treated as an empty, freshly salted keyring.
func Open(path, passphrase string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, sferrors.Wrap(sferrors.Internal, "generating keyring salt", err)
		}
		key, err := deriveKey(passphrase, salt)
		if err != nil {
			return nil, sferrors.Wrap(sferrors.Internal, "deriving keyring key", err)
		}
		c, err := newAESCipher(key)
		if err != nil {
			return nil, sferrors.Wrap(sferrors.Internal, "constructing keyring cipher", err)
		}
		return &Store{path: path, salt: salt, cipher: c, namespaces: make(map[string][]Entry)}, nil
	}
	if err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "reading keyring file", err)
	}

	var onDisk onDiskFormat
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, sferrors.Wrap(sferrors.StorageError, "parsing keyring file", err)
	}
	key, err := deriveKey(passphrase, onDisk.Salt)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.Internal, "deriving keyring key", err)
	}
	c, err := newAESCipher(key)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.Internal, "constructing keyring cipher", err)
	}
	plaintext, err := c.Decrypt(onDisk.Ciphertext)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.KeyringDenied, "keyring passphrase is incorrect", err)
	}
	namespaces := make(map[string][]Entry)
	if len(plaintext) > 0 {
		if err := json.Unmarshal(plaintext, &namespaces); err != nil {
			return nil, sferrors.Wrap(sferrors.StorageError, "parsing decrypted keyring contents", err)
		}
	}
	return &Store{path: path, salt: onDisk.Salt, cipher: c, namespaces: namespaces}, nil
}

// Get returns the entries stored under namespace, or nil if none exist.
func (s *Store) Get(namespace string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.namespaces[namespace]...)
}

// Put appends or replaces the entry named key within namespace and persists
// the keyring to disk.
func (s *Store) Put(namespace string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.namespaces[namespace]
	replaced := false
	for i, e := range entries {
		if e.Key == entry.Key {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	s.namespaces[namespace] = entries

	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	plaintext, err := json.Marshal(s.namespaces)
	if err != nil {
		return sferrors.Wrap(sferrors.Internal, "marshaling keyring contents", err)
	}
	ciphertext, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return sferrors.Wrap(sferrors.Internal, "encrypting keyring", err)
	}
	onDisk := onDiskFormat{Salt: s.salt, Ciphertext: ciphertext}
	data, err := json.Marshal(onDisk)
	if err != nil {
		return sferrors.Wrap(sferrors.Internal, "marshaling keyring file", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return sferrors.Wrap(sferrors.StorageError, "writing keyring file", err)
	}
	return nil
}
