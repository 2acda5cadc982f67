// Package host implements the Host API Surface: the fixed set of Go
// functions bound into a module's goja.Runtime sandbox (JSON, hashing,
// encoding, network, database, keyring, control). Every exposed function
// follows the error-slot convention: it clears State.err on entry and sets
// it on failure, mirroring original_source/src/runtime/json.rs's
// state.set_error(err), so the module runtime can consult one place after
// the call to decide whether to roll back the seed's transaction.
package host

import (
	"context"
	"sync"

	"github.com/rcpklmc/sn0int/internal/entity"
	"github.com/rcpklmc/sn0int/internal/keyringstore"
	"github.com/rcpklmc/sn0int/internal/modmeta"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

// State is the per-invocation context every host function closes over: the
// open transaction a module's db_* calls write into, its declared
// metadata (for keyring_access checks), and the shared error slot.
type State struct {
	mu  sync.Mutex
	err error

	Ctx       context.Context
	Tx        *entity.Tx
	Metadata  *modmeta.Metadata
	Keyring   *keyringstore.Store
	ScriptLog *logger.ScriptLog
	ModuleRef string
	SeedValue string

	Interactive bool
	Stdin       func() (string, error)

	added   int
	updated int

	sessions sessionTable
	sockets  socketTable
}

// RecordInsert and RecordUpdate tally the rows a seed's db_insert and
// db_update calls inserted or changed. The module runtime reads them back
// when the seed's script returns and adds them to RunSummary.Added/Updated
// only if the seed's transaction then commits.
func (s *State) RecordInsert() {
	s.mu.Lock()
	s.added++
	s.mu.Unlock()
}

func (s *State) RecordUpdate() {
	s.mu.Lock()
	s.updated++
	s.mu.Unlock()
}

// Counts reads the current added/updated tallies.
func (s *State) Counts() (added, updated int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added, s.updated
}

// NewState constructs a fresh per-seed State. Callers fill in Tx, Metadata
// and the other dependencies before binding it into a goja.Runtime.
func NewState(ctx context.Context) *State {
	return &State{
		Ctx:      ctx,
		sessions: sessionTable{conns: make(map[int64]*httpSession)},
		sockets:  socketTable{conns: make(map[int64]*socketConn)},
	}
}

// ClearError resets the error slot; every host function calls this on
// entry, before doing any work.
func (s *State) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// SetError records err in the slot and returns it unchanged, so call sites
// can write "return st.SetError(err)"-shaped one-liners.
func (s *State) SetError(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

// Err reads the current error slot.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
