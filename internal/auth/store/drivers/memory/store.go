// Package memory is an in-memory store driver with the same transactional
// semantics as the sqlite driver. It backs unit tests and dev setups where
// durability does not matter.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
)

// state is the entire dataset. Transactions work on a deep copy that is
// swapped in on commit, so a failed multi-step operation leaves nothing
// behind.
type state struct {
	users  map[int64]domain.User
	emails map[string]int64 // lowercased email -> user id
	nextID int64
	tokens map[string]domain.RefreshTokenRecord
}

func newState() *state {
	return &state{
		users:  make(map[int64]domain.User),
		emails: make(map[string]int64),
		nextID: 1,
		tokens: make(map[string]domain.RefreshTokenRecord),
	}
}

func (st *state) clone() *state {
	cp := &state{
		users:  make(map[int64]domain.User, len(st.users)),
		emails: make(map[string]int64, len(st.emails)),
		nextID: st.nextID,
		tokens: make(map[string]domain.RefreshTokenRecord, len(st.tokens)),
	}
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.emails {
		cp.emails[k] = v
	}
	for k, v := range st.tokens {
		cp.tokens[k] = v
	}
	return cp
}

type Store struct {
	// mu serializes transactions and guards direct access. Held for the
	// whole lifetime of a Tx, which keeps the conditional rotation update
	// linearizable exactly like the sqlite row lock does.
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// session abstracts "locked per call" (plain store) from "already locked"
// (inside a transaction) so both share one repo implementation.
type session struct {
	state  func() *state
	lock   func()
	unlock func()
}

func (s *Store) session() session {
	return session{
		state:  func() *state { return s.state },
		lock:   s.mu.Lock,
		unlock: s.mu.Unlock,
	}
}

func (s *Store) Users() store.Users                 { return &usersRepo{ses: s.session()} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{ses: s.session()} }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, work: s.state.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

var errTxDone = errors.New("memory: transaction already finished")

type txStore struct {
	parent *Store
	work   *state
	done   bool
}

func (t *txStore) session() session {
	noop := func() {}
	return session{
		state:  func() *state { return t.work },
		lock:   noop,
		unlock: noop,
	}
}

func (t *txStore) Users() store.Users                 { return &usersRepo{ses: t.session()} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{ses: t.session()} }

func (t *txStore) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.parent.state = t.work
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, errors.New("memory: nested transactions not supported")
}
func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return errors.New("memory: nested transactions not supported")
}
