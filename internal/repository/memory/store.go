// Package memory is an in-process Store used by tests and by deployments
// without a database. Transactions are serialized: only one unit of work runs
// at a time, and a failed unit of work restores the data it started from.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/repository"
)

type dataset struct {
	users   map[string]domain.User
	posts   map[string]domain.NewsPost
	tickets map[string]domain.SupportTicket
}

func newDataset() *dataset {
	return &dataset{
		users:   map[string]domain.User{},
		posts:   map[string]domain.NewsPost{},
		tickets: map[string]domain.SupportTicket{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.posts {
		v.Tags = append([]string(nil), v.Tags...)
		c.posts[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	return c
}

type shared struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

// Store implements repository.Store in memory.
type Store struct {
	s    *shared
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{s: &shared{data: newDataset(), now: time.Now}}
}

// WithClock sets the time source used for created/updated timestamps.
func (st *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		st.s.now = now
	}
	return st
}

func (st *Store) Users() repository.UserRepository {
	return &userRepository{st: st}
}

func (st *Store) Posts() repository.PostRepository {
	return &postRepository{st: st}
}

func (st *Store) Tickets() repository.TicketRepository {
	return &ticketRepository{st: st}
}

// WithTx runs fn exclusively. On error or panic the data is restored.
func (st *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	if st.inTx {
		return fn(ctx, st)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	st.s.txMu.Lock()
	defer st.s.txMu.Unlock()

	st.s.mu.RLock()
	snapshot := st.s.data.clone()
	st.s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			st.restore(snapshot)
			panic(p)
		}
		if err != nil {
			st.restore(snapshot)
		}
	}()

	return fn(ctx, &Store{s: st.s, inTx: true})
}

func (st *Store) restore(snapshot *dataset) {
	st.s.mu.Lock()
	st.s.data = snapshot
	st.s.mu.Unlock()
}

// write applies a mutation. Outside a transaction it waits for running
// transactions so a rollback cannot discard it.
func (st *Store) write(fn func(d *dataset, now time.Time) error) error {
	if !st.inTx {
		st.s.txMu.Lock()
		defer st.s.txMu.Unlock()
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	return fn(st.s.data, st.s.now())
}

func (st *Store) read(fn func(d *dataset) error) error {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	return fn(st.s.data)
}

func newID() string {
	return uuid.NewString()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
