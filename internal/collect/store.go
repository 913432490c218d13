// Package collect owns the collected address set: where it lives and who hears
// about changes to it.
package collect

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/db"
)

// Store persists the collected set. Identity is the canonical address, so
// adding an address that differs only in case is a no-op.
type Store interface {
	GetAll(ctx context.Context) ([]address.Address, error)
	AddMany(ctx context.Context, addrs []address.Address) (int, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// SQLStore keeps the set in the SQLite emails table.
type SQLStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewSQLStore returns a store over an initialized database.
func NewSQLStore(database *sql.DB) *SQLStore {
	return &SQLStore{DB: database, Now: time.Now}
}

func (s *SQLStore) GetAll(ctx context.Context) ([]address.Address, error) {
	rows, err := db.ListEmails(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]address.Address, len(rows))
	for i, r := range rows {
		out[i] = address.Address{Local: r.Local, Domain: r.Domain}
	}
	return out, nil
}

func (s *SQLStore) AddMany(ctx context.Context, addrs []address.Address) (int, error) {
	added, err := db.AddEmails(ctx, s.DB, addrs, s.Now().Unix())
	if err != nil {
		return 0, err
	}
	return len(added), nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := db.ClearEmails(ctx, s.DB)
	return err
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	return db.CountEmails(ctx, s.DB)
}

// MemoryStore is an in-process Store for dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []address.Address
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (m *MemoryStore) GetAll(context.Context) ([]address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]address.Address, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *MemoryStore) AddMany(_ context.Context, addrs []address.Address) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, a := range addrs {
		key := a.Canonical()
		if _, ok := m.seen[key]; ok {
			continue
		}
		m.seen[key] = struct{}{}
		m.order = append(m.order, a)
		added++
	}
	return added, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = make(map[string]struct{})
	m.order = nil
	return nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order), nil
}
