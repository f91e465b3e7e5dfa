package accounts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]Account
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[int64]Account)}
}

func (m *MemoryRepository) List(ctx context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int64) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return a, nil
}

func (m *MemoryRepository) Create(ctx context.Context, a Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return Account{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, a.AccountNumber)
		}
	}
	m.nextID++
	now := time.Now().UTC()
	a.ID = m.nextID
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = a
	return a, nil
}

func (m *MemoryRepository) Update(ctx context.Context, a Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.accounts[a.ID]
	if !ok {
		return Account{}, fmt.Errorf("%w: %d", ErrNotFound, a.ID)
	}
	a.AccountNumber = existing.AccountNumber
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	m.accounts[a.ID] = a
	return a, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	delete(m.accounts, id)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
