// internal/storage/memory.go
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/letscook/internal/storage/models"
)

// Memory keeps records in process. It is used when no database is
// configured and in tests.
type Memory struct {
	mu      sync.RWMutex
	nextID  uint
	actions map[string]*models.Action
	pools   map[string][]*models.PoolSnapshot
	now     func() time.Time
}

// NewMemory создает хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{
		actions: make(map[string]*models.Action),
		pools:   make(map[string][]*models.PoolSnapshot),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) stamp(b *models.BaseModel) {
	m.nextID++
	now := m.now()
	b.ID = m.nextID
	b.CreatedAt = now
	b.UpdatedAt = now
}

func (m *Memory) SaveAction(_ context.Context, action *models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[action.Signature]; ok {
		return fmt.Errorf("action %s already saved", action.Signature)
	}
	m.stamp(&action.BaseModel)
	cp := *action
	m.actions[action.Signature] = &cp
	return nil
}

func (m *Memory) GetAction(_ context.Context, signature string) (*models.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListActions(_ context.Context, walletAddress string, limit, offset int) ([]*models.Action, error) {
	m.mu.RLock()
	var out []*models.Action
	for _, a := range m.actions {
		if a.WalletAddress == walletAddress {
			cp := *a
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateActionStatus(_ context.Context, signature, status, errorMsg string, executionTime time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[signature]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.ErrorMessage = errorMsg
	a.ExecutionTime = executionTime.Seconds()
	a.UpdatedAt = m.now()
	return nil
}

func (m *Memory) SavePoolSnapshot(_ context.Context, snapshot *models.PoolSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(&snapshot.BaseModel)
	cp := *snapshot
	m.pools[snapshot.PoolID] = append(m.pools[snapshot.PoolID], &cp)
	return nil
}

func (m *Memory) LatestPoolSnapshot(_ context.Context, poolID string) (*models.PoolSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.pools[poolID]
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	latest := snaps[0]
	for _, s := range snaps[1:] {
		if !s.LastUpdate.Before(latest.LastUpdate) {
			latest = s
		}
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) RunMigrations() error { return nil }

func (m *Memory) Close() error { return nil }

var _ Storage = (*Memory)(nil)
