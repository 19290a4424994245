package databases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lifeline-response/lifeline-api/models"
)

// memoryRescuerDatabase is the in-memory RescuerDatabase counterpart to
// memoryReportDatabase.
type memoryRescuerDatabase struct {
	mu       sync.RWMutex
	rescuers map[string]*models.Rescuer
}

// NewMemoryRescuerDatabase returns an empty in-memory rescuer store.
func NewMemoryRescuerDatabase() RescuerDatabase {
	return &memoryRescuerDatabase{rescuers: make(map[string]*models.Rescuer)}
}

func (m *memoryRescuerDatabase) Create(ctx context.Context, rescuer *models.Rescuer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rescuers[rescuer.ID]; ok {
		return ErrDuplicateID
	}
	cp := *rescuer
	m.rescuers[rescuer.ID] = &cp
	return nil
}

func (m *memoryRescuerDatabase) Get(ctx context.Context, id string) (*models.Rescuer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rescuers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRescuerDatabase) List(ctx context.Context) ([]models.Rescuer, error) {
	m.mu.RLock()
	rescuers := make([]models.Rescuer, 0, len(m.rescuers))
	for _, r := range m.rescuers {
		rescuers = append(rescuers, *r)
	}
	m.mu.RUnlock()

	sort.Slice(rescuers, func(i, j int) bool {
		if !rescuers[i].RegisteredAt.Equal(rescuers[j].RegisteredAt) {
			return rescuers[i].RegisteredAt.Before(rescuers[j].RegisteredAt)
		}
		return rescuers[i].ID < rescuers[j].ID
	})
	return rescuers, nil
}

func (m *memoryRescuerDatabase) Heartbeat(ctx context.Context, id string, at time.Time) (*models.Rescuer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rescuers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if at.After(r.LastSeen) {
		r.LastSeen = at
	}
	r.Active = true
	cp := *r
	return &cp, nil
}

func (m *memoryRescuerDatabase) UpdateLocation(ctx context.Context, id string, loc models.Location, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rescuers[id]
	if !ok {
		return ErrNotFound
	}
	l := loc
	r.LastLocation = &l
	if at.After(r.LastSeen) {
		r.LastSeen = at
	}
	r.Active = true
	return nil
}

func (m *memoryRescuerDatabase) MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rescuers {
		if r.Active && r.LastSeen.Before(cutoff) {
			r.Active = false
			n++
		}
	}
	return n, nil
}

func (m *memoryRescuerDatabase) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rescuers)), nil
}

func (m *memoryRescuerDatabase) CountActive(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, r := range m.rescuers {
		if r.Active {
			n++
		}
	}
	return n, nil
}
