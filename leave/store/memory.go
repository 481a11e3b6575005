// Package store provides the in-memory Store implementation used by tests
// and development runs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leavebridge/engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	nextID  leave.RecordID
	records map[leave.RecordID]*leave.Record
	members map[int64]*leave.Member
}

func NewMemory() *Memory {
	return &Memory{
		nextID:  1,
		records: make(map[leave.RecordID]*leave.Record),
		members: make(map[int64]*leave.Member),
	}
}

// AddMember seeds a member for tests and dev runs.
func (m *Memory) AddMember(member *leave.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *member
	m.members[member.ID] = &cp
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

func (m *Memory) FindByID(_ context.Context, id leave.RecordID) (*leave.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, &leave.NotFoundError{ID: id}
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) FindOverlapping(_ context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return m.filter(func(rec *leave.Record) bool {
		return rec.Range().Intersects(r)
	}), nil
}

func (m *Memory) FindFullDayHolidaysOverlapping(_ context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return m.filter(func(rec *leave.Record) bool {
		return rec.Holiday && rec.AllDay && rec.Range().Intersects(r)
	}), nil
}

func (m *Memory) FindPartialHolidaysOverlapping(_ context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return m.filter(func(rec *leave.Record) bool {
		return rec.Holiday && !rec.AllDay && rec.Range().Intersects(r)
	}), nil
}

func (m *Memory) FindDeductibleOverlapping(_ context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return m.filter(func(rec *leave.Record) bool {
		return rec.Type.Deductible() && rec.Range().Intersects(r)
	}), nil
}

func (m *Memory) FindByOwner(_ context.Context, ownerID int64) ([]*leave.Record, error) {
	return m.filter(func(rec *leave.Record) bool {
		return rec.OwnerID == ownerID
	}), nil
}

func (m *Memory) FindByExternalEventIDs(_ context.Context, ids []string) ([]*leave.Record, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return m.filter(func(rec *leave.Record) bool {
		return rec.ExternalEventID != "" && wanted[rec.ExternalEventID]
	}), nil
}

func (m *Memory) Save(_ context.Context, rec *leave.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
		m.nextID++
	} else if _, ok := m.records[rec.ID]; !ok {
		// Match the SQL store: updating a vanished row is not success.
		return &leave.NotFoundError{ID: rec.ID}
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *Memory) Delete(_ context.Context, id leave.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return &leave.NotFoundError{ID: id}
	}
	delete(m.records, id)
	return nil
}

// =============================================================================
// MEMBER STORE INTERFACE
// =============================================================================

func (m *Memory) FindMember(_ context.Context, id int64) (*leave.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, leave.ErrNotFound)
	}
	cp := *member
	return &cp, nil
}

func (m *Memory) ListMembers(_ context.Context) ([]*leave.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*leave.Member, 0, len(m.members))
	for _, member := range m.members {
		cp := *member
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Memory) filter(keep func(*leave.Record) bool) []*leave.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*leave.Record
	for _, rec := range m.records {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
