// Package memory provides an in-memory store.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu          sync.RWMutex
	profiles    map[string]store.ProfileRecord
	events      map[string][]store.EventRecord // by employee, sorted by date
	settlements map[string]store.SettlementRecord
	byPeriod    map[period]string // settlement ID
	runs        map[string]store.RunRecord
}

type period struct {
	EmployeeID string
	Year       int
	Month      time.Month
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.init()
	return s
}

func (s *Store) init() {
	s.profiles = make(map[string]store.ProfileRecord)
	s.events = make(map[string][]store.EventRecord)
	s.settlements = make(map[string]store.SettlementRecord)
	s.byPeriod = make(map[period]string)
	s.runs = make(map[string]store.RunRecord)
}

func (s *Store) Close() error { return nil }

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	return nil
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *Store) SaveProfile(_ context.Context, rec store.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.profiles[rec.EmployeeID] = rec
	return nil
}

func (s *Store) GetProfile(_ context.Context, employeeID string) (store.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.profiles[employeeID]
	if !ok {
		return store.ProfileRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]store.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.ProfileRecord, 0, len(s.profiles))
	for _, rec := range s.profiles {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Store) AppendEvent(_ context.Context, rec store.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	evs := s.events[rec.EmployeeID]
	at := rec.Event.OccurredOn()
	// Insert after any event on the same date to keep arrival order
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].Event.OccurredOn().After(at)
	})
	evs = append(evs, store.EventRecord{})
	copy(evs[i+1:], evs[i:])
	evs[i] = rec
	s.events[rec.EmployeeID] = evs
	return nil
}

func (s *Store) ListEvents(_ context.Context, employeeID string, month time.Month, year int) ([]store.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.EventRecord
	for _, rec := range s.events[employeeID] {
		at := rec.Event.OccurredOn()
		if at.Year() == year && at.Month() == month {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for emp, evs := range s.events {
		for i, rec := range evs {
			if rec.ID == id {
				s.events[emp] = append(evs[:i:i], evs[i+1:]...)
				return nil
			}
		}
	}
	return store.ErrNotFound
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

func (s *Store) SaveSettlement(_ context.Context, rec store.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPeriod[periodOf(rec)]; exists {
		return store.ErrDuplicateSettlement
	}
	s.putLocked(rec)
	return nil
}

func (s *Store) ReplaceSettlement(_ context.Context, rec store.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, exists := s.byPeriod[periodOf(rec)]; exists {
		delete(s.settlements, old)
	}
	s.putLocked(rec)
	return nil
}

func (s *Store) putLocked(rec store.SettlementRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.settlements[rec.ID] = rec
	s.byPeriod[periodOf(rec)] = rec.ID
}

func (s *Store) GetSettlement(_ context.Context, id string) (store.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.settlements[id]
	if !ok {
		return store.SettlementRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) ListSettlements(_ context.Context, employeeID string) ([]store.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.SettlementRecord
	for _, rec := range s.settlements {
		if rec.EmployeeID == employeeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *Store) HasSettlement(_ context.Context, employeeID string, month time.Month, year int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPeriod[period{EmployeeID: employeeID, Year: year, Month: month}]
	return ok, nil
}

func periodOf(rec store.SettlementRecord) period {
	return period{EmployeeID: rec.EmployeeID, Year: rec.Year, Month: rec.Month}
}

// =============================================================================
// RUNS
// =============================================================================

func (s *Store) SaveRun(_ context.Context, rec store.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Errors = append([]string(nil), rec.Errors...)
	s.runs[rec.ID] = rec
	return nil
}

func (s *Store) ListRuns(_ context.Context) ([]store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
