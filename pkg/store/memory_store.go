package store

import (
	"sort"
	"sync"

	"healthmate/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local
// development without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	email   map[string]string // email -> user ID
	reports map[string]domain.Report
	vitals  map[string][]domain.Vitals // owner ID -> records in insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		email:   make(map[string]string),
		reports: make(map[string]domain.Report),
		vitals:  make(map[string][]domain.Vitals),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *MemoryStore) SaveReport(r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryStore) GetReport(id string) (domain.Report, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[id]
	return report, ok, nil
}

func (m *MemoryStore) ListReportsByOwner(ownerID string) ([]domain.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Report, 0)
	for _, report := range m.reports {
		if report.UserID == ownerID {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) SaveVitals(v domain.Vitals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vitals[v.UserID] = append(m.vitals[v.UserID], v)
	return nil
}

func (m *MemoryStore) ListVitalsByOwner(ownerID string) ([]domain.Vitals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.vitals[ownerID]
	out := make([]domain.Vitals, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
