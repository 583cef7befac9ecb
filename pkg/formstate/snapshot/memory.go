package snapshot

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps drafts in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedDraft // formID -> label -> draft
	closed bool
}

type storedDraft struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedDraft),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(formID, label string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[formID] == nil {
		m.data[formID] = make(map[string]storedDraft)
	}

	seq := 1
	for _, d := range m.data[formID] {
		if d.sequence >= seq {
			seq = d.sequence + 1
		}
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[formID][label] = storedDraft{
		data:      stored,
		sequence:  seq,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(formID, label string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	d, ok := m.data[formID][label]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out, nil
}

// List implements Store.
func (m *MemoryStore) List(formID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	drafts := m.data[formID]
	infos := make([]Info, 0, len(drafts))
	for label, d := range drafts {
		infos = append(infos, Info{
			FormID:    formID,
			Label:     label,
			Sequence:  d.sequence,
			Timestamp: d.timestamp,
			Size:      int64(len(d.data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(formID, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if drafts, ok := m.data[formID]; ok {
		delete(drafts, label)
	}
	return nil
}

// DeleteForm implements Store.
func (m *MemoryStore) DeleteForm(formID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, formID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of drafts across all forms.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, drafts := range m.data {
		n += len(drafts)
	}
	return n
}
