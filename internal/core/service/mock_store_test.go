package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rl1809/medstock/internal/core/domain"
)

// Mock RecordStore keeping each collection as serialized JSON, so every
// Load hands out fresh copies the way a real backend does.
type mockRecordStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{data: make(map[string][]byte)}
}

func (m *mockRecordStore) Load(ctx context.Context, name string) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	raw, ok := m.data[name]
	if !ok {
		return []domain.Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []domain.Record
	if err := dec.Decode(&records); err != nil {
		return []domain.Record{}, nil
	}
	return records, nil
}

func (m *mockRecordStore) Save(ctx context.Context, name string, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	if records == nil {
		records = []domain.Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	m.data[name] = raw
	m.saves++
	return nil
}

func (m *mockRecordStore) Ping(ctx context.Context) error {
	return nil
}

func (m *mockRecordStore) seed(name, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = []byte(raw)
}

func (m *mockRecordStore) raw(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[name])
}

var errBackend = errors.New("backend unavailable")
