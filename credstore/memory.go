package credstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local [Store]. The zero value is not usable; call [NewMemory].
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: map[string]Record{}}
}

// FindByUsername returns a copy of the stored record.
func (m *Memory) FindByUsername(_ context.Context, username string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[username]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// ApplyUpdate mutates the named record in place.
func (m *Memory) ApplyUpdate(_ context.Context, username string, changes Changes) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[username]
	if !ok {
		return ErrNotFound
	}
	changes.Apply(&rec)
	m.records[username] = rec
	return nil
}

// Put inserts or replaces a record.
func (m *Memory) Put(_ context.Context, record Record) error {
	if record.Username == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidChanges)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Username] = record
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
