package config

import (
	"sync"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu       sync.Mutex
	settings *models.Settings
}

// NewMemStore returns a new in-memory store. Load returns DefaultSettings
// until something is saved.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored settings, or DefaultSettings if none have been saved yet.
func (m *MemStore) Load() (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		def := models.DefaultSettings()
		return &def, nil
	}
	cp := m.settings.DeepCopy()
	return &cp, nil
}

// Save stores a deep copy of the given settings in memory.
func (m *MemStore) Save(settings *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := settings.DeepCopy()
	m.settings = &cp
	return nil
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

// Ensure MemStore implements config.Store
var _ Store = (*MemStore)(nil)
