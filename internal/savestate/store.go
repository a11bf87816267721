// Package savestate keeps the AVDECC fast-connect saved states: a short,
// file-backed list of listener to talker/controller associations used to
// re-establish connections after a restart.
//
// A Store is not safe for concurrent use. Callers serialize access.
package savestate

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// MaxSavedStates is the number of saved states kept. Adding to a full store
// evicts the oldest entry.
const MaxSavedStates = 4

// Flags reports whether fast connect is enabled. It is consulted on every
// Upsert so the setting can change while the store is live.
type Flags interface {
	FastConnectSupported() bool
}

// FlagFunc adapts a function to the Flags interface.
type FlagFunc func() bool

func (f FlagFunc) FastConnectSupported() bool { return f() }

type loadState int

const (
	unloaded loadState = iota
	loaded
)

// Store is the saved-state list and its backing file. Index 0 is the oldest
// entry; new entries are appended.
//
// Friendly names are kept unique by Upsert only. Nothing else in the store
// enforces it.
type Store struct {
	path    string
	flags   Flags
	strict  bool
	state   loadState
	records []models.SavedState
}

// Option configures a Store.
type Option func(*Store)

// WithStrictPersist makes mutations roll back in memory when the file write
// fails, so memory and disk never disagree. Without it a failed write
// leaves the change in memory only.
func WithStrictPersist() Option {
	return func(s *Store) { s.strict = true }
}

// New returns a Store backed by path. Nothing is read until the first call.
// A nil flags value behaves as if fast connect were always enabled.
func New(path string, flags Flags, opts ...Option) *Store {
	if flags == nil {
		flags = FlagFunc(func() bool { return true })
	}
	s := &Store{path: path, flags: flags}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the configured path, including any comma suffix.
func (s *Store) Path() string { return s.path }

// Reload discards the in-memory list. The next call re-reads the file.
func (s *Store) Reload() {
	s.state = unloaded
	s.records = nil
}

func (s *Store) ensureLoaded() error {
	if s.state == loaded {
		return nil
	}
	records, err := Load(s.path)
	if err != nil {
		slog.Error("savestate: error reading saved state file", "path", s.path, "err", err)
		return err
	}
	s.records = records
	s.state = loaded
	slog.Info("savestate: loaded saved states", "path", s.path, "count", len(records))
	return nil
}

// Len returns the number of saved states.
func (s *Store) Len() (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

// All returns a copy of the saved states, oldest first.
func (s *Store) All() ([]models.SavedState, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return slices.Clone(s.records), nil
}

// GetAt returns the saved state at index. ok is false when the index is
// out of range or the file could not be loaded.
func (s *Store) GetAt(index int) (st models.SavedState, ok bool) {
	if err := s.ensureLoaded(); err != nil {
		return models.SavedState{}, false
	}
	if index < 0 || index >= len(s.records) {
		return models.SavedState{}, false
	}
	return s.records[index], true
}

// Find returns the index of the first saved state named name.
func (s *Store) Find(name string) (int, bool) {
	for i := 0; ; i++ {
		st, ok := s.GetAt(i)
		if !ok {
			return -1, false
		}
		if st.FriendlyName == name {
			return i, true
		}
	}
}

// Upsert records that the listener called name is connected to talker by
// controller. An identical entry is left alone. An entry for the same
// listener with different identifiers is replaced by a new entry at the
// end of the list. When the store is full the oldest entry is evicted.
//
// Upsert returns models.ErrInvalidName for names that cannot be written as
// a single line, and models.ErrFastConnectDisabled if fast connect is off.
func (s *Store) Upsert(name string, talker, controller models.EntityID) error {
	if err := models.ValidateFriendlyName(name); err != nil {
		return err
	}
	if !s.flags.FastConnectSupported() {
		slog.Debug("savestate: fast connect not supported, not saving", "listener", name)
		return models.ErrFastConnectDisabled
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	name = models.TruncateFriendlyName(name)
	before := slices.Clone(s.records)

	if i, found := s.Find(name); found {
		if s.records[i].Matches(talker, controller) {
			return nil
		}
		// The final rewrite below covers this removal.
		s.records = slices.Delete(s.records, i, i+1)
	}

	for len(s.records) >= MaxSavedStates {
		slog.Debug("savestate: evicting oldest saved state", "listener", s.records[0].FriendlyName)
		s.records = slices.Delete(s.records, 0, 1)
	}
	s.records = append(s.records, models.SavedState{
		FriendlyName:       name,
		TalkerEntityID:     talker,
		ControllerEntityID: controller,
	})

	if err := s.persist(before); err != nil {
		slog.Error("savestate: error saving state",
			"listener", name,
			"talker", talker,
			"controller", controller,
			"err", err,
		)
		return err
	}

	slog.Debug("savestate: new saved state",
		"listener", name,
		"talker", talker,
		"controller", controller,
	)
	return nil
}

// Clear removes the saved state for the listener called name.
func (s *Store) Clear(name string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	i, found := s.Find(models.TruncateFriendlyName(name))
	if !found {
		slog.Warn("savestate: unable to find saved state to clear", "listener", name)
		return fmt.Errorf("%w: listener %q", models.ErrNotFound, name)
	}
	if err := s.DeleteAt(i); err != nil {
		return err
	}
	slog.Debug("savestate: cleared saved state", "listener", name)
	return nil
}

// DeleteAt removes the saved state at index, keeping the order of the rest.
func (s *Store) DeleteAt(index int) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("%w: index %d", models.ErrNotFound, index)
	}
	before := slices.Clone(s.records)
	s.records = slices.Delete(s.records, index, index+1)
	return s.persist(before)
}

// persist rewrites the file from memory. before is restored on failure in
// strict mode.
func (s *Store) persist(before []models.SavedState) error {
	if err := Persist(s.path, s.records); err != nil {
		slog.Warn("savestate: error writing saved state file", "path", s.path, "err", err)
		if s.strict {
			s.records = before
		}
		return err
	}
	slog.Debug("savestate: saved state file", "path", s.path, "count", len(s.records))
	return nil
}
