package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
	"github.com/micro-nova/avdecc-fastconnect/internal/savestate"
)

// SaveConnection records that listener is connected to talker by controller.
// It is a no-op returning models.ErrFastConnectDisabled when fast connect is
// turned off.
func (c *Controller) SaveConnection(ctx context.Context, listener models.Listener, talker, controller models.EntityID) error {
	if listener.FriendlyName == "" {
		return models.ErrBadRequest("friendly_name is required")
	}
	return c.apply(ctx, models.EventSaved, listener.FriendlyName, func(s *savestate.Store) error {
		return s.Upsert(listener.FriendlyName, talker, controller)
	})
}

// ClearConnection forgets the saved state for listener.
func (c *Controller) ClearConnection(ctx context.Context, listener models.Listener) error {
	return c.apply(ctx, models.EventCleared, listener.FriendlyName, func(s *savestate.Store) error {
		return s.Clear(listener.FriendlyName)
	})
}

// DeleteSavedState removes the saved state at index.
func (c *Controller) DeleteSavedState(ctx context.Context, index int) error {
	return c.apply(ctx, models.EventDeleted, "", func(s *savestate.Store) error {
		return s.DeleteAt(index)
	})
}

// SavedStates returns all saved states, oldest first.
func (c *Controller) SavedStates() ([]models.SavedState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// SavedState returns the saved state at index.
func (c *Controller) SavedState(index int) (models.SavedState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Surface load errors separately from a missing index.
	if _, err := c.store.Len(); err != nil {
		return models.SavedState{}, err
	}
	st, ok := c.store.GetAt(index)
	if !ok {
		return models.SavedState{}, fmt.Errorf("%w: index %d", models.ErrNotFound, index)
	}
	return st, nil
}

// Listeners returns the configured listeners.
func (c *Controller) Listeners() []models.Listener {
	return c.live.Get().Listeners
}

// Settings returns the settings currently in effect.
func (c *Controller) Settings() models.Settings {
	return c.live.Get()
}

// ApplySettings makes settings current without persisting them. A change of
// save file or persistence mode switches to a fresh store, loaded lazily.
func (c *Controller) ApplySettings(settings models.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.live.Get()
	c.live.Set(settings)
	if prev.SaveStateFile != settings.SaveStateFile || prev.StrictPersist != settings.StrictPersist {
		slog.Info("controller: save file settings changed, reopening",
			"file", settings.SaveStateFile, "strict", settings.StrictPersist)
		c.store = c.newStore(settings)
	}
	if c.bus != nil {
		c.bus.Publish(models.Event{Type: models.EventSettings})
	}
}

// UpdateSettings applies settings and schedules them to be written.
func (c *Controller) UpdateSettings(ctx context.Context, settings models.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.ApplySettings(settings)
	if c.cfgStore == nil {
		return nil
	}
	return c.cfgStore.Save(&settings)
}
