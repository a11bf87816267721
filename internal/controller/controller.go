// Package controller implements the connection-management side of fast
// connect: it records listener connections in the saved-state store, clears
// them on disconnect, and replays them at startup.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/micro-nova/avdecc-fastconnect/internal/config"
	"github.com/micro-nova/avdecc-fastconnect/internal/events"
	"github.com/micro-nova/avdecc-fastconnect/internal/identity"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
	"github.com/micro-nova/avdecc-fastconnect/internal/savestate"
)

// Controller owns the saved-state store. The store itself is not safe for
// concurrent use, so every access goes through c.mu.
type Controller struct {
	mu       sync.Mutex
	store    *savestate.Store
	live     *config.Live
	cfgStore config.Store
	bus      *events.Bus
	hostname string
	version  string
}

// New creates a Controller using the settings in live. cfgStore receives
// settings changes made through UpdateSettings.
func New(live *config.Live, cfgStore config.Store, bus *events.Bus) *Controller {
	c := &Controller{
		live:     live,
		cfgStore: cfgStore,
		bus:      bus,
		hostname: identity.GetHostname(),
		version:  identity.DefaultVersion,
	}
	c.store = c.newStore(live.Get())
	return c
}

// SetVersion overrides the version reported by Info.
func (c *Controller) SetVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = v
}

func (c *Controller) newStore(settings models.Settings) *savestate.Store {
	var opts []savestate.Option
	if settings.StrictPersist {
		opts = append(opts, savestate.WithStrictPersist())
	}
	file, override := savestate.SplitPath(settings.SaveStateFile)
	if override != "" {
		slog.Debug("controller: ignoring save file override", "file", file, "override", override)
	}
	return savestate.New(settings.SaveStateFile, c.live, opts...)
}

// apply is the core mutation primitive. It:
//  1. Acquires the lock
//  2. Calls fn with the store
//  3. If fn succeeds: publishes an event carrying the new list
func (c *Controller) apply(ctx context.Context, evType, name string, fn func(*savestate.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(c.store); err != nil {
		return err
	}

	all, err := c.store.All()
	if err != nil {
		return err
	}
	if c.bus != nil {
		c.bus.Publish(models.Event{Type: evType, FriendlyName: name, SavedStates: all})
	}
	return nil
}

// Info returns system information.
func (c *Controller) Info() models.Info {
	settings := c.live.Get()

	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.store.Len()
	return models.Info{
		Hostname:             c.hostname,
		Version:              c.version,
		SaveStateFile:        settings.SaveStateFile,
		FastConnectSupported: settings.FastConnectSupported,
		SavedStates:          n,
		Capacity:             savestate.MaxSavedStates,
	}
}
