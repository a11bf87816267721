package controller

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// Connector re-establishes a saved connection. Implementations talk to the
// AVDECC stack; this package only decides what to reconnect.
type Connector interface {
	Connect(ctx context.Context, listener models.Listener, saved models.SavedState) error
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, listener models.Listener, saved models.SavedState) error

func (f ConnectorFunc) Connect(ctx context.Context, listener models.Listener, saved models.SavedState) error {
	return f(ctx, listener, saved)
}

// LogConnector only logs what would be reconnected.
type LogConnector struct{}

func (LogConnector) Connect(_ context.Context, listener models.Listener, saved models.SavedState) error {
	slog.Info("controller: fast connect",
		"listener", listener.FriendlyName,
		"talker", saved.TalkerEntityID,
		"controller", saved.ControllerEntityID,
	)
	return nil
}

// Restore outcome statuses.
const (
	RestoreConnected = "connected"
	RestoreSkipped   = "skipped"
	RestoreFailed    = "failed"
)

// RestoreResult describes what happened to one saved state during Restore.
type RestoreResult struct {
	Saved  models.SavedState `json:"saved_state"`
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
}

// Restore walks the saved states oldest first and hands each one whose
// listener is configured to conn. With no listeners configured every saved
// state is restored. Attempts are paced by the configured restore rate.
//
// The store lock is not held while conn runs, so a connector may call back
// into the controller.
func (c *Controller) Restore(ctx context.Context, conn Connector) ([]RestoreResult, error) {
	settings := c.live.Get()
	if !settings.FastConnectSupported {
		return nil, models.ErrFastConnectDisabled
	}

	var saved []models.SavedState
	c.mu.Lock()
	if _, err := c.store.Len(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	for i := 0; ; i++ {
		st, ok := c.store.GetAt(i)
		if !ok {
			break
		}
		saved = append(saved, st)
	}
	c.mu.Unlock()

	limit := rate.Limit(settings.RestoreRate)
	if settings.RestoreRate <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, max(settings.RestoreBurst, 1))
	results := make([]RestoreResult, 0, len(saved))

	for _, st := range saved {
		listener, ok := settings.Listener(st.FriendlyName)
		if !ok {
			if len(settings.Listeners) > 0 {
				slog.Debug("controller: no listener for saved state", "listener", st.FriendlyName)
				results = append(results, RestoreResult{Saved: st, Status: RestoreSkipped})
				continue
			}
			listener = models.Listener{FriendlyName: st.FriendlyName}
		}

		if err := limiter.Wait(ctx); err != nil {
			return results, err
		}
		if err := conn.Connect(ctx, listener, st); err != nil {
			slog.Warn("controller: fast connect failed", "listener", st.FriendlyName, "err", err)
			results = append(results, RestoreResult{Saved: st, Status: RestoreFailed, Error: err.Error()})
			continue
		}
		results = append(results, RestoreResult{Saved: st, Status: RestoreConnected})
	}

	slog.Info("controller: restore finished", "saved", len(saved), "results", len(results))
	if c.bus != nil {
		c.bus.Publish(models.Event{Type: models.EventRestored, SavedStates: saved})
	}
	return results, nil
}
