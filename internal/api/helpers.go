// Package api implements the local HTTP API for saved fast-connect state.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/avdecc-fastconnect/internal/controller"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
	backup Backups
}

// Controller is the interface the handlers use to reach the saved-state store.
type Controller interface {
	SavedStates() ([]models.SavedState, error)
	SavedState(index int) (models.SavedState, error)
	SaveConnection(ctx context.Context, listener models.Listener, talker, controller models.EntityID) error
	ClearConnection(ctx context.Context, listener models.Listener) error
	DeleteSavedState(ctx context.Context, index int) error
	Listeners() []models.Listener
	Settings() models.Settings
	UpdateSettings(ctx context.Context, settings models.Settings) error
	Restore(ctx context.Context, conn controller.Connector) ([]controller.RestoreResult, error)
	Info() models.Info
}

// EventBus is the interface for subscribing to change events.
type EventBus interface {
	Subscribe(id string) <-chan models.Event
	Unsubscribe(id string)
}

// Backups takes and lists snapshots of the saved-state file. May be nil.
type Backups interface {
	SnapshotNow() (string, error)
	ListSnapshots() ([]string, error)
}

// maxBodyBytes caps JSON request bodies. A saved state or settings document
// is well under this.
const maxBodyBytes = 16 << 10

// decodeBody decodes a size-limited JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON AppError response.
func writeError(w http.ResponseWriter, err error) {
	appErr := models.ToAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
