package api

import (
	"net/http"

	"github.com/micro-nova/avdecc-fastconnect/internal/controller"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Info())
}

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Settings())
}

func (h *Handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.ctrl.Settings()
	if err := decodeBody(w, r, &settings); err != nil {
		writeError(w, err)
		return
	}
	if settings.SaveStateFile == "" {
		writeError(w, models.ErrBadRequest("save_state_file must not be empty"))
		return
	}
	if err := h.ctrl.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Settings())
}

func (h *Handlers) restore(conn controller.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := h.ctrl.Restore(r.Context(), conn)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}

func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	path, err := h.backup.SnapshotNow()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"file": path})
}

func (h *Handlers) listBackups(w http.ResponseWriter, r *http.Request) {
	files, err := h.backup.ListSnapshots()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backups": files})
}
