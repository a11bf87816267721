package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

func (h *Handlers) getSavedStates(w http.ResponseWriter, r *http.Request) {
	all, err := h.ctrl.SavedStates()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"saved_states": all})
}

func (h *Handlers) getSavedState(w http.ResponseWriter, r *http.Request) {
	idx, err := intParam(r, "idx")
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.ctrl.SavedState(idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) saveConnection(w http.ResponseWriter, r *http.Request) {
	var req models.SavedState
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	listener := models.Listener{FriendlyName: req.FriendlyName}
	if err := h.ctrl.SaveConnection(r.Context(), listener, req.TalkerEntityID, req.ControllerEntityID); err != nil {
		writeError(w, err)
		return
	}
	h.getSavedStates(w, r)
}

func (h *Handlers) deleteSavedState(w http.ResponseWriter, r *http.Request) {
	idx, err := intParam(r, "idx")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ctrl.DeleteSavedState(r.Context(), idx); err != nil {
		writeError(w, err)
		return
	}
	h.getSavedStates(w, r)
}

func (h *Handlers) getListeners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"listeners": h.ctrl.Listeners()})
}

func (h *Handlers) clearConnection(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, models.ErrBadRequest("invalid name parameter"))
		return
	}
	if err := h.ctrl.ClearConnection(r.Context(), models.Listener{FriendlyName: name}); err != nil {
		writeError(w, err)
		return
	}
	h.getSavedStates(w, r)
}
