package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
)

// LocationHandler backs the location autocomplete in the filter panel.
//
// The picker lives in the Workspace, so typing is a sequence of
// POST /api/locations/input calls and the frontend polls
// GET /api/locations for the debounced result.
type LocationHandler struct {
	logger *slog.Logger
}

func NewLocationHandler(logger *slog.Logger) *LocationHandler {
	return &LocationHandler{logger: logger}
}

// HandleSnapshot returns the picker state.
//
// HTTP: GET /api/locations
func (h *LocationHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workspaceFrom(r).Locations.Snapshot())
}

// HandleResolve resolves text right away, without the debounce. It does
// not touch the picker.
//
// HTTP: GET /api/locations/resolve?q=san
func (h *LocationHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, apperror.ValidationFailed("q", "Type a city, state or zip code"))
		return
	}
	writeJSON(w, http.StatusOK, workspaceFrom(r).Resolver.Resolve(r.Context(), q))
}

type inputRequest struct {
	Text string `json:"text"`
}

// HandleInput records what the visitor typed.
//
// HTTP: POST /api/locations/input
// REQUEST BODY: {"text": "san ant"}
func (h *LocationHandler) HandleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceFrom(r).Locations.Input(req.Text))
}

// HandleOpen loads the popular locations the first time the picker opens.
//
// HTTP: POST /api/locations/open
func (h *LocationHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workspaceFrom(r).Locations.Open(r.Context()))
}

// HandleSelect adds an option to the selection.
//
// HTTP: POST /api/locations/selected
// REQUEST BODY: a location as returned in "options"
func (h *LocationHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var loc model.Location
	if err := decodeJSON(r, &loc); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(loc.City) == "" || loc.State == "" {
		writeError(w, apperror.ValidationFailed("city", "A location needs a city and a state"))
		return
	}
	writeJSON(w, http.StatusOK, workspaceFrom(r).Locations.Select(loc))
}

// HandleDeselect removes a selected location by its key.
//
// HTTP: DELETE /api/locations/selected?key=san%20antonio-TX
func (h *LocationHandler) HandleDeselect(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, apperror.ValidationFailed("key", "Missing location key"))
		return
	}
	writeJSON(w, http.StatusOK, workspaceFrom(r).Locations.Deselect(key))
}

// HandleManual selects the "use what I typed" entry.
//
// HTTP: POST /api/locations/manual
func (h *LocationHandler) HandleManual(w http.ResponseWriter, r *http.Request) {
	st, err := workspaceFrom(r).Locations.AddManualEntry()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
