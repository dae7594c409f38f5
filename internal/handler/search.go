package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
	"github.com/sakif/dog-adoption/internal/service"
)

// SearchHandler drives the search view: filters, sort, paging and the
// age inputs.
type SearchHandler struct {
	logger *slog.Logger
}

func NewSearchHandler(logger *slog.Logger) *SearchHandler {
	return &SearchHandler{logger: logger}
}

// HandleBreeds returns every breed the API knows about.
//
// HTTP: GET /api/breeds
func (h *SearchHandler) HandleBreeds(w http.ResponseWriter, r *http.Request) {
	breeds, err := workspaceFrom(r).Search.Breeds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breeds)
}

// HandleSnapshot returns the current page. The first call loads page 1;
// a call after a failure retries the failed request.
//
// HTTP: GET /api/search
func (h *SearchHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(workspaceFrom(r).Search.Load(r.Context()))
}

// applyRequest is the filter panel. Locations is a pointer so that an
// absent field ("use what the picker has selected") differs from an empty
// list ("no location filter").
type applyRequest struct {
	Breeds    []string          `json:"breeds"`
	AgeMin    *int              `json:"ageMin"`
	AgeMax    *int              `json:"ageMax"`
	Locations *[]model.Location `json:"locations"`
}

// HandleApplyFilters searches from page 1 with new filters.
//
// HTTP: POST /api/search/filters
// REQUEST BODY: {"breeds":["Beagle"],"ageMin":1,"ageMax":5}
func (h *SearchHandler) HandleApplyFilters(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ws := workspaceFrom(r)
	c := model.Criteria{Breeds: req.Breeds, AgeMin: req.AgeMin, AgeMax: req.AgeMax}
	if req.Locations != nil {
		c.Locations = *req.Locations
	} else {
		c.Locations = ws.Locations.Selected()
	}

	h.respond(w)(ws.Search.ApplyFilters(r.Context(), c))
}

type sortRequest struct {
	Sort string `json:"sort"`
}

// HandleSort changes the ordering and goes back to page 1.
//
// HTTP: POST /api/search/sort
// REQUEST BODY: {"sort": "name:desc"}
func (h *SearchHandler) HandleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	order, err := model.ParseSortOrder(req.Sort)
	if err != nil {
		writeError(w, apperror.ValidationFailed("sort", err.Error()))
		return
	}

	h.respond(w)(workspaceFrom(r).Search.ChangeSort(r.Context(), order))
}

type pageRequest struct {
	Direction model.PageDirection `json:"direction"`
}

// HandlePage moves to the next or previous page. Moving past either end
// returns the current page unchanged.
//
// HTTP: POST /api/search/page
// REQUEST BODY: {"direction": "next"}
func (h *SearchHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Direction != model.PageNext && req.Direction != model.PagePrev {
		writeError(w, apperror.ValidationFailed("direction", `Direction must be "next" or "prev"`))
		return
	}

	h.respond(w)(workspaceFrom(r).Search.ChangePage(r.Context(), req.Direction))
}

// HandleReset clears every filter, including the picker's selection.
//
// HTTP: POST /api/search/reset
func (h *SearchHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ws.Locations.Clear()
	h.respond(w)(ws.Search.Reset(r.Context()))
}

type ageRequest struct {
	Bound service.AgeBound `json:"bound"`
	Value string           `json:"value"`
	Other *int             `json:"other"`
}

type ageResponse struct {
	Value   *int             `json:"value"`
	Notices []service.Notice `json:"notices"`
}

// HandleAge normalizes one age input as the visitor types it. Nothing is
// searched; the frontend shows the corrected value and any notices.
//
// HTTP: POST /api/filters/age
// REQUEST BODY: {"bound": "min", "value": "3.7", "other": 2}
func (h *SearchHandler) HandleAge(w http.ResponseWriter, r *http.Request) {
	var req ageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Bound != service.AgeMin && req.Bound != service.AgeMax {
		writeError(w, apperror.ValidationFailed("bound", `Bound must be "min" or "max"`))
		return
	}

	v, notices, err := service.EditAge(req.Bound, req.Value, req.Other)
	if err != nil {
		writeError(w, err)
		return
	}
	if notices == nil {
		notices = []service.Notice{}
	}
	writeJSON(w, http.StatusOK, ageResponse{Value: v, Notices: notices})
}

// respond writes a search result. It is curried so a handler can pass a
// (snapshot, error) call straight through.
func (h *SearchHandler) respond(w http.ResponseWriter) func(service.SearchSnapshot, error) {
	return func(snap service.SearchSnapshot, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
