package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
	"github.com/sakif/dog-adoption/internal/service"
)

// FavoritesHandler manages the favorites list and the match.
type FavoritesHandler struct {
	logger *slog.Logger
}

func NewFavoritesHandler(logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{logger: logger}
}

type favoritesResponse struct {
	IDs  []string    `json:"ids"`
	Dogs []model.Dog `json:"dogs"`
}

type toggleResponse struct {
	ID        string         `json:"id"`
	Favorited bool           `json:"favorited"`
	Notice    service.Notice `json:"notice"`
}

// HandleList returns the favorite ids and their dog records.
//
// HTTP: GET /api/favorites
//
// The ids are always returned; a failure to load the records still
// answers with the error so the view can show it.
func (h *FavoritesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	fav := workspaceFrom(r).Favorites
	dogs, err := fav.Records(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoritesResponse{IDs: fav.IDs(), Dogs: dogs})
}

// HandleToggle adds the dog to favorites, or removes it if already there.
//
// HTTP: POST /api/favorites/{id}/toggle
func (h *FavoritesHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "Missing dog id"))
		return
	}

	on, notice := workspaceFrom(r).Favorites.Toggle(id)
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Favorited: on, Notice: notice})
}

// HandleRemove removes one dog from favorites. Removing a dog that is not
// a favorite is not an error.
//
// HTTP: DELETE /api/favorites/{id}
func (h *FavoritesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, notice := workspaceFrom(r).Favorites.Remove(id)
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Favorited: false, Notice: notice})
}

type matchResponse struct {
	MatchID  string `json:"matchId"`
	Redirect string `json:"redirect,omitempty"`
}

// HandleGenerateMatch asks the API to pick one dog from the favorites.
//
// HTTP: POST /api/match
//
// On success the frontend navigates to the match view.
func (h *FavoritesHandler) HandleGenerateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := workspaceFrom(r).Favorites.GenerateMatch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{MatchID: id, Redirect: "/match"})
}

// HandleMatch returns the matched dog.
//
// HTTP: GET /api/match
//
// With no match generated yet the visitor is sent back to search.
func (h *FavoritesHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	dog, err := workspaceFrom(r).Favorites.MatchedDog(r.Context())
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && errors.Is(err, apperror.ErrPrecondition) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:    "precondition_failed",
				Message:  appErr.Message,
				Redirect: searchPath,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dog)
}
