package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/dog-adoption/internal/service"
)

// AuthHandler logs the visitor in and out of the upstream API.
//
//   - HandleLogin   → POST /api/auth/login
//   - HandleLogout  → POST /api/auth/logout
//   - HandleSession → GET  /api/auth/session
type AuthHandler struct {
	logger *slog.Logger
}

func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleLogin authenticates with a name and email.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"name": "Ada", "email": "ada@example.com"}
//
// Validation runs before any upstream call, so a blank name or a bad
// email answers 400 without touching the API.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ws := workspaceFrom(r)
	if _, err := ws.Auth.Login(r.Context(), req.Name, req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ws.Auth.State())
}

// HandleLogout ends the upstream session and clears everything tied to the
// user. It always succeeds: an API failure is only logged.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ws.Logout(r.Context())

	writeJSON(w, http.StatusOK, struct {
		service.AuthState
		Redirect string `json:"redirect"`
	}{ws.Auth.State(), loginPath})
}

// HandleSession reports who is logged in. The frontend calls it on load
// to choose between the login and search views.
//
// HTTP: GET /api/auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workspaceFrom(r).Auth.State())
}
