// Package handler contains the HTTP handlers of the dog adoption API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming HTTP request (query params, body)
//  2. Call the visitor's Workspace (all business logic lives in service)
//  3. Write the HTTP response (status code, headers, body)
//
// Every handler works on the Workspace of the calling browser session,
// which LoadWorkspace puts on the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/dog-adoption/internal/auth"
	"github.com/sakif/dog-adoption/internal/service"
)

type contextKey string

const workspaceKey contextKey = "workspace"

// LoadWorkspace looks up (or creates) the Workspace for the session id set
// by auth.Session and stores it on the request context.
func LoadWorkspace(workspaces *service.Workspaces, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := auth.SessionIDFromContext(r.Context())
			if !ok {
				logger.Error("workspace requested without a session")
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:   "internal_error",
					Message: "An internal error occurred",
				})
				return
			}

			ws, err := workspaces.Get(r.Context(), sessionID)
			if err != nil {
				logger.Error("failed to load workspace", slog.String("session_id", sessionID), slog.String("error", err.Error()))
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), ws)))
		})
	}
}

// RequireUser rejects requests whose workspace is not logged in upstream.
// It must run after LoadWorkspace.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := workspaceFrom(r)
		if _, err := ws.Auth.RequireUser(); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithWorkspace returns a copy of ctx carrying ws.
func WithWorkspace(ctx context.Context, ws *service.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey, ws)
}

// workspaceFrom panics when LoadWorkspace did not run; that is a routing
// bug, and chi's Recoverer turns it into a 500.
func workspaceFrom(r *http.Request) *service.Workspace {
	return r.Context().Value(workspaceKey).(*service.Workspace)
}
