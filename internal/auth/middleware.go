package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
)

// CookieName is the browser cookie that carries the session token.
const CookieName = "session"

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow our values.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionOptions controls the cookie written by Session.
type SessionOptions struct {
	Secure bool
	Logger *slog.Logger
}

// Session is a middleware that guarantees every request has a session id.
//
// If the "session" cookie holds a valid token, its id is reused. Otherwise
// a new id is minted and the cookie is (re)written on the response. There
// is no 401 here: being logged in to the upstream API is a separate concern
// handled by the services.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func Session(tokens *TokenService, opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				sessionID = xid.New().String()

				token, err := tokens.Generate(sessionID)
				if err != nil {
					if opts.Logger != nil {
						opts.Logger.Error("failed to issue session token", slog.String("error", err.Error()))
					}
					http.Error(w, `{"error":"internal_error","message":"An internal error occurred"}`, http.StatusInternalServerError)
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(tokens.TTL().Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext retrieves the session id placed by Session.
//
// Usage in handlers:
//
//	sessionID, ok := auth.SessionIDFromContext(r.Context())
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// extractSessionID reads the session cookie and validates it.
func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
