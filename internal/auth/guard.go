package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lumen-app/lumen/internal/platform/httpx"
	"github.com/lumen-app/lumen/internal/shared"
)

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "sessionId"

// Guard authorizes protected operations. A request passes only when it
// presents a verifiable bearer token and a session cookie that matches the
// registry record for the token's user; neither alone suffices.
type Guard struct {
	logger   *slog.Logger
	tokens   TokenCodec
	sessions Registry
}

// NewGuard constructs a Guard.
func NewGuard(logger *slog.Logger, tokens TokenCodec, sessions Registry) *Guard {
	return &Guard{logger: logger, tokens: tokens, sessions: sessions}
}

// Authenticate checks both credentials on the request and returns the
// verified identity.
func (g *Guard) Authenticate(r *http.Request) (shared.Identity, error) {
	token, ok := bearerToken(r)
	if !ok {
		return shared.Identity{}, shared.ErrUnauthorized
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return shared.Identity{}, shared.ErrUnauthorized
	}

	userID, err := g.tokens.Verify(token)
	if err != nil {
		return shared.Identity{}, shared.ErrUnauthorized
	}

	valid, err := g.sessions.Validate(r.Context(), userID, cookie.Value)
	if err != nil {
		return shared.Identity{}, err
	}
	if !valid {
		return shared.Identity{}, shared.ErrSessionInvalid
	}

	return shared.Identity{UserID: userID, SessionID: cookie.Value}, nil
}

// RequireAuth wraps a handler with the protected-route check. On success the
// identity is attached to the request context for downstream handlers.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := g.Authenticate(r)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case shared.ErrSessionInvalid:
		httpx.Fail(w, http.StatusUnauthorized, "Session expired or invalid.")
	case shared.ErrUnauthorized:
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
	default:
		g.logger.Error("authorize request", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
