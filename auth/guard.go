package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreybb/scribe/webutil"
)

type contextKey string

const claimsContextKey contextKey = "auth.claims"

const bearerPrefix = "Bearer "

// Guard rejects requests that do not carry a valid identity token.
type Guard struct {
	secret        []byte
	invalidStatus int
	logger        *slog.Logger
}

type GuardOption func(*Guard)

// WithInvalidTokenStatus sets the status returned for a present but unusable token.
func WithInvalidTokenStatus(code int) GuardOption {
	return func(g *Guard) { g.invalidStatus = code }
}

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGuard(secret []byte, opts ...GuardOption) *Guard {
	g := &Guard{secret: secret, invalidStatus: http.StatusForbidden, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate is chi-compatible middleware. Accepts "Bearer <token>" or a bare token.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(webutil.HeaderAuthorization))
		if header == "" {
			webutil.RespondWithError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		tokenString := header
		if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			tokenString = strings.TrimSpace(header[len(bearerPrefix):])
		} else if strings.EqualFold(header, strings.TrimSpace(bearerPrefix)) {
			tokenString = ""
		}
		if tokenString == "" {
			webutil.RespondWithError(w, http.StatusUnauthorized, "Access denied, token missing after Bearer")
			return
		}

		claims, err := Verify(tokenString, g.secret)
		if err != nil {
			g.logger.Warn("rejected token", "path", r.URL.Path, "method", r.Method, "error", err)
			webutil.RespondWithError(w, g.invalidStatus, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// IdentityFromContext returns the caller placed in ctx by Guard.Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	return claims.Identity(), true
}
