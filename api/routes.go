package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coreybb/scribe/auth"
	rh "github.com/coreybb/scribe/route-handlers"
	"github.com/coreybb/scribe/webutil"
)

const (
	apiBasePath       = "/api"
	authBasePath      = "/auth"
	protectedBasePath = "/protected"
	postsBasePath     = "/posts"
)

const (
	paramID = "id" // General parameter name for resource IDs
)

const requestTimeout = 60 * time.Second

// Pinger reports whether the datastore is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig carries everything SetupRoutes wires together.
type RouterConfig struct {
	AuthHandler    *rh.AuthHandler
	PostHandler    *rh.PostHandler
	JWTSecret      []byte
	AllowedOrigins []string
	DB             Pinger
	Logger         *slog.Logger
}

func SetupRoutes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(RequestID)
	r.Use(RealIP)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(CORS(cfg.AllowedOrigins))

	postGuard := auth.NewGuard(cfg.JWTSecret, auth.WithLogger(cfg.Logger))
	protectedGuard := auth.NewGuard(cfg.JWTSecret,
		auth.WithLogger(cfg.Logger),
		auth.WithInvalidTokenStatus(http.StatusBadRequest),
	)

	r.Route(apiBasePath, func(r chi.Router) {
		configureAuthRoutes(r, cfg.AuthHandler)
		configureProtectedRoutes(r, cfg.AuthHandler, protectedGuard)
		configurePostRoutes(r, cfg.PostHandler, postGuard)
	})

	r.Get("/", handleRoot)
	r.Get("/healthz", handleHealthCheck(cfg.DB))

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Auth Routes ---
func configureAuthRoutes(r chi.Router, handler *rh.AuthHandler) {
	r.Route(authBasePath, func(r chi.Router) {
		r.Post("/register", webutil.MakeHandler(handler.HandleRegister))
		r.Post("/login", webutil.MakeHandler(handler.HandleLogin))
	})
}

// --- Protected Routes ---
func configureProtectedRoutes(r chi.Router, handler *rh.AuthHandler, guard *auth.Guard) {
	r.Route(protectedBasePath, func(r chi.Router) {
		r.Use(guard.Authenticate)
		r.Get("/protected", webutil.MakeHandler(handler.HandleProtected))
	})
}

// --- Post Routes ---
func configurePostRoutes(r chi.Router, handler *rh.PostHandler, guard *auth.Guard) {
	specificPostPath := pathWithParam("", paramID) // e.g., "/{id}"

	r.Route(postsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetPosts))
		r.With(guard.Authenticate).Post("/", webutil.MakeHandler(handler.HandleCreatePost))

		r.Route(specificPostPath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetPost))
			r.Get("/epub", webutil.MakeHandler(handler.HandleExportPost)) // GET /posts/{id}/epub

			r.Group(func(r chi.Router) {
				r.Use(guard.Authenticate)
				r.Put("/", webutil.MakeHandler(handler.HandleUpdatePost))
				r.Delete("/", webutil.MakeHandler(handler.HandleDeletePost))
			})
		})
	})
}

// --- Utility Functions ---

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("BLOG api running"))
}

// handleHealthCheck reports OK when the datastore answers a ping.
func handleHealthCheck(db Pinger) http.HandlerFunc {
	return webutil.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return webutil.NewHTTPErrorWrap(http.StatusServiceUnavailable, "Database unavailable", err)
			}
		}
		w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return nil
	})
}
