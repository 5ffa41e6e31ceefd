// Package api wires the HTTP surface. Every request runs the admission
// pipeline in strict order: global throttle, identity resolution,
// endpoint-specific rate limiting, resource authorization, persistence.
// Failure at any stage short-circuits with its status code.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meur/tierdeck/internal/auth"
	"github.com/meur/tierdeck/internal/blob"
	"github.com/meur/tierdeck/internal/events"
	"github.com/meur/tierdeck/internal/ratelimit"
	"github.com/meur/tierdeck/internal/storage"
)

// Config carries the server dependencies.
type Config struct {
	Store     *storage.Store
	Blobs     *blob.Store
	Auth      auth.Provider
	Global    *ratelimit.Global
	Limits    *ratelimit.Set
	Bus       *events.Bus
	SiteURL   string
	ProxyHTTP *http.Client
}

// Server holds the HTTP server dependencies.
type Server struct {
	store   *storage.Store
	blobs   *blob.Store
	authp   auth.Provider
	global  *ratelimit.Global
	limits  *ratelimit.Set
	bus     *events.Bus
	siteURL string
	proxy   *http.Client
	router  chi.Router
}

// New creates a new API server.
func New(cfg Config) *Server {
	proxyClient := cfg.ProxyHTTP
	if proxyClient == nil {
		proxyClient = &http.Client{}
	}
	s := &Server{
		store:   cfg.Store,
		blobs:   cfg.Blobs,
		authp:   cfg.Auth,
		global:  cfg.Global,
		limits:  cfg.Limits,
		bus:     cfg.Bus,
		siteURL: cfg.SiteURL,
		proxy:   proxyClient,
		router:  chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*.tierdeck.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.globalThrottle)
		r.Use(s.resolveIdentity)

		// Templates
		r.Get("/template", s.handleGetTemplate)
		r.Put("/template", s.handlePutTemplate)
		r.Delete("/template", s.handleDeleteTemplate)
		r.Put("/changeTemplateVisibility", s.handleChangeTemplateVisibility)

		// Tierlists
		r.Post("/tierlist", s.handleCreateTierlist)
		r.Get("/tierlist", s.handleGetTierlist)
		r.Delete("/tierlist", s.handleDeleteTierlist)
		r.Get("/user-tierlists", s.handleGetUserTierlists)
		r.Put("/changeTierlistVisibility", s.handleChangeTierlistVisibility)

		// Images
		r.Post("/image", s.handlePostImage)
		r.Delete("/image", s.handleDeleteImages)
		r.Get("/image/{imageId}", s.handleGetImage)
		r.Get("/user-images", s.handleGetUserImages)
		r.Get("/countImages", s.handleCountImages)

		// Proxy
		r.Get("/proxy", s.handleProxy)

		// Admin
		r.Post("/admin/purgeUsers", s.handlePurgeUsers)
	})

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// globalThrottle is stage one: a single shared counter, independent of
// identity. Exceeding it never reaches the endpoint limiters.
func (s *Server) globalThrottle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.global.Allow(r.Context())
		if err != nil {
			slog.Warn("global throttle check failed", "error", err)
		}
		if !ok {
			respondError(w, http.StatusTooManyRequests, "Server is under load. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveIdentity is stage two: verify the bearer token when present.
// Anonymous is not an error here; endpoints decide whether to require a
// user. Disabled accounts resolve as anonymous.
func (s *Server) resolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.FromRequest(r.Context(), s.authp, r)
		if id != nil {
			disabled, err := s.store.IsUserDisabled(id.UID)
			if err != nil {
				slog.Warn("disabled-user lookup failed", "uid", id.UID, "error", err)
			}
			if disabled {
				id = nil
			}
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// allow is stage three: the request must pass every limiter attached to its
// endpoint; the first failing limiter produces the 429. Limiter-store errors
// fail open.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, limiters ...*ratelimit.Limiter) bool {
	id := auth.IdentityFrom(r.Context())
	uid := ""
	if id != nil {
		uid = id.UID
	}
	key := ratelimit.ClientKey(r, uid)
	for _, l := range limiters {
		ok, err := l.Allow(r.Context(), key)
		if err != nil {
			slog.Warn("rate limit check failed", "limiter", l.Prefix(), "error", err)
		}
		if !ok {
			slog.Info("rate limited", "limiter", l.Prefix(), "key", key)
			respondError(w, http.StatusTooManyRequests, "Too many requests")
			return false
		}
	}
	return true
}

// requireUser rejects anonymous callers with 401.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return id, true
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
