package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/obs"
	"watchtower.dev/internal/policy"
	"watchtower.dev/internal/settings"
	"watchtower.dev/internal/stream"
)

const serviceName = "watchtower-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the database and, when configured, the alert backend.
type ReadyProbe struct {
	Store  pinger
	Alerts pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store != nil {
		if err := rp.Store.Ping(ctx); err != nil {
			return err
		}
	}
	if rp.Alerts != nil {
		if err := rp.Alerts.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Options wires the API to its collaborators. Auth is required; the other
// services are optional and their routes answer 503 when absent.
type Options struct {
	Auth      *auth.Service
	Directory *auth.Directory
	Settings  *settings.Service
	Alerts    alerts.Source
	Stream    *stream.Stream
	Ready     readinessChecker
	Build     obs.BuildInfo

	CORSOrigins  []string
	RateBurst    int
	RatePerSec   int
	LoginBurst   int
	LoginPerSec  int
	MaxBodyBytes int64
}

// API is the HTTP layer.
type API struct {
	auth      *auth.Service
	directory *auth.Directory
	settings  *settings.Service
	alerts    alerts.Source
	stream    *stream.Stream
	ready     readinessChecker
	build     obs.BuildInfo

	router chi.Router
}

func New(opts Options) (*API, error) {
	if opts.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if opts.Ready == nil {
		opts.Ready = ReadyProbe{}
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 60
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 30
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 10
	}
	if opts.LoginPerSec <= 0 {
		opts.LoginPerSec = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	a := &API{
		auth:      opts.Auth,
		directory: opts.Directory,
		settings:  opts.Settings,
		alerts:    opts.Alerts,
		stream:    opts.Stream,
		ready:     opts.Ready,
		build:     opts.Build,
	}
	a.router = a.routes(opts)
	return a, nil
}

func defaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           600,
	}
}

func (a *API) routes(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(obs.Instrument)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(defaultCORSOptions(opts.CORSOrigins)))
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, opts.MaxBodyBytes) })
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, opts.RateBurst, opts.RatePerSec) })

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return RateLimit(next, opts.LoginBurst, opts.LoginPerSec) })
		r.Post("/auth/login", a.handleLogin)
		r.Post("/api/auth/login", a.handleLogin)
	})
	r.Post("/auth/refresh", a.handleRefresh)
	r.With(a.require(policy.Authenticated)).Get("/auth/me", a.handleMe)

	r.Route("/api/users", func(r chi.Router) {
		r.Use(a.require(policy.ManageUsers))
		r.Get("/", a.handleListUsers)
		r.Post("/", a.handleCreateUser)
		r.Get("/{id}", a.handleGetUser)
		r.Put("/{id}", a.handleUpdateUser)
		r.Patch("/{id}", a.handleUpdateUser)
		r.Delete("/{id}", a.handleDeleteUser)
	})

	r.Route("/api/profile-types", func(r chi.Router) {
		r.Use(a.require(policy.ProfileTypes))
		r.Get("/", a.handleListProfileTypes)
		r.Post("/", a.handleCreateProfileType)
	})

	r.Route("/api/notification-rules", func(r chi.Router) {
		r.Use(a.require(policy.Notifications))
		r.Get("/", a.handleListRules)
		r.Post("/", a.handleCreateRule)
		r.Patch("/{id}", a.handleToggleRule)
		r.Delete("/{id}", a.handleDeleteRule)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.require(policy.Alerts))
		r.Get("/api/suricata/alerts", a.handleSuricataAlerts)
		r.Get("/api/zeek/logs", a.handleZeekLogs)
		r.Get("/api/alerts/stream", a.Stream)
	})

	return r
}

// Handler returns the root http.Handler.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.build.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.build.Version,
		"commit":  a.build.Commit,
		"go":      a.build.GoVersion,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
