package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "tenant-registry/docs"
	"tenant-registry/internal/auth"
	"tenant-registry/internal/config"
	"tenant-registry/internal/manager"
	"tenant-registry/internal/metrics"
	"tenant-registry/internal/model"
)

// Provisioner is the provisioning engine as seen by the HTTP layer.
type Provisioner interface {
	Create(ctx context.Context, name, email, password string) (*manager.Result, error)
	Get(ctx context.Context, name string) (*model.Organization, error)
	UpdateOwned(ctx context.Context, owner uuid.UUID, name, email, password string) (*manager.Result, error)
	DeleteOwned(ctx context.Context, owner uuid.UUID, name string) (*manager.Result, error)
	PutDocument(ctx context.Context, orgID uuid.UUID, body json.RawMessage) (*model.Document, error)
	ListDocuments(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]model.Document, string, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.Identity, error)
}

// Scaler resizes the remediation worker pool.
type Scaler interface {
	SetWorkerCount(n int)
	Workers() int
}

type API struct {
	TenantMgr Provisioner
	Creds     Authenticator
	Tokens    *auth.Issuer
	Cfg       *config.Config

	// Pool is nil when no remediation queue is configured.
	Pool Scaler
	// Ping reports storage health; nil means always healthy.
	Ping func(ctx context.Context) error

	logger *slog.Logger
}

func NewAPI(tm Provisioner, creds Authenticator, tokens *auth.Issuer, cfg *config.Config, logger *slog.Logger) *API {
	return &API{
		TenantMgr: tm,
		Creds:     creds,
		Tokens:    tokens,
		Cfg:       cfg,
		logger:    logger,
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)

	// Public
	r.Get("/", a.Root)
	r.Get("/health", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	limiter := newLoginLimiter(a.Cfg.Login.RatePerSecond, a.Cfg.Login.Burst)
	r.With(limiter.Middleware).Post("/admin/login", a.Login)

	r.Route("/org", func(r chi.Router) {
		r.Post("/create", a.CreateOrganization)
		r.Get("/get", a.GetOrganization)

		// Secured
		r.Group(func(r chi.Router) {
			r.Use(a.Tokens.Middleware)
			r.Put("/update", a.UpdateOrganization)
			r.Delete("/delete", a.DeleteOrganization)
			r.Post("/documents", a.PutDocument)
			r.Get("/documents", a.ListDocuments)
		})
	})

	r.With(a.Tokens.Middleware).Put("/config/concurrency", a.UpdateConcurrency)

	return r
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
