// Package api serves the website operations as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/service"
)

// Service is the set of operations served over HTTP.
type Service interface {
	CreateWebsite(ctx context.Context, userID, name string) (*service.WebsiteView, error)
	GetWebsite(ctx context.Context, websiteID, domain *string) (*service.WebsiteView, error)
	ListWebsites(ctx context.Context, userID *string, p models.Pagination) (*service.WebsiteList, error)
	UpdateWebsite(ctx context.Context, userID, websiteID string, name *string) (*service.WebsiteView, error)
	DeleteWebsite(ctx context.Context, userID, websiteID string) error

	CreateDomain(ctx context.Context, userID, websiteID, name string) (*service.DomainView, error)
	CheckDomain(ctx context.Context, userID string, domainID int64) (*service.DomainView, error)
	DeleteDomain(ctx context.Context, userID string, domainID int64) error

	CreatePage(ctx context.Context, userID, websiteID string, in service.CreatePageInput) (*service.PageView, error)
	GetPage(ctx context.Context, pageID *int64, websiteID, path *string) (*service.PageView, error)
	ListPages(ctx context.Context, websiteID *string, p models.Pagination) (*service.PageList, error)
	UpdatePage(ctx context.Context, userID string, pageID int64, in service.UpdatePageInput) (*service.PageView, error)
	DeletePage(ctx context.Context, userID string, pageID int64) error

	GetStaticPage(ctx context.Context, pageID int64) (*service.StaticPageView, error)
	UpdateStaticPage(ctx context.Context, userID string, pageID int64, components json.RawMessage) (*service.StaticPageView, error)

	PutCustomization(ctx context.Context, userID, websiteID string, primary, secondary *string) (*service.CustomizationView, error)
	PutLogo(ctx context.Context, userID, websiteID string, data []byte) (*service.CustomizationView, error)
	RemoveLogo(ctx context.Context, userID, websiteID string) (*service.CustomizationView, error)
}

// Authenticator resolves the user of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the router.
type Options struct {
	AllowedOrigins []string
	// MaxUploadSize bounds the logo request body.
	MaxUploadSize int64
}

type handlers struct {
	svc       Service
	db        Pinger
	logger    *zap.Logger
	validate  *validator.Validate
	maxUpload int64
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Service, authn Authenticator, db Pinger, logger *zap.Logger, opts Options) http.Handler {
	h := &handlers{
		svc:       svc,
		db:        db,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		maxUpload: opts.MaxUploadSize,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Public reads.
		r.Get("/websites/lookup", h.getWebsite)
		r.Get("/websites/{websiteID}", h.getWebsite)
		r.Get("/websites", h.listWebsites)
		r.Get("/pages/lookup", h.getPage)
		r.Get("/pages", h.listPages)
		r.Get("/static-pages/{pageID}", h.getStaticPage)

		r.Group(func(r chi.Router) {
			r.Use(requireUser(authn, logger))

			r.Post("/websites", h.createWebsite)
			r.Patch("/websites/{websiteID}", h.updateWebsite)
			r.Delete("/websites/{websiteID}", h.deleteWebsite)

			r.Post("/websites/{websiteID}/domains", h.createDomain)
			r.Post("/domains/{domainID}/check", h.checkDomain)
			r.Delete("/domains/{domainID}", h.deleteDomain)

			r.Post("/websites/{websiteID}/pages", h.createPage)
			r.Patch("/pages/{pageID}", h.updatePage)
			r.Delete("/pages/{pageID}", h.deletePage)

			r.Put("/static-pages/{pageID}", h.updateStaticPage)

			r.Put("/websites/{websiteID}/customization", h.putCustomization)
			r.Put("/websites/{websiteID}/customization/logo", h.putLogo)
			r.Delete("/websites/{websiteID}/customization/logo", h.removeLogo)
		})
	})
	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
