package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/shortly-app/shortly/internal/models"
	"github.com/shortly-app/shortly/pkg/middleware/recoverer"
)

// URLService is the mapping service consumed by the handlers.
type URLService interface {
	ShortenURL(ctx context.Context, originalURL, alias string) (*models.URL, bool, error)
	ResolveKey(ctx context.Context, key string) (*models.URL, error)
	GetURLStats(ctx context.Context, key string) (*models.URL, error)
}

// Options tweaks router behavior that depends on the deployment.
type Options struct {
	// BaseURL overrides the request-derived scheme://host when composing
	// short URLs, for deployments behind a proxy. Empty means derive per request.
	BaseURL string
}

func NewRouter(logger *httplog.Logger, urlSvc URLService, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	validate := getValidate()

	r.Get("/health", handleHealth)
	r.Post("/shorten", handleShortenURL(urlSvc, validate, opts.BaseURL))
	r.Get("/stats/{code}", handleGetURLStats(urlSvc))
	r.Get("/{code}", handleResolveKey(urlSvc))

	return r
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}
