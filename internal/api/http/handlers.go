package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shortly-app/shortly/internal/database"
	"github.com/shortly-app/shortly/internal/models"
	"github.com/shortly-app/shortly/internal/service"
	"github.com/shortly-app/shortly/pkg/response"
)

// handleHealth handles liveness probes. It must not touch the store.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// shortenRequest represents the request payload for shortening a URL.
// The alias may arrive in the body or as the "alias" query parameter,
// the query parameter taking precedence.
type shortenRequest struct {
	URL   string `json:"url" validate:"required,url"`
	Alias string `json:"alias" validate:"omitempty,alphanum,min=3,max=32"`
}

// shortenResponse is the wire shape of a successful shorten call.
type shortenResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	Message     string `json:"message,omitempty"`
}

// urlStats is the wire shape of a stats payload.
type urlStats struct {
	OriginalURL    string     `json:"original_url"`
	ShortCode      string     `json:"short_code"`
	Alias          string     `json:"alias,omitempty"`
	AccessCount    int64      `json:"access_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

type statsResponse struct {
	Stats urlStats `json:"stats"`
}

func toURLStats(url *models.URL) urlStats {
	return urlStats{
		OriginalURL:    url.OriginalURL,
		ShortCode:      url.ShortCode,
		Alias:          url.Alias,
		AccessCount:    url.AccessCount,
		CreatedAt:      url.CreatedAt,
		LastAccessedAt: url.LastAccessedAt,
	}
}

// shortURL composes the shareable URL for a record as {scheme}://{host}/{alias or code}.
func shortURL(r *http.Request, baseURL string, url *models.URL) string {
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		baseURL = scheme + "://" + r.Host
	}

	return baseURL + "/" + url.Key()
}

// handleShortenURL handles POST requests to shorten a URL.
//
// It returns 201 with the new short URL, or 200 when the URL was already
// shortened before, so callers can tell the two apart. A taken alias is a 409.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const existsMsg = "The URL was already shortened."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if alias := r.URL.Query().Get("alias"); alias != "" {
			req.Alias = alias
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, created, err := svc.ShortenURL(r.Context(), req.URL, req.Alias)
		if err != nil {
			if errors.Is(err, service.ErrAliasExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.AliasConflictResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		resp := shortenResponse{
			OriginalURL: url.OriginalURL,
			ShortURL:    shortURL(r, baseURL, url),
		}

		if created {
			render.Status(r, http.StatusCreated)
		} else {
			resp.Message = existsMsg
			render.Status(r, http.StatusOK)
		}

		render.JSON(w, r, resp)
	}
}

// handleResolveKey handles GET requests to redirect a short code or alias to
// the original URL. A hit bumps the record's access counters.
func handleResolveKey(svc URLService) http.HandlerFunc {
	const op = "api.http.handleResolveKey"

	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "code")

		url, err := svc.ResolveKey(r.Context(), key)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests for the usage statistics of a short
// code or alias, without affecting the counters.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"

	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "code")

		url, err := svc.GetURLStats(r.Context(), key)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, statsResponse{Stats: toURLStats(url)})
	}
}
