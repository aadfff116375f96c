package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shortly-app/shortly/internal/database"
	"github.com/shortly-app/shortly/internal/models"
	"github.com/shortly-app/shortly/internal/shortcode"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for resolving a short code collision is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// ErrAliasExists is returned when the requested alias is already reserved by another record.
var ErrAliasExists = database.ErrAliasExists

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL into the repository. The alias may be
	// empty. Returns the created URL model, or a uniqueness sentinel error
	// (database.ErrShortCodeExists, ErrAliasExists, ErrURLExists) naming the
	// constraint that rejected the insert.
	Create(ctx context.Context, shortCode, alias, originalURL string) (*models.URL, error)

	// GetByOriginalURL retrieves a URL by the original URL it was created from.
	// Returns database.ErrURLNotFound when no record exists.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// GetByKey retrieves a URL whose short code or alias matches key, without
	// mutating anything. Returns database.ErrURLNotFound when nothing matches.
	GetByKey(ctx context.Context, key string) (*models.URL, error)

	// RegisterAccess retrieves a URL by short code or alias and atomically
	// increments its access counters. Returns database.ErrURLNotFound when
	// nothing matches; counters are untouched in that case.
	RegisterAccess(ctx context.Context, key string) (*models.URL, error)
}

// URLService provides methods to manage URL shortening operations.
// The service uses a URLRepository interface to interact with the underlying database
// and holds no shared mutable state of its own; every uniqueness and counting
// invariant is enforced by the repository.
type URLService struct {
	repo            URLRepository
	shortCodeLength int
}

// NewURLService creates a new instance of URLService with the provided repository and short code length.
func NewURLService(repo URLRepository, shortCodeLength int) *URLService {
	if shortCodeLength <= 0 {
		shortCodeLength = shortcode.DefaultLength
	}

	return &URLService{
		repo:            repo,
		shortCodeLength: shortCodeLength,
	}
}

// ShortenURL returns the record mapping originalURL to a short code, creating
// it if it doesn't exist. The returned flag reports whether a record was
// created by this call.
//
// Shortening is idempotent: the short code is a deterministic hash of the URL,
// so a repeated submission would collide with the existing row's unique
// constraint. The flow is therefore check-then-act with a fallback on
// conflict: an existing record is returned as-is (any supplied alias is
// ignored), and a uniqueness violation raised by a concurrent identical
// request is resolved by re-reading the winning record instead of surfacing an
// error. An insert rejected on the short code constraint for a *different* URL
// is a truncated-hash collision; it is retried with a longer truncation of the
// same digest.
func (s *URLService) ShortenURL(ctx context.Context, originalURL, alias string) (*models.URL, bool, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	url, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err == nil {
		return url, false, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		return nil, false, fmt.Errorf("%s: failed to check existing url: %w", op, err)
	}

	if alias != "" {
		if _, err := s.repo.GetByKey(ctx, alias); err == nil {
			return nil, false, fmt.Errorf("%s: %w", op, ErrAliasExists)
		} else if !errors.Is(err, database.ErrURLNotFound) {
			return nil, false, fmt.Errorf("%s: failed to check alias: %w", op, err)
		}
	}

	length := s.shortCodeLength

	for i := 0; i < maxRetries; i++ {
		code := shortcode.Generate(originalURL, length)

		url, err := s.repo.Create(ctx, code, alias, originalURL)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLExists):
				// Lost the race against a concurrent identical request.
				return s.reuseExisting(ctx, op, originalURL)
			case errors.Is(err, database.ErrShortCodeExists):
				if existing, _, reuseErr := s.reuseExisting(ctx, op, originalURL); reuseErr == nil {
					return existing, false, nil
				}

				// Same code, different URL: a truncated-hash collision.
				length++
				continue
			case errors.Is(err, database.ErrAliasExists):
				return nil, false, fmt.Errorf("%s: %w", op, ErrAliasExists)
			}

			return nil, false, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, true, nil
	}

	return nil, false, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (s *URLService) reuseExisting(ctx context.Context, op, originalURL string) (*models.URL, bool, error) {
	url, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to re-read url after conflict: %w", op, err)
	}

	return url, false, nil
}

// ResolveKey retrieves the original URL associated with the provided short code or alias,
// incrementing the record's access count exactly once. If nothing matches, it returns
// an error wrapping database.ErrURLNotFound and counters stay untouched.
func (s *URLService) ResolveKey(ctx context.Context, key string) (*models.URL, error) {
	const op = "service.URLService.ResolveKey"

	url, err := s.repo.RegisterAccess(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve key: %w", op, err)
	}

	return url, nil
}

// GetURLStats retrieves the statistics for the URL associated with the provided
// short code or alias, without mutating anything.
func (s *URLService) GetURLStats(ctx context.Context, key string) (*models.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
