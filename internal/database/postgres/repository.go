package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shortly-app/shortly/internal/database"
	"github.com/shortly-app/shortly/internal/models"
)

type urlRecord struct {
	ID             int64          `db:"id"`
	ShortCode      string         `db:"short_code"`
	Alias          sql.NullString `db:"alias"`
	OriginalURL    string         `db:"original_url"`
	AccessCount    int64          `db:"access_count"`
	CreatedAt      time.Time      `db:"created_at"`
	LastAccessedAt sql.NullTime   `db:"last_accessed_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		Alias:       r.Alias.String,
		OriginalURL: r.OriginalURL,
		AccessCount: r.AccessCount,
		CreatedAt:   r.CreatedAt,
	}

	if r.LastAccessedAt.Valid {
		t := r.LastAccessedAt.Time
		url.LastAccessedAt = &t
	}

	return url
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new record. Uniqueness violations are mapped to the
// sentinel error of the constraint that fired, so callers can tell a taken
// alias from a taken short code or an already-shortened URL.
func (r *URLRepository) Create(ctx context.Context, shortCode, alias, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, alias, original_url)
		VALUES ($1, $2, $3)
		RETURNING *`

	aliasArg := sql.NullString{String: alias, Valid: alias != ""}

	err := r.db.GetContext(ctx, rec, query, shortCode, aliasArg, originalURL)
	if err != nil {
		if isUniqueViolationError(err) {
			switch violatedConstraint(err) {
			case aliasConstraint:
				return nil, fmt.Errorf("%s: %w", op, database.ErrAliasExists)
			case originalURLConstraint:
				return nil, fmt.Errorf("%s: %w", op, database.ErrURLExists)
			default:
				return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
			}
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE original_url = $1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByKey retrieves a record whose short code or alias matches key, without
// touching the access counters.
func (r *URLRepository) GetByKey(ctx context.Context, key string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByKey"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE short_code = $1 OR alias = $1`

	err := r.db.GetContext(ctx, rec, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// RegisterAccess resolves key against the short code or alias and bumps the
// access counters in the same statement, so concurrent resolutions of one
// record never lose increments.
func (r *URLRepository) RegisterAccess(ctx context.Context, key string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.RegisterAccess"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET access_count = access_count + 1,
			last_accessed_at = now()
		WHERE short_code = $1 OR alias = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to register url access: %w", op, err)
	}

	return rec.ToURL(), nil
}
