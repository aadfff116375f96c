package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationErrCode = "23505"

// Constraint names from the urls table schema. Which one fired tells the
// caller whether the short code, the alias or the original URL was taken.
const (
	shortCodeConstraint   = "urls_short_code_key"
	aliasConstraint       = "urls_alias_key"
	originalURLConstraint = "urls_original_url_key"
)

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
