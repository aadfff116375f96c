package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the code derived from the original URL, used as the default redirect key.
	ShortCode string
	// Alias is an optional caller-chosen token that substitutes for the short code in lookups.
	// Empty when the record has no alias.
	Alias string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// AccessCount tracks the number of times the shortened URL has been resolved.
	AccessCount int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// LastAccessedAt is the timestamp of the most recent resolution, nil until the first one.
	LastAccessedAt *time.Time
}

// Key returns the token the short URL is built from, preferring the alias when set.
func (u *URL) Key() string {
	if u.Alias != "" {
		return u.Alias
	}
	return u.ShortCode
}
