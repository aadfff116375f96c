package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrAliasExists is returned when an attempt is made to reserve
	// an alias that is already held by another record.
	ErrAliasExists = errors.New("alias exists")
	// ErrURLExists is returned when an attempt is made to create
	// a record for an original URL that already has one.
	ErrURLExists = errors.New("url exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a key that doesn't match any record.
	ErrURLNotFound = errors.New("url not found")
)
