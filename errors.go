package spacetraveling

import (
	"errors"

	"github.com/eringen/spacetraveling/content"
)

var (
	// ErrNotFound is returned when a requested post does not exist. It
	// matches content.ErrNotFound under errors.Is.
	ErrNotFound = content.ErrNotFound
	// ErrSourceUnavailable is returned when the content source cannot be reached
	// or rejects a query.
	ErrSourceUnavailable = errors.New("content source unavailable")
	// ErrMalformedDocument is returned when a fetched document does not have
	// the shape of a post. It matches content.ErrMalformed under errors.Is.
	ErrMalformedDocument = content.ErrMalformed
)
