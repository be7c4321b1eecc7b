// Package content defines the contract between the page generator and a
// headless content source.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no document matches the requested type and UID.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps transport and query failures against the source.
	ErrUnavailable = errors.New("content source unavailable")
	// ErrMalformed is returned when a stored document cannot be decoded.
	ErrMalformed = errors.New("malformed document")
)

// Source is a read-only content repository. Implementations must be safe
// for concurrent use.
type Source interface {
	// Query lists document summaries of one type, one page at a time.
	Query(ctx context.Context, q Query) (Page, error)
	// GetByUID fetches a single document by type and UID. It returns
	// ErrNotFound when nothing matches.
	GetByUID(ctx context.Context, docType, uid string) (Document, error)
}

// Query filters documents by type. Page is 1-based; PageSize <= 0 lets the
// source pick its default.
type Query struct {
	Type     string
	PageSize int
	Page     int
}

// Page is one page of query results. NextPage is 0 when there are no more pages.
type Page struct {
	Results    []Summary
	Page       int
	NextPage   int
	TotalPages int
}

// Summary identifies a document without its data.
type Summary struct {
	ID                   string
	UID                  string
	Type                 string
	FirstPublicationDate *time.Time
}

// Document is a full document. Data holds the type-specific fields as JSON.
type Document struct {
	Summary
	LastPublicationDate *time.Time
	Data                json.RawMessage
}
