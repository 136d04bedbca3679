// Package store persists consignments and settings.
package store

import (
	"context"
	"errors"
)

// Pagination defaults for consignment listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	// ErrNotFound is returned when no live row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// ConsignmentFilter narrows a listing. Empty fields match everything.
type ConsignmentFilter struct {
	Status  string
	Carrier string
	OrderID string
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// NewPage clamps limit to (0, MaxPageSize] and offset to >= 0.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// Repository is the persistence contract used by the consignment service.
type Repository interface {
	// FirstSetting returns the oldest live settings row.
	FirstSetting(ctx context.Context) (*Setting, error)
	CreateSetting(ctx context.Context, s *Setting) error
	SaveSetting(ctx context.Context, s *Setting) error

	// CreateConsignment returns ErrDuplicate when the order already has a
	// live consignment.
	CreateConsignment(ctx context.Context, c *Consignment) error
	SaveConsignment(ctx context.Context, c *Consignment) error
	GetConsignment(ctx context.Context, id string) (*Consignment, error)
	FindConsignmentByOrder(ctx context.Context, orderID string) (*Consignment, error)
	ListConsignments(ctx context.Context, filter ConsignmentFilter, page Page) ([]Consignment, int64, error)
}
