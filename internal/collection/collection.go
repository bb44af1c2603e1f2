// Package collection stores the items served by the reference REST endpoint.
//
// Items are free-form JSON objects grouped by collection name. The server owns
// the "id" attribute: it is assigned on create from an increasing sequence and
// is never taken from a client payload.
package collection

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
)

// ErrNotFound is returned when no item has the requested id
var ErrNotFound = errors.New("item not found")

// ErrInvalidName is returned for collection names outside [a-z0-9_-]
var ErrInvalidName = errors.New("invalid collection name")

// MaxPageSize caps List limits
const MaxPageSize = 1000

// Page is one slice of a listing
type Page struct {
	Items      []map[string]any `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

// Repository persists collection items
type Repository interface {
	// List returns up to limit items with ids greater than after, in id order
	List(ctx context.Context, coll string, after Cursor, limit int) (*Page, error)
	Get(ctx context.Context, coll string, id int64) (map[string]any, error)
	Create(ctx context.Context, coll string, attrs map[string]any) (map[string]any, error)
	// Replace swaps the stored attributes wholesale
	Replace(ctx context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error)
	// Merge overlays attrs onto the stored attributes
	Merge(ctx context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error)
	Delete(ctx context.Context, coll string, id int64) error
	Close() error
}

var namePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks a collection name taken from a URL
func ValidateName(coll string) error {
	if !namePattern.MatchString(coll) {
		return fmt.Errorf("%w: %q", ErrInvalidName, coll)
	}
	return nil
}

// payload strips the server-owned id before storage
func payload(attrs map[string]any) map[string]any {
	out := maps.Clone(attrs)
	if out == nil {
		out = map[string]any{}
	}
	delete(out, "id")
	return out
}

func withID(p map[string]any, id int64) map[string]any {
	out := maps.Clone(p)
	if out == nil {
		out = map[string]any{}
	}
	out["id"] = id
	return out
}

// clampLimit keeps limit within 1..MaxPageSize
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// finishPage sets the next cursor when the page is full and more items may follow
func finishPage(items []map[string]any, lastID int64, limit int) *Page {
	p := &Page{Items: items}
	if len(items) == limit && lastID > 0 {
		next := EncodeCursor(Cursor{After: lastID})
		p.NextCursor = &next
	}
	return p
}
