package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Page size bounds for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for a cursor this service did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest holds the paging query parameters of a list endpoint.
type PageRequest struct {
	// Cursor is the NextCursor of the previous page; empty for the first.
	Cursor string `form:"cursor"`

	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// Size returns the page size with the default and the cap applied.
func (p PageRequest) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Offset returns the index the requested page starts at.
func (p PageRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	return decodeCursor(p.Cursor)
}

// Page is one window of a listed collection.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Paginate cuts the page p asks for out of items. A cursor past the end
// yields an empty page.
func Paginate[T any](items []T, p PageRequest) (*Page[T], error) {
	offset, err := p.Offset()
	if err != nil {
		return nil, err
	}

	start := min(offset, len(items))
	end := min(start+p.Size(), len(items))

	page := &Page[T]{Items: append(make([]T, 0, end-start), items[start:end]...)}
	if end < len(items) {
		page.HasMore = true
		page.NextCursor = EncodeCursor(end)
	}

	return page, nil
}

// MapPage converts the items of page with fn and keeps its cursor.
func MapPage[T, U any](page *Page[T], fn func(T) U) *Page[U] {
	items := make([]U, len(page.Items))
	for i, item := range page.Items {
		items[i] = fn(item)
	}

	return &Page[U]{Items: items, NextCursor: page.NextCursor, HasMore: page.HasMore}
}

type cursor struct {
	Offset int `json:"o"`
}

// EncodeCursor returns the opaque cursor of a page starting at offset.
func EncodeCursor(offset int) string {
	data, _ := json.Marshal(cursor{Offset: offset})

	return base64.RawURLEncoding.EncodeToString(data)
}

// Issued cursors always point past the first page.
func decodeCursor(encoded string) (int, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var c cursor
	if err := json.Unmarshal(data, &c); err != nil || c.Offset <= 0 {
		return 0, ErrInvalidCursor
	}

	return c.Offset, nil
}
