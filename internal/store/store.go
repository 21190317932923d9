// Package store defines the generic keyed record contract every component
// persists through: named collections of JSON-shaped records with create,
// get-by-id, field-equality query, partial update and delete.
package store

import (
	"context"
	"errors"
)

var ErrRecordNotFound = errors.New("record not found")

// Record is a single stored document. Field names follow the JSON tags of
// the domain types that round-trip through Encode/Decode.
type Record map[string]any

// Filter matches records whose fields equal every given value.
type Filter map[string]any

type Query struct {
	Filter   Filter
	SortBy   string
	SortDesc bool
	Limit    int
}

type RecordStore interface {
	// Create inserts the record, assigning an "id" field if absent, and
	// returns the stored copy.
	Create(ctx context.Context, collection string, rec Record) (Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Find(ctx context.Context, collection string, q Query) ([]Record, error)
	// Update merges the partial record into the stored one at the top
	// level and returns the result.
	Update(ctx context.Context, collection, id string, partial Record) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}
