// Package repository provides the vector collection contract the pipeline
// writes to and queries, and its embedded chromem-go implementation. The
// pipeline never manages the collection's on-disk layout.
package repository

import (
	"context"
)

// Record is one stored row: a content-addressed ID, its embedding, the
// text content, and flat string payload fields usable as filter predicates.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Payload   map[string]string
}

// Hit is one similarity query result, scored by cosine similarity.
type Hit struct {
	ID      string
	Content string
	Payload map[string]string
	Score   float32
}

// Collection is a named vector store. Upserts are keyed by ID and safe to
// call unconditionally; filters are equality predicates over payload
// fields. Implementations must reject vectors whose length disagrees with
// the collection's dimension.
type Collection interface {
	// Upsert writes records, overwriting any prior record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topk records nearest to the embedding, in
	// descending score order, optionally restricted by a payload filter.
	// Asking for more results than stored returns everything, not an error.
	Query(ctx context.Context, embedding []float32, topk int, where map[string]string) ([]Hit, error)

	// Get returns the record with the given ID, or nil if absent.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes one record. Returns false if no such record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteWhere removes every record matching the filter and returns how
	// many were removed. An unmatched filter removes zero, not an error.
	DeleteWhere(ctx context.Context, where map[string]string) (int, error)

	// Count returns the number of stored records.
	Count() int

	// Dimension returns the fixed vector length of this collection.
	Dimension() int

	// Path returns where this collection persists, for diagnostics.
	Path() string
}
