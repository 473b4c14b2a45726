// Package store holds the remote progress documents. Each user owns one
// document keyed by user id; the progress gateway is its only writer.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document exists under the key.
var ErrNotFound = errors.New("store: document not found")

// Collection is the table/collection holding progress documents.
const Collection = "progress"

// Document is a schemaless progress document. Values are the JSON-shaped
// types produced by ToDocument: maps, slices, strings, bools, int64 and float64.
type Document map[string]any

// DocumentStore is a key-value document store.
type DocumentStore interface {
	// Read returns the document stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) (Document, error)

	// Create writes doc under key, replacing any existing document.
	Create(ctx context.Context, key string, doc Document) error

	// Update merges patch into the existing document, replacing whole
	// top-level fields. Returns ErrNotFound if no document exists.
	Update(ctx context.Context, key string, patch Document) error

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection.
	Close() error
}

// merge applies a top-level patch to doc in place.
func merge(doc, patch Document) Document {
	if doc == nil {
		doc = Document{}
	}
	for k, v := range patch {
		doc[k] = v
	}
	return doc
}
