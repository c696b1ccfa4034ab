package store

import (
	"context"
	"errors"
)

// Collection names used by the service.
const (
	UsersCollection    = "users"
	MessagesCollection = "messages"
)

// ErrNotFound is returned by Get when no document exists for the id.
var ErrNotFound = errors.New("document not found")

// Fields is a flat document body.
type Fields map[string]any

// Store is the document-store gateway: per-document upsert plus an
// append-only child collection scoped to a parent document. Child
// upserts are idempotent on (parentID, childID).
type Store interface {
	// Upsert merges fields into the document, creating it when absent,
	// and returns the stored fields.
	Upsert(ctx context.Context, collection, id string, fields Fields) (Fields, error)

	// Get fetches a document's fields or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Fields, error)

	// AppendChild upserts a child document under parentID's child
	// collection, keyed by childID.
	AppendChild(ctx context.Context, parentID, childCollection, childID string, fields Fields) error
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
