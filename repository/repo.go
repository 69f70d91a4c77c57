// Package repository defines a uniform CRUD and pagination contract over a
// document collection, decoupling domain services from collection-specific
// query syntax. Lookups that match nothing return an absent result, never an
// error: "not found" is data here.
package repository

import (
	"context"
	"fmt"
	"strings"
)

// Document is a single stored record. The field set is determined by the
// caller's schema and is opaque to the repository; the "id" field holds the
// assigned identifier.
type Document map[string]any

// IDField is the document field carrying the assigned identifier.
const IDField = "id"

// ID returns the document's identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Filter matches documents whose fields equal every listed value. An empty
// filter matches everything.
type Filter map[string]any

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// FindOptions carries the optional knobs of a Find call. Every field defaults
// to "no effect" when omitted.
type FindOptions struct {
	Projection []string    // Fields to return, id always included; nil returns all
	Sort       []SortField // Applied in order; nil leaves collection order
	Skip       int
	Limit      int      // 0 means no limit
	Expand     []string // Reference fields to resolve, where the backend supports it
}

// UpdateOptions carries the optional knobs of an update call.
type UpdateOptions struct {
	ReturnUpdated bool // Return the post-update document instead of the pre-update one
	RunValidators bool // Re-run schema validation against the merged document
}

// Repo is the data-access contract consumed by domain services. Reads return
// (nil, nil) when nothing matches. Mutations apply a partial-field merge,
// never full replacement, and report absent matches as (nil, nil) rather than
// an error.
type Repo interface {
	FindByID(ctx context.Context, id string, projection ...string) (Document, error)
	FindOne(ctx context.Context, filter Filter, projection ...string) (Document, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error)

	Create(ctx context.Context, data Document) (Document, error)

	UpdateByID(ctx context.Context, id string, data Document, opts UpdateOptions) (Document, error)
	UpdateOne(ctx context.Context, filter Filter, data Document, opts UpdateOptions) (Document, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteOne(ctx context.Context, filter Filter) error
	DeleteMany(ctx context.Context, filter Filter) (int, error)

	Count(ctx context.Context, filter Filter) (int, error)
	Exists(ctx context.Context, filter Filter) (bool, error)
}

// FieldViolation is one schema-level rejection, suitable for user display.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError reports schema-level rejection of a create or update.
type ValidationError struct {
	Violations []FieldViolation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Schema validates documents before they are written. Implementations belong
// to the caller's domain layer; a repository without a schema accepts
// anything.
type Schema interface {
	Validate(doc Document) []FieldViolation
}
