// Package memrepo provides the in-memory reference implementation of the
// repository contract. It backs tests and single-process deployments that do
// not need durable storage.
package memrepo

import (
	"context"
	"maps"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vitalsign/go-session-store/repository"
)

var _ repository.Repo = (*MemRepo)(nil)

// MemRepo stores documents in process memory, guarded by one RWMutex.
type MemRepo struct {
	docs   map[string]repository.Document
	order  []string // Insertion order, for stable unsorted reads
	schema repository.Schema
	lock   sync.RWMutex
}

// Option defines a function type to modify the MemRepo instance.
type Option func(*MemRepo)

// WithSchema sets the schema validated on create and on updates that run
// validators.
func WithSchema(schema repository.Schema) Option {
	return func(r *MemRepo) {
		r.schema = schema
	}
}

// New creates an empty in-memory repository.
func New(options ...Option) *MemRepo {
	r := &MemRepo{docs: make(map[string]repository.Document)}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// FindByID implements repository.Repo.
func (r *MemRepo) FindByID(_ context.Context, id string, projection ...string) (repository.Document, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return project(maps.Clone(doc), projection), nil
}

// FindOne implements repository.Repo.
func (r *MemRepo) FindOne(_ context.Context, filter repository.Filter, projection ...string) (repository.Document, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok && matches(doc, filter) {
			return project(maps.Clone(doc), projection), nil
		}
	}
	return nil, nil
}

// Find implements repository.Repo. Expand is a no-op: an in-memory collection
// holds no references to resolve.
func (r *MemRepo) Find(_ context.Context, filter repository.Filter, opts repository.FindOptions) ([]repository.Document, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matched := make([]repository.Document, 0)
	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok && matches(doc, filter) {
			matched = append(matched, maps.Clone(doc))
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j], opts.Sort)
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			return []repository.Document{}, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	for i := range matched {
		matched[i] = project(matched[i], opts.Projection)
	}
	return matched, nil
}

// Create implements repository.Repo. An id is assigned when the document does
// not carry one.
func (r *MemRepo) Create(_ context.Context, data repository.Document) (repository.Document, error) {
	if r.schema != nil {
		if violations := r.schema.Validate(data); len(violations) > 0 {
			return nil, &repository.ValidationError{Violations: violations}
		}
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	doc := maps.Clone(data)
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
		doc[repository.IDField] = id
	}
	if _, exists := r.docs[id]; !exists {
		r.order = append(r.order, id)
	}
	r.docs[id] = doc
	return maps.Clone(doc), nil
}

// UpdateByID implements repository.Repo.
func (r *MemRepo) UpdateByID(_ context.Context, id string, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return r.merge(doc, data, opts)
}

// UpdateOne implements repository.Repo.
func (r *MemRepo) UpdateOne(_ context.Context, filter repository.Filter, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok && matches(doc, filter) {
			return r.merge(doc, data, opts)
		}
	}
	return nil, nil
}

// merge applies a partial-field merge to doc in place. Caller holds the write
// lock.
func (r *MemRepo) merge(doc, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	merged := maps.Clone(doc)
	for field, value := range data {
		if field == repository.IDField {
			continue
		}
		merged[field] = value
	}

	if opts.RunValidators && r.schema != nil {
		if violations := r.schema.Validate(merged); len(violations) > 0 {
			return nil, &repository.ValidationError{Violations: violations}
		}
	}

	previous := maps.Clone(doc)
	r.docs[merged.ID()] = merged
	if opts.ReturnUpdated {
		return maps.Clone(merged), nil
	}
	return previous, nil
}

// DeleteByID implements repository.Repo. Deleting an absent id is a no-op.
func (r *MemRepo) DeleteByID(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.remove(id)
	return nil
}

// DeleteOne implements repository.Repo.
func (r *MemRepo) DeleteOne(_ context.Context, filter repository.Filter) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok && matches(doc, filter) {
			r.remove(id)
			return nil
		}
	}
	return nil
}

// DeleteMany implements repository.Repo and returns the number removed.
func (r *MemRepo) DeleteMany(_ context.Context, filter repository.Filter) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	removed := 0
	for _, id := range append([]string(nil), r.order...) {
		if doc, ok := r.docs[id]; ok && matches(doc, filter) {
			r.remove(id)
			removed++
		}
	}
	return removed, nil
}

// Count implements repository.Repo.
func (r *MemRepo) Count(_ context.Context, filter repository.Filter) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	count := 0
	for _, doc := range r.docs {
		if matches(doc, filter) {
			count++
		}
	}
	return count, nil
}

// Exists implements repository.Repo.
func (r *MemRepo) Exists(ctx context.Context, filter repository.Filter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

// remove drops id from both the map and the order slice. Caller holds the
// write lock.
func (r *MemRepo) remove(id string) {
	if _, ok := r.docs[id]; !ok {
		return
	}
	delete(r.docs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func matches(doc repository.Document, filter repository.Filter) bool {
	for field, want := range filter {
		if !reflect.DeepEqual(doc[field], want) {
			return false
		}
	}
	return true
}

func project(doc repository.Document, projection []string) repository.Document {
	if len(projection) == 0 {
		return doc
	}
	out := repository.Document{repository.IDField: doc[repository.IDField]}
	for _, field := range projection {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}

func less(a, b repository.Document, sortFields []repository.SortField) bool {
	for _, sf := range sortFields {
		cmp := compare(a[sf.Field], b[sf.Field])
		if cmp == 0 {
			continue
		}
		if sf.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// compare orders two document field values. Mixed or unsupported types fall
// back to comparing equal, which keeps the sort stable.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	}
	return 0
}
