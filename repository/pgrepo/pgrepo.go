// Package pgrepo implements the repository contract on Postgres, one JSONB
// document per row. Filters use containment (@>), partial updates use the
// JSONB merge operator, so the semantics match the in-memory implementation.
package pgrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	apperrors "github.com/vitalsign/go-session-store/internal/errors"
	"github.com/vitalsign/go-session-store/repository"
)

var _ repository.Repo = (*PGRepo)(nil)

// PGRepo stores a collection of documents in a single two-column table
// (id TEXT PRIMARY KEY, doc JSONB).
type PGRepo struct {
	pool   *pgxpool.Pool
	table  string
	schema repository.Schema
}

// Option defines a function type to modify the PGRepo instance.
type Option func(*PGRepo)

// WithSchema sets the schema validated on create and on updates that run
// validators.
func WithSchema(schema repository.Schema) Option {
	return func(r *PGRepo) {
		r.schema = schema
	}
}

// New creates a repository over the given pool and table. The table name is
// trusted configuration, not user input.
func New(pool *pgxpool.Pool, table string, options ...Option) (*PGRepo, error) {
	if pool == nil {
		return nil, pkgerrors.New("[pgrepo.New] pool is required")
	}
	if table == "" {
		return nil, pkgerrors.New("[pgrepo.New] table is required")
	}
	r := &PGRepo{pool: pool, table: table}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// EnsureTable creates the backing table if it does not exist.
func (r *PGRepo) EnsureTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, r.table))
	return wrap(err, "EnsureTable")
}

// FindByID implements repository.Repo.
func (r *PGRepo) FindByID(ctx context.Context, id string, projection ...string) (repository.Document, error) {
	var doc repository.Document
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, r.table), id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "FindByID")
	}
	return project(doc, projection), nil
}

// FindOne implements repository.Repo.
func (r *PGRepo) FindOne(ctx context.Context, filter repository.Filter, projection ...string) (repository.Document, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return nil, err
	}

	var doc repository.Document
	err = r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT doc FROM %s WHERE doc @> $1::jsonb LIMIT 1`, r.table), filterJSON).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "FindOne")
	}
	return project(doc, projection), nil
}

// Find implements repository.Repo. Expand is ignored: documents in this
// backend carry no resolvable references.
func (r *PGRepo) Find(ctx context.Context, filter repository.Filter, opts repository.FindOptions) ([]repository.Document, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT doc FROM %s WHERE doc @> $1::jsonb`, r.table)
	for i, sf := range opts.Sort {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "doc->>'%s'", strings.ReplaceAll(sf.Field, "'", "''"))
		if sf.Desc {
			sb.WriteString(" DESC")
		}
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", opts.Limit)
	}
	if opts.Skip > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", opts.Skip)
	}

	rows, err := r.pool.Query(ctx, sb.String(), filterJSON)
	if err != nil {
		return nil, wrap(err, "Find")
	}
	defer rows.Close()

	docs := make([]repository.Document, 0)
	for rows.Next() {
		var doc repository.Document
		if err := rows.Scan(&doc); err != nil {
			return nil, wrap(err, "Find")
		}
		docs = append(docs, project(doc, opts.Projection))
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "Find")
	}
	return docs, nil
}

// Create implements repository.Repo.
func (r *PGRepo) Create(ctx context.Context, data repository.Document) (repository.Document, error) {
	if r.schema != nil {
		if violations := r.schema.Validate(data); len(violations) > 0 {
			return nil, &repository.ValidationError{Violations: violations}
		}
	}

	doc := maps.Clone(data)
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
		doc[repository.IDField] = id
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[PGRepo.Create] marshal document")
	}
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, r.table), id, string(docJSON)); err != nil {
		return nil, wrap(err, "Create")
	}
	return doc, nil
}

// UpdateByID implements repository.Repo.
func (r *PGRepo) UpdateByID(ctx context.Context, id string, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	return r.update(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1 FOR UPDATE`, r.table), id, data, opts)
}

// UpdateOne implements repository.Repo.
func (r *PGRepo) UpdateOne(ctx context.Context, filter repository.Filter, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, fmt.Sprintf(
		`SELECT doc FROM %s WHERE doc @> $1::jsonb LIMIT 1 FOR UPDATE`, r.table), filterJSON, data, opts)
}

// update selects the target row for update, merges in Go so validators can see
// the merged document, and writes it back in one transaction.
func (r *PGRepo) update(ctx context.Context, selectSQL string, selectArg any, data repository.Document, opts repository.UpdateOptions) (repository.Document, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrap(err, "update")
	}
	defer tx.Rollback(ctx)

	var previous repository.Document
	err = tx.QueryRow(ctx, selectSQL, selectArg).Scan(&previous)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "update")
	}

	merged := maps.Clone(previous)
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

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[PGRepo.update] marshal document")
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET doc = $2::jsonb WHERE id = $1`, r.table), merged.ID(), string(mergedJSON)); err != nil {
		return nil, wrap(err, "update")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrap(err, "update")
	}

	if opts.ReturnUpdated {
		return merged, nil
	}
	return previous, nil
}

// DeleteByID implements repository.Repo. Deleting an absent id is a no-op.
func (r *PGRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	return wrap(err, "DeleteByID")
}

// DeleteOne implements repository.Repo.
func (r *PGRepo) DeleteOne(ctx context.Context, filter repository.Filter) error {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE doc @> $1::jsonb LIMIT 1)`,
		r.table, r.table), filterJSON)
	return wrap(err, "DeleteOne")
}

// DeleteMany implements repository.Repo and returns the number removed.
func (r *PGRepo) DeleteMany(ctx context.Context, filter repository.Filter) (int, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE doc @> $1::jsonb`, r.table), filterJSON)
	if err != nil {
		return 0, wrap(err, "DeleteMany")
	}
	return int(tag.RowsAffected()), nil
}

// Count implements repository.Repo.
func (r *PGRepo) Count(ctx context.Context, filter repository.Filter) (int, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT count(*) FROM %s WHERE doc @> $1::jsonb`, r.table), filterJSON).Scan(&count); err != nil {
		return 0, wrap(err, "Count")
	}
	return count, nil
}

// Exists implements repository.Repo.
func (r *PGRepo) Exists(ctx context.Context, filter repository.Filter) (bool, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE doc @> $1::jsonb)`, r.table), filterJSON).Scan(&exists); err != nil {
		return false, wrap(err, "Exists")
	}
	return exists, nil
}

func marshalFilter(filter repository.Filter) (string, error) {
	if filter == nil {
		filter = repository.Filter{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[pgrepo] marshal filter")
	}
	return string(filterJSON), nil
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

// wrap maps backend failures to ErrPersistenceUnavailable so callers can
// distinguish "store unreachable" from domain outcomes.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrapf(apperrors.ErrPersistenceUnavailable, "[PGRepo.%s] %v", op, err)
}
