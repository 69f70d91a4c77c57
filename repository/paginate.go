package repository

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Page is one page of a filtered collection.
type Page struct {
	Data       []Document
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// Paginate returns page (1-indexed) of the documents matching filter, limit
// per page. The page query and the total count are independent reads and are
// issued concurrently. Skip and Limit in opts are overridden; the remaining
// options (projection, sort, expand) pass through. page and limit are assumed
// caller-validated (>= 1) — clamping belongs to the request-validation layer.
func Paginate(ctx context.Context, repo Repo, filter Filter, page, limit int, opts FindOptions) (*Page, error) {
	opts.Skip = (page - 1) * limit
	opts.Limit = limit

	var (
		data  []Document
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = repo.Find(gctx, filter, opts)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}
