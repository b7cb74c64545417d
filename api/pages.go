package api

import (
	"context"
	"iter"
	"strconv"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// Pages returns a sequence over every item of a paginated listing.
//
// Pages are requested lazily as the sequence is consumed, starting at page
// 1. Requesting stops once meta.total <= pageSize*page or a page comes back
// empty. A failed page yields its error once and ends the sequence.
// pageSize <= 0 uses DefaultPageSize.
func Pages[T any](ctx context.Context, c *Client, r Request, pageSize int) iter.Seq2[T, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(T, error) bool) {
		for page := 1; ; page++ {
			pr := r
			pr.Query = cloneQuery(r.Query)
			pr.Query.Set("page", strconv.Itoa(page))
			pr.Query.Set("limit", strconv.Itoa(pageSize))

			items, meta, err := DoPage[T](ctx, c, pr)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if len(items) == 0 || meta.Total <= pageSize*page {
				return
			}
		}
	}
}
