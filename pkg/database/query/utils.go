package query

import "strconv"

const (
	defaultPagingLimit = 1000
)

// PaginateQuery appends cursor, ordering and limit clauses to a query whose
// WHERE clause is fully bracketed, numbering new parameters after opts.
//
//	PaginateQuery("SELECT * FROM t WHERE (phase = $1)", []interface{}{2}, ToCursor(5), 10, Ascending)
//	> "SELECT * FROM t WHERE (phase = $1) AND id > $2 ORDER BY id ASC LIMIT $3", [2 5 10]
func PaginateQuery(query string, opts []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		v := strconv.Itoa(len(opts) + 1)

		if direction == Ascending {
			query += " AND id > $" + v
		} else {
			query += " AND id < $" + v
		}

		opts = append(opts, cursor.ToUint64())
	}

	if direction == Ascending {
		query += " ORDER BY id ASC"
	} else {
		query += " ORDER BY id DESC"
	}

	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, limit)
	}

	return query, opts
}

// DefaultPaginationHandler resolves paging options, rejecting limits above
// the default page size.
func DefaultPaginationHandler(opts ...Option) (*QueryOptions, error) {
	return DefaultPaginationHandlerWithLimit(defaultPagingLimit, opts...)
}

// DefaultPaginationHandlerWithLimit is DefaultPaginationHandler with a custom
// maximum page size.
func DefaultPaginationHandlerWithLimit(limit uint64, opts ...Option) (*QueryOptions, error) {
	req := QueryOptions{
		Limit:     limit,
		SortBy:    Ascending,
		Supported: CanLimitResults | CanSortBy | CanQueryByCursor,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, ErrQueryNotSupported
	}

	if req.Limit > limit {
		return nil, ErrQueryNotSupported
	}

	return &req, nil
}
