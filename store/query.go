package store

import (
	"context"
	"fmt"
	"strings"
)

// Op is a comparison operator in a search criterion.
type Op string

const (
	OpEqual    Op = "eq"
	OpContains Op = "contains"
)

// Dir is an ordering direction.
type Dir string

const (
	Asc  Dir = "asc"
	Desc Dir = "desc"
)

// Combine joins multiple criteria.
type Combine string

const (
	CombineAnd Combine = "and"
	CombineOr  Combine = "or"
)

// Criterion is one column comparison.
type Criterion struct {
	Column string
	Op     Op
	Value  string
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Column string
	Dir    Dir
}

// Query describes a channel search: filter criteria, how they combine,
// ordering and pagination. The zero value returns everything, first page.
type Query struct {
	Criteria []Criterion
	Combine  Combine
	OrderBy  []Ordering
	Page     int
	PageSize int
}

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// Columns accepted in criteria and ordering. Every identifier that reaches
// the SQL text must come from this set; values always travel as parameters.
var channelColumns = map[string]struct{}{
	"name":          {},
	"url_path":      {},
	"data_format":   {},
	"security_name": {},
	"is_active":     {},
}

// SearchResult is one page of matching channels.
type SearchResult struct {
	Items    []*ChannelRecord
	Total    int
	Page     int
	PageSize int
	NumPages int
}

// SearchChannels returns the channels matching q, paginated.
func (s *Store) SearchChannels(ctx context.Context, q Query) (*SearchResult, error) {
	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}
	orderBy, err := buildOrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var total int
	countArgs := make([]any, len(args))
	copy(countArgs, args)
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM channels"+where, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count channels: %w", err)
	}

	query := `SELECT id, name, url_path, is_active, data_format, security_name, service_whitelist, created_at, updated_at
		 FROM channels` + where + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search channels: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		NumPages: (total + pageSize - 1) / pageSize,
	}
	for rows.Next() {
		rec, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, rec)
	}
	return result, rows.Err()
}

func buildWhere(q Query) (string, []any, error) {
	if len(q.Criteria) == 0 {
		return "", nil, nil
	}

	joiner := " AND "
	switch q.Combine {
	case "", CombineAnd:
	case CombineOr:
		joiner = " OR "
	default:
		return "", nil, fmt.Errorf("unknown combine operator %q", q.Combine)
	}

	terms := make([]string, 0, len(q.Criteria))
	args := make([]any, 0, len(q.Criteria))

	for _, c := range q.Criteria {
		if _, ok := channelColumns[c.Column]; !ok {
			return "", nil, fmt.Errorf("unknown search column %q", c.Column)
		}
		switch c.Op {
		case "", OpEqual:
			terms = append(terms, c.Column+" = ?")
			args = append(args, c.Value)
		case OpContains:
			terms = append(terms, c.Column+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(c.Value)+"%")
		default:
			return "", nil, fmt.Errorf("unknown search operator %q", c.Op)
		}
	}

	return " WHERE " + strings.Join(terms, joiner), args, nil
}

func buildOrderBy(orderings []Ordering) (string, error) {
	if len(orderings) == 0 {
		return " ORDER BY name ASC, id ASC", nil
	}

	terms := make([]string, 0, len(orderings))
	for _, o := range orderings {
		if _, ok := channelColumns[o.Column]; !ok {
			return "", fmt.Errorf("unknown ordering column %q", o.Column)
		}
		dir := "ASC"
		switch o.Dir {
		case "", Asc:
		case Desc:
			dir = "DESC"
		default:
			return "", fmt.Errorf("unknown ordering direction %q", o.Dir)
		}
		terms = append(terms, o.Column+" "+dir)
	}

	// id keeps the ordering total when the requested columns tie.
	terms = append(terms, "id ASC")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied value.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
