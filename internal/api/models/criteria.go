package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lobbylog/lobbylog/internal/registry"
)

// CriteriaFromQuery parses list criteria from query parameters.
//
//	filterField / filterValue  equality filter on a column
//	sort                       column to sort by, prefix "-" for descending
//	limit / offset             pagination window
//
// Field names are validated downstream against each collection's column
// whitelist; this parser only checks shape.
func CriteriaFromQuery(q url.Values) (registry.Criteria, error) {
	var criteria registry.Criteria

	field := q.Get("filterField")
	value := q.Get("filterValue")
	if field != "" || value != "" {
		if field == "" || value == "" {
			return criteria, fmt.Errorf("filterField and filterValue must be provided together")
		}
		criteria.FilterBy = &registry.Filter{Field: field, Value: value}
	}

	if sort := q.Get("sort"); sort != "" {
		descending := strings.HasPrefix(sort, "-")
		criteria.SortBy = &registry.Sort{
			Field:      strings.TrimPrefix(sort, "-"),
			Descending: descending,
		}
	}

	var err error
	if criteria.Limit, err = parseNonNegative(q, "limit"); err != nil {
		return criteria, err
	}
	if criteria.Offset, err = parseNonNegative(q, "offset"); err != nil {
		return criteria, err
	}

	return criteria, nil
}

func parseNonNegative(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
