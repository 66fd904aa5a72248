package registry

import (
	"errors"
	"fmt"
)

// ErrInvalidField is returned when a criteria filter or sort names a field
// the target collection does not have.
var ErrInvalidField = errors.New("unknown criteria field")

// DefaultPageSize is applied when an offset is supplied without an explicit
// limit. Offset pagination is not stable under concurrent writes; callers
// needing stable pages must supply a sort field.
const DefaultPageSize = 10

// Filter is a single exact-match predicate. Compound filters are not
// supported.
type Filter struct {
	Field string
	Value string
}

// Sort orders results by a single field.
type Sort struct {
	Field      string
	Descending bool
}

// Criteria is a query specification: an optional equality filter, an
// optional sort, and an optional limit/offset window. The zero value
// matches all records in unspecified order.
type Criteria struct {
	FilterBy *Filter
	SortBy   *Sort
	Limit    int
	Offset   int
}

// Window returns the effective limit and offset. A limit of zero means
// unbounded unless an offset is present, in which case the default page
// size applies.
func (c Criteria) Window() (limit, offset int) {
	limit = c.Limit
	if limit <= 0 {
		limit = 0
		if c.Offset > 0 {
			limit = DefaultPageSize
		}
	}
	offset = c.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// validate checks the filter and sort fields against the collection's field
// set. Criteria field names are the stored column names, uniform across both
// repository implementations.
func (c Criteria) validate(allowed map[string]bool) error {
	if c.FilterBy != nil && !allowed[c.FilterBy.Field] {
		return fmt.Errorf("%w: filter field %q", ErrInvalidField, c.FilterBy.Field)
	}
	if c.SortBy != nil && !allowed[c.SortBy.Field] {
		return fmt.Errorf("%w: sort field %q", ErrInvalidField, c.SortBy.Field)
	}
	return nil
}

func fieldSet(fields ...string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// Queryable fields per collection.
var (
	computerFields = fieldSet(
		"id", "brand", "model", "owner_id", "owner_name", "photo_url",
		"updated_at", "checkin_at", "checkout_at",
	)
	medicalDeviceFields    = fieldSet(append(fieldNames(computerFields), "serial")...)
	frequentComputerFields = fieldSet(append(fieldNames(computerFields), "checkin_url", "checkout_url")...)
)

func fieldNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for f := range set {
		names = append(names, f)
	}
	return names
}
