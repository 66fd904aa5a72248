package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQuery(t *testing.T) {
	tests := []struct {
		name      string
		criteria  Criteria
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "empty criteria",
			criteria:  Criteria{},
			wantQuery: "SELECT " + computerColumns + " FROM computers",
			wantArgs:  nil,
		},
		{
			name:      "filter",
			criteria:  Criteria{FilterBy: &Filter{Field: "brand", Value: "dell"}},
			wantQuery: "SELECT " + computerColumns + " FROM computers WHERE brand = $1",
			wantArgs:  []any{"dell"},
		},
		{
			name:      "sort ascending",
			criteria:  Criteria{SortBy: &Sort{Field: "updated_at"}},
			wantQuery: "SELECT " + computerColumns + " FROM computers ORDER BY updated_at",
			wantArgs:  nil,
		},
		{
			name:      "sort descending",
			criteria:  Criteria{SortBy: &Sort{Field: "updated_at", Descending: true}},
			wantQuery: "SELECT " + computerColumns + " FROM computers ORDER BY updated_at DESC",
			wantArgs:  nil,
		},
		{
			name:      "pagination",
			criteria:  Criteria{Limit: 10, Offset: 10},
			wantQuery: "SELECT " + computerColumns + " FROM computers LIMIT $1 OFFSET $2",
			wantArgs:  []any{10, 10},
		},
		{
			name:      "offset without limit gets default page size",
			criteria:  Criteria{Offset: 5},
			wantQuery: "SELECT " + computerColumns + " FROM computers LIMIT $1 OFFSET $2",
			wantArgs:  []any{DefaultPageSize, 5},
		},
		{
			name: "combined",
			criteria: Criteria{
				FilterBy: &Filter{Field: "owner_name", Value: "Ada"},
				SortBy:   &Sort{Field: "checkin_at", Descending: true},
				Limit:    3,
			},
			wantQuery: "SELECT " + computerColumns + " FROM computers WHERE owner_name = $1 ORDER BY checkin_at DESC LIMIT $2",
			wantArgs:  []any{"Ada", 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := listQuery("computers", computerColumns, computerFields, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestListQuery_RejectsUnknownFields(t *testing.T) {
	// Filter and sort fields go into the SQL text, so anything outside
	// the column whitelist must be rejected before it gets there.
	_, _, err := listQuery("computers", computerColumns, computerFields, Criteria{
		FilterBy: &Filter{Field: "id; DROP TABLE computers", Value: "x"},
	})
	assert.ErrorIs(t, err, ErrInvalidField)

	_, _, err = listQuery("computers", computerColumns, computerFields, Criteria{
		SortBy: &Sort{Field: "serial"},
	})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestListQuery_MedicalDeviceColumns(t *testing.T) {
	query, args, err := listQuery("medical_devices", medicalDeviceColumns, medicalDeviceFields, Criteria{
		FilterBy: &Filter{Field: "serial", Value: "SN-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+medicalDeviceColumns+" FROM medical_devices WHERE serial = $1", query)
	assert.Equal(t, []any{"SN-1"}, args)
}
