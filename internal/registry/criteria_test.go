package registry

import "testing"

func TestCriteriaWindow(t *testing.T) {
	tests := []struct {
		name       string
		criteria   Criteria
		wantLimit  int
		wantOffset int
	}{
		{"zero value", Criteria{}, 0, 0},
		{"limit only", Criteria{Limit: 5}, 5, 0},
		{"limit and offset", Criteria{Limit: 10, Offset: 10}, 10, 10},
		{"offset without limit defaults page size", Criteria{Offset: 3}, DefaultPageSize, 3},
		{"negative offset clamped", Criteria{Offset: -1}, 0, 0},
		{"negative limit treated as unbounded", Criteria{Limit: -2}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := tt.criteria.Window()
			if limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
			}
			if offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestCriteriaValidate(t *testing.T) {
	if err := (Criteria{FilterBy: &Filter{Field: "serial", Value: "x"}}).validate(medicalDeviceFields); err != nil {
		t.Errorf("serial should be valid for medical devices: %v", err)
	}
	if err := (Criteria{FilterBy: &Filter{Field: "serial", Value: "x"}}).validate(computerFields); err == nil {
		t.Error("serial should be rejected for computers")
	}
	if err := (Criteria{SortBy: &Sort{Field: "checkin_url"}}).validate(frequentComputerFields); err != nil {
		t.Errorf("checkin_url should be valid for frequent computers: %v", err)
	}
}
