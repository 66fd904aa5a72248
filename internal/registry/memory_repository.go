package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for tests and local development. Production should use
// the PostgreSQL-backed implementation.
type InMemoryRepository struct {
	mu        sync.RWMutex
	log       zerolog.Logger
	now       func() time.Time
	computers map[string]*Computer
	medical   map[string]*MedicalDevice
	frequent  map[string]*FrequentComputer
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository(log zerolog.Logger) *InMemoryRepository {
	return &InMemoryRepository{
		log:       log,
		now:       time.Now,
		computers: make(map[string]*Computer),
		medical:   make(map[string]*MedicalDevice),
		frequent:  make(map[string]*FrequentComputer),
	}
}

// RegisterFrequentComputer inserts a new frequent computer.
func (r *InMemoryRepository) RegisterFrequentComputer(_ context.Context, fc *FrequentComputer) (*FrequentComputer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.frequent[fc.Device.ID]; ok {
		return nil, ErrDuplicateDevice
	}

	stored := copyFrequentComputer(fc)
	stored.Device.UpdatedAt = r.now()
	r.frequent[stored.Device.ID] = stored

	return copyFrequentComputer(stored), nil
}

// GetFrequentComputers lists frequent computers matching the criteria.
func (r *InMemoryRepository) GetFrequentComputers(_ context.Context, criteria Criteria) ([]*FrequentComputer, error) {
	if err := criteria.validate(frequentComputerFields); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*FrequentComputer
	for _, fc := range r.frequent {
		if matches(criteria.FilterBy, frequentComputerField(fc)) {
			items = append(items, copyFrequentComputer(fc))
		}
	}

	sortItems(items, criteria.SortBy, func(fc *FrequentComputer) func(string) (string, *time.Time) {
		return frequentComputerField(fc)
	})

	return window(items, criteria), nil
}

// CheckinFrequentComputer stamps the entry time on a registered frequent
// computer.
func (r *InMemoryRepository) CheckinFrequentComputer(_ context.Context, id string, at time.Time) (*FrequentComputer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fc, ok := r.frequent[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	checkin := at
	fc.Device.CheckinAt = &checkin
	fc.Device.UpdatedAt = r.now()

	return copyFrequentComputer(fc), nil
}

// IsFrequentComputerRegistered reports whether the id is registered.
func (r *InMemoryRepository) IsFrequentComputerRegistered(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.frequent[id]
	return ok, nil
}

// CheckinComputer inserts a new computer record, stamping the current time
// as the entry time.
func (r *InMemoryRepository) CheckinComputer(_ context.Context, c *Computer) (*Computer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyComputer(c)
	now := r.now()
	stored.CheckinAt = &now
	stored.CheckoutAt = nil
	stored.UpdatedAt = now
	r.computers[stored.ID] = stored

	return copyComputer(stored), nil
}

// CheckinMedicalDevice inserts a new medical device record, stamping the
// current time as the entry time.
func (r *InMemoryRepository) CheckinMedicalDevice(_ context.Context, d *MedicalDevice) (*MedicalDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMedicalDevice(d)
	now := r.now()
	stored.CheckinAt = &now
	stored.CheckoutAt = nil
	stored.UpdatedAt = now
	r.medical[stored.ID] = stored

	return copyMedicalDevice(stored), nil
}

// GetComputers lists computers matching the criteria.
func (r *InMemoryRepository) GetComputers(_ context.Context, criteria Criteria) ([]*Computer, error) {
	if err := criteria.validate(computerFields); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Computer
	for _, c := range r.computers {
		if matches(criteria.FilterBy, computerField(c, "")) {
			items = append(items, copyComputer(c))
		}
	}

	sortItems(items, criteria.SortBy, func(c *Computer) func(string) (string, *time.Time) {
		return computerField(c, "")
	})

	return window(items, criteria), nil
}

// GetMedicalDevices lists medical devices matching the criteria.
func (r *InMemoryRepository) GetMedicalDevices(_ context.Context, criteria Criteria) ([]*MedicalDevice, error) {
	if err := criteria.validate(medicalDeviceFields); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*MedicalDevice
	for _, d := range r.medical {
		if matches(criteria.FilterBy, computerField(&d.Computer, d.Serial)) {
			items = append(items, copyMedicalDevice(d))
		}
	}

	sortItems(items, criteria.SortBy, func(d *MedicalDevice) func(string) (string, *time.Time) {
		return computerField(&d.Computer, d.Serial)
	})

	return window(items, criteria), nil
}

// GetEnteredDevices lists devices currently on-site across all categories.
func (r *InMemoryRepository) GetEnteredDevices(ctx context.Context, criteria Criteria) ([]EnteredDevice, error) {
	return enteredDevices(ctx, r, criteria)
}

// CheckoutDevice stamps the exit time on whichever category holds an
// entered device with the given id.
func (r *InMemoryRepository) CheckoutDevice(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := false
	checkout := at

	if c, ok := r.computers[id]; ok && c.Entered() {
		c.CheckoutAt = &checkout
		c.UpdatedAt = r.now()
		matched = true
	}
	if d, ok := r.medical[id]; ok && d.Entered() {
		d.CheckoutAt = &checkout
		d.UpdatedAt = r.now()
		matched = true
	}
	if fc, ok := r.frequent[id]; ok && fc.Device.Entered() {
		fc.Device.CheckoutAt = &checkout
		fc.Device.UpdatedAt = r.now()
		matched = true
	}

	if !matched {
		return ErrDeviceNotFound
	}
	return nil
}

// IsDeviceEntered reports whether any category holds an entered device with
// the given id.
func (r *InMemoryRepository) IsDeviceEntered(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.computers[id]; ok && c.Entered() {
		return true, nil
	}
	if d, ok := r.medical[id]; ok && d.Entered() {
		return true, nil
	}
	if fc, ok := r.frequent[id]; ok && fc.Device.Entered() {
		return true, nil
	}
	return false, nil
}

// computerField resolves a criteria field name against a computer record.
// It returns the string form for filtering and, for timestamp fields, the
// underlying time for ordering.
func computerField(c *Computer, serial string) func(string) (string, *time.Time) {
	return func(field string) (string, *time.Time) {
		switch field {
		case "id":
			return c.ID, nil
		case "brand":
			return c.Brand, nil
		case "model":
			return c.Model, nil
		case "owner_id":
			return c.Owner.ID, nil
		case "owner_name":
			return c.Owner.Name, nil
		case "photo_url":
			return c.PhotoURL, nil
		case "serial":
			return serial, nil
		case "updated_at":
			u := c.UpdatedAt
			return u.Format(time.RFC3339Nano), &u
		case "checkin_at":
			return timeField(c.CheckinAt)
		case "checkout_at":
			return timeField(c.CheckoutAt)
		}
		return "", nil
	}
}

func frequentComputerField(fc *FrequentComputer) func(string) (string, *time.Time) {
	base := computerField(&fc.Device, "")
	return func(field string) (string, *time.Time) {
		switch field {
		case "checkin_url":
			return fc.CheckinURL, nil
		case "checkout_url":
			return fc.CheckoutURL, nil
		}
		return base(field)
	}
}

func timeField(t *time.Time) (string, *time.Time) {
	if t == nil {
		return "", nil
	}
	return t.Format(time.RFC3339Nano), t
}

func matches(f *Filter, field func(string) (string, *time.Time)) bool {
	if f == nil {
		return true
	}
	v, _ := field(f.Field)
	return v == f.Value
}

func sortItems[T any](items []T, s *Sort, field func(T) func(string) (string, *time.Time)) {
	if s == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, ti := field(items[i])(s.Field)
		vj, tj := field(items[j])(s.Field)

		var less bool
		if ti != nil && tj != nil {
			less = ti.Before(*tj)
		} else {
			less = strings.Compare(vi, vj) < 0
		}

		if s.Descending {
			return !less
		}
		return less
	})
}

func window[T any](items []T, criteria Criteria) []T {
	limit, offset := criteria.Window()

	if offset >= len(items) {
		return nil
	}
	items = items[offset:]

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyComputer(c *Computer) *Computer {
	if c == nil {
		return nil
	}
	out := *c
	if c.CheckinAt != nil {
		t := *c.CheckinAt
		out.CheckinAt = &t
	}
	if c.CheckoutAt != nil {
		t := *c.CheckoutAt
		out.CheckoutAt = &t
	}
	return &out
}

func copyMedicalDevice(d *MedicalDevice) *MedicalDevice {
	if d == nil {
		return nil
	}
	return &MedicalDevice{
		Computer: *copyComputer(&d.Computer),
		Serial:   d.Serial,
	}
}

func copyFrequentComputer(fc *FrequentComputer) *FrequentComputer {
	if fc == nil {
		return nil
	}
	return &FrequentComputer{
		Device:      *copyComputer(&fc.Device),
		CheckinURL:  fc.CheckinURL,
		CheckoutURL: fc.CheckoutURL,
	}
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
