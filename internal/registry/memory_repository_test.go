package registry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbylog/lobbylog/internal/registry"
)

func newComputer(id string) *registry.Computer {
	return &registry.Computer{
		ID:    id,
		Brand: "lenovo",
		Model: "t14",
		Owner: registry.Owner{ID: "own-1", Name: "Ada"},
	}
}

func newFrequentComputer(id string) *registry.FrequentComputer {
	return &registry.FrequentComputer{
		Device:      *newComputer(id),
		CheckinURL:  "http://x/checkin",
		CheckoutURL: "http://x/checkout",
	}
}

func TestCheckinComputer_StampsEntryTime(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	in := newComputer("comp-1")
	// Any entry time on the input must be overridden by the store.
	past := time.Now().Add(-24 * time.Hour)
	in.CheckinAt = &past

	stored, err := repo.CheckinComputer(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckinAt)
	assert.True(t, stored.CheckinAt.After(past))
	assert.Nil(t, stored.CheckoutAt)

	items, err := repo.GetComputers(ctx, registry.Criteria{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "comp-1", items[0].ID)
	assert.NotNil(t, items[0].CheckinAt)
}

func TestCheckinFrequentComputer_Unregistered(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())

	_, err := repo.CheckinFrequentComputer(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, registry.ErrDeviceNotFound)
}

func TestCheckinFrequentComputer_Registered(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	fc, err := repo.CheckinFrequentComputer(ctx, "freq-1", at)
	require.NoError(t, err)
	require.NotNil(t, fc.Device.CheckinAt)
	assert.True(t, fc.Device.CheckinAt.Equal(at))
}

func TestRegisterFrequentComputer_Duplicate(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	_, err = repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	assert.ErrorIs(t, err, registry.ErrDuplicateDevice)
}

func TestIsFrequentComputerRegistered(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	registered, err := repo.IsFrequentComputerRegistered(ctx, "freq-1")
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	registered, err = repo.IsFrequentComputerRegistered(ctx, "freq-1")
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestCheckoutDevice(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.CheckinComputer(ctx, newComputer("comp-1"))
	require.NoError(t, err)
	_, err = repo.CheckinMedicalDevice(ctx, &registry.MedicalDevice{
		Computer: *newComputer("med-1"),
		Serial:   "SN-1",
	})
	require.NoError(t, err)

	for _, id := range []string{"comp-1", "med-1"} {
		entered, err := repo.IsDeviceEntered(ctx, id)
		require.NoError(t, err)
		require.True(t, entered, "device %s should be entered after checkin", id)

		require.NoError(t, repo.CheckoutDevice(ctx, id, time.Now()))

		entered, err = repo.IsDeviceEntered(ctx, id)
		require.NoError(t, err)
		assert.False(t, entered, "device %s should not be entered after checkout", id)
	}
}

func TestCheckoutDevice_NotFound(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())

	err := repo.CheckoutDevice(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, registry.ErrDeviceNotFound)
}

func TestCheckoutDevice_AlreadyCheckedOut(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.CheckinComputer(ctx, newComputer("comp-1"))
	require.NoError(t, err)
	require.NoError(t, repo.CheckoutDevice(ctx, "comp-1", time.Now()))

	// A second checkout has no entered device to stamp.
	err = repo.CheckoutDevice(ctx, "comp-1", time.Now())
	assert.ErrorIs(t, err, registry.ErrDeviceNotFound)
}

func TestFrequentComputer_Reentry(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	day := func(d int, h int) time.Time {
		return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC)
	}

	// First visit.
	_, err = repo.CheckinFrequentComputer(ctx, "freq-1", day(1, 9))
	require.NoError(t, err)
	require.NoError(t, repo.CheckoutDevice(ctx, "freq-1", day(1, 17)))

	entered, err := repo.IsDeviceEntered(ctx, "freq-1")
	require.NoError(t, err)
	assert.False(t, entered)

	// Second visit: the stale checkout timestamp must not mask the new
	// entry.
	_, err = repo.CheckinFrequentComputer(ctx, "freq-1", day(2, 9))
	require.NoError(t, err)

	entered, err = repo.IsDeviceEntered(ctx, "freq-1")
	require.NoError(t, err)
	assert.True(t, entered)
}

func TestGetEnteredDevices(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.CheckinComputer(ctx, newComputer("comp-1"))
	require.NoError(t, err)
	_, err = repo.CheckinMedicalDevice(ctx, &registry.MedicalDevice{
		Computer: *newComputer("med-1"),
		Serial:   "SN-1",
	})
	require.NoError(t, err)

	entered, err := repo.GetEnteredDevices(ctx, registry.Criteria{})
	require.NoError(t, err)
	require.Len(t, entered, 2)

	kinds := map[registry.DeviceKind]string{}
	for _, e := range entered {
		kinds[e.Kind] = e.ID()
	}
	assert.Equal(t, "comp-1", kinds[registry.KindComputer])
	assert.Equal(t, "med-1", kinds[registry.KindMedicalDevice])
}

func TestGetEnteredDevices_IncludesFrequentComputers(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	// Registration alone does not put the device on-site.
	entered, err := repo.GetEnteredDevices(ctx, registry.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, entered)

	_, err = repo.CheckinFrequentComputer(ctx, "freq-1", time.Now())
	require.NoError(t, err)

	entered, err = repo.GetEnteredDevices(ctx, registry.Criteria{})
	require.NoError(t, err)
	require.Len(t, entered, 1)
	assert.Equal(t, registry.KindFrequentComputer, entered[0].Kind)
	assert.Equal(t, "freq-1", entered[0].ID())
}

func TestGetFrequentComputers_RoundTrip(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.RegisterFrequentComputer(ctx, newFrequentComputer("freq-1"))
	require.NoError(t, err)

	items, err := repo.GetFrequentComputers(ctx, registry.Criteria{
		FilterBy: &registry.Filter{Field: "id", Value: "freq-1"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "http://x/checkin", items[0].CheckinURL)
	assert.Equal(t, "http://x/checkout", items[0].CheckoutURL)
}

func TestGetComputers_Pagination(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := repo.CheckinComputer(ctx, newComputer(fmt.Sprintf("comp-%02d", i)))
		require.NoError(t, err)
	}

	page, err := repo.GetComputers(ctx, registry.Criteria{Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestGetComputers_DefaultPageSize(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := repo.CheckinComputer(ctx, newComputer(fmt.Sprintf("comp-%02d", i)))
		require.NoError(t, err)
	}

	// Offset without limit falls back to the default page size.
	page, err := repo.GetComputers(ctx, registry.Criteria{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, registry.DefaultPageSize)
}

func TestGetComputers_FilterAndSort(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	brands := []string{"dell", "apple", "dell", "lenovo"}
	for i, brand := range brands {
		c := newComputer(fmt.Sprintf("comp-%d", i))
		c.Brand = brand
		_, err := repo.CheckinComputer(ctx, c)
		require.NoError(t, err)
	}

	filtered, err := repo.GetComputers(ctx, registry.Criteria{
		FilterBy: &registry.Filter{Field: "brand", Value: "dell"},
	})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	sorted, err := repo.GetComputers(ctx, registry.Criteria{
		SortBy: &registry.Sort{Field: "brand"},
	})
	require.NoError(t, err)
	require.Len(t, sorted, 4)
	assert.Equal(t, "apple", sorted[0].Brand)
	assert.Equal(t, "lenovo", sorted[3].Brand)

	descending, err := repo.GetComputers(ctx, registry.Criteria{
		SortBy: &registry.Sort{Field: "brand", Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, descending, 4)
	assert.Equal(t, "lenovo", descending[0].Brand)
}

func TestGetComputers_UnknownField(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.GetComputers(ctx, registry.Criteria{
		FilterBy: &registry.Filter{Field: "serial", Value: "SN-1"},
	})
	assert.True(t, errors.Is(err, registry.ErrInvalidField))

	_, err = repo.GetComputers(ctx, registry.Criteria{
		SortBy: &registry.Sort{Field: "owner; DROP TABLE computers"},
	})
	assert.True(t, errors.Is(err, registry.ErrInvalidField))
}

func TestGetMedicalDevices_FilterBySerial(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	for i, serial := range []string{"SN-1", "SN-2"} {
		_, err := repo.CheckinMedicalDevice(ctx, &registry.MedicalDevice{
			Computer: *newComputer(fmt.Sprintf("med-%d", i)),
			Serial:   serial,
		})
		require.NoError(t, err)
	}

	items, err := repo.GetMedicalDevices(ctx, registry.Criteria{
		FilterBy: &registry.Filter{Field: "serial", Value: "SN-2"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "med-1", items[0].ID)
}

func TestRepository_ReturnsCopies(t *testing.T) {
	repo := registry.NewInMemoryRepository(zerolog.Nop())
	ctx := context.Background()

	stored, err := repo.CheckinComputer(ctx, newComputer("comp-1"))
	require.NoError(t, err)

	// Mutating the returned record must not affect the stored one.
	stored.Brand = "mutated"
	*stored.CheckinAt = time.Time{}

	items, err := repo.GetComputers(ctx, registry.Criteria{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "lenovo", items[0].Brand)
	assert.False(t, items[0].CheckinAt.IsZero())
}
