package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbylog/lobbylog/internal/events"
	"github.com/lobbylog/lobbylog/internal/photo"
	"github.com/lobbylog/lobbylog/internal/registry"
)

type capturedInvocation struct {
	URL      string
	DeviceID string
	At       time.Time
}

type fakeInvoker struct {
	mu    sync.Mutex
	calls []capturedInvocation
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, url, deviceID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, capturedInvocation{URL: url, DeviceID: deviceID, At: at})
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type serviceFixture struct {
	service   *registry.Service
	repo      *registry.InMemoryRepository
	photos    *photo.InMemoryStorage
	invoker   *fakeInvoker
	publisher *fakePublisher
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:      registry.NewInMemoryRepository(zerolog.Nop()),
		photos:    photo.NewInMemoryStorage(),
		invoker:   &fakeInvoker{},
		publisher: &fakePublisher{},
	}

	seq := 0
	f.service = registry.NewService(registry.ServiceConfig{
		Repository:   f.repo,
		Photos:       f.photos,
		Capabilities: f.invoker,
		Events:       f.publisher,
		Logger:       zerolog.Nop(),
		NewID: func() string {
			seq++
			return fmt.Sprintf("dev-%03d", seq)
		},
	})
	return f
}

func medicalInput() registry.MedicalDeviceInput {
	return registry.MedicalDeviceInput{
		DeviceInput: registry.DeviceInput{
			Brand:            "siemens",
			Model:            "acuson",
			OwnerID:          "own-1",
			OwnerName:        "Grace",
			Photo:            []byte{0xFF, 0xD8},
			PhotoContentType: "image/jpeg",
		},
		Serial: "SN-42",
	}
}

func TestServiceCheckinMedicalDevice(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	stored, err := f.service.CheckinMedicalDevice(ctx, medicalInput())
	require.NoError(t, err)

	assert.Equal(t, "dev-001", stored.ID)
	assert.Equal(t, "SN-42", stored.Serial)
	require.NotNil(t, stored.CheckinAt)

	// The photo went through the storage collaborator and its URL landed
	// on the record.
	require.NotEmpty(t, stored.PhotoURL)
	_, ok := f.photos.Get(stored.PhotoURL)
	assert.True(t, ok)

	// The record is visible through the repository.
	items, err := f.service.MedicalDevices(ctx, registry.Criteria{
		FilterBy: &registry.Filter{Field: "id", Value: stored.ID},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeCheckedIn, f.publisher.events[0].Type)
	assert.Equal(t, string(registry.KindMedicalDevice), f.publisher.events[0].Kind)
}

func TestServiceCheckinMedicalDevice_Validation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*registry.MedicalDeviceInput)
	}{
		{"missing brand", func(in *registry.MedicalDeviceInput) { in.Brand = "" }},
		{"missing model", func(in *registry.MedicalDeviceInput) { in.Model = "" }},
		{"missing owner name", func(in *registry.MedicalDeviceInput) { in.OwnerName = "" }},
		{"missing serial", func(in *registry.MedicalDeviceInput) { in.Serial = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := medicalInput()
			tt.mutate(&in)

			_, err := f.service.CheckinMedicalDevice(ctx, in)
			assert.ErrorIs(t, err, registry.ErrValidation)
		})
	}

	// Nothing reached the repository.
	items, err := f.service.MedicalDevices(ctx, registry.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestServiceCheckinComputer_WithoutPhoto(t *testing.T) {
	f := newServiceFixture()

	stored, err := f.service.CheckinComputer(context.Background(), registry.DeviceInput{
		Brand:     "dell",
		Model:     "xps",
		OwnerName: "Ada",
	})
	require.NoError(t, err)
	assert.Empty(t, stored.PhotoURL)
	require.NotNil(t, stored.CheckinAt)
}

func TestServiceRegisterFrequentComputer(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	input := registry.FrequentComputerInput{
		DeviceInput: registry.DeviceInput{
			Brand:     "apple",
			Model:     "mbp-14",
			OwnerName: "Linus",
		},
		CheckinURL:  "http://x/checkin",
		CheckoutURL: "http://x/checkout",
	}

	stored, err := f.service.RegisterFrequentComputer(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "http://x/checkin", stored.CheckinURL)

	// Registration does not check the device in.
	entered, err := f.service.IsDeviceEntered(ctx, stored.Device.ID)
	require.NoError(t, err)
	assert.False(t, entered)

	// Capability URLs must be absolute http(s).
	input.CheckinURL = "not-a-url"
	_, err = f.service.RegisterFrequentComputer(ctx, input)
	assert.ErrorIs(t, err, registry.ErrValidation)
}

func TestServiceCheckinFrequentComputer_DrivesCapabilityURL(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	stored, err := f.service.RegisterFrequentComputer(ctx, registry.FrequentComputerInput{
		DeviceInput: registry.DeviceInput{Brand: "apple", Model: "mbp-14", OwnerName: "Linus"},
		CheckinURL:  "http://x/checkin",
		CheckoutURL: "http://x/checkout",
	})
	require.NoError(t, err)

	fc, err := f.service.CheckinFrequentComputer(ctx, stored.Device.ID)
	require.NoError(t, err)
	require.NotNil(t, fc.Device.CheckinAt)

	require.Len(t, f.invoker.calls, 1)
	assert.Equal(t, "http://x/checkin", f.invoker.calls[0].URL)
	assert.Equal(t, stored.Device.ID, f.invoker.calls[0].DeviceID)
}

func TestServiceCheckinFrequentComputer_CapabilityFailureIsBestEffort(t *testing.T) {
	f := newServiceFixture()
	f.invoker.err = assert.AnError
	ctx := context.Background()

	stored, err := f.service.RegisterFrequentComputer(ctx, registry.FrequentComputerInput{
		DeviceInput: registry.DeviceInput{Brand: "apple", Model: "mbp-14", OwnerName: "Linus"},
		CheckinURL:  "http://x/checkin",
		CheckoutURL: "http://x/checkout",
	})
	require.NoError(t, err)

	// The check-in itself must succeed even though the capability call
	// fails.
	_, err = f.service.CheckinFrequentComputer(ctx, stored.Device.ID)
	require.NoError(t, err)

	entered, err := f.service.IsDeviceEntered(ctx, stored.Device.ID)
	require.NoError(t, err)
	assert.True(t, entered)
}

func TestServiceCheckoutDevice_FrequentComputer(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	stored, err := f.service.RegisterFrequentComputer(ctx, registry.FrequentComputerInput{
		DeviceInput: registry.DeviceInput{Brand: "apple", Model: "mbp-14", OwnerName: "Linus"},
		CheckinURL:  "http://x/checkin",
		CheckoutURL: "http://x/checkout",
	})
	require.NoError(t, err)

	_, err = f.service.CheckinFrequentComputer(ctx, stored.Device.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.CheckoutDevice(ctx, stored.Device.ID))

	require.Len(t, f.invoker.calls, 2)
	assert.Equal(t, "http://x/checkout", f.invoker.calls[1].URL)

	entered, err := f.service.IsDeviceEntered(ctx, stored.Device.ID)
	require.NoError(t, err)
	assert.False(t, entered)
}

func TestServiceCheckoutDevice_NotFound(t *testing.T) {
	f := newServiceFixture()

	err := f.service.CheckoutDevice(context.Background(), "missing")
	assert.ErrorIs(t, err, registry.ErrDeviceNotFound)
	assert.Empty(t, f.invoker.calls)
}

func TestServiceEnteredDevices(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.service.CheckinComputer(ctx, registry.DeviceInput{Brand: "dell", Model: "xps", OwnerName: "Ada"})
	require.NoError(t, err)
	_, err = f.service.CheckinMedicalDevice(ctx, medicalInput())
	require.NoError(t, err)

	entered, err := f.service.EnteredDevices(ctx, registry.Criteria{})
	require.NoError(t, err)
	assert.Len(t, entered, 2)
}
