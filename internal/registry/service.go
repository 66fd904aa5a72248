package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lobbylog/lobbylog/internal/capability"
	"github.com/lobbylog/lobbylog/internal/events"
	"github.com/lobbylog/lobbylog/internal/photo"
)

// ErrValidation is returned when an inbound request is malformed. It is
// surfaced before any storage call.
var ErrValidation = errors.New("validation failed")

// ServiceConfig holds the service's collaborators.
type ServiceConfig struct {
	Repository   Repository
	Photos       photo.Storage
	Capabilities capability.Invoker
	Events       events.Publisher
	Logger       zerolog.Logger

	// NewID generates device identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// Service orchestrates device check-in and check-out: it validates inbound
// requests, generates identifiers, delegates photo persistence, and calls
// the repository. Capability URLs and audit events are driven best-effort.
type Service struct {
	repo         Repository
	photos       photo.Storage
	capabilities capability.Invoker
	events       events.Publisher
	log          zerolog.Logger
	newID        func() string
	now          func() time.Time
}

// NewService creates a new registry service.
func NewService(cfg ServiceConfig) *Service {
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	ev := cfg.Events
	if ev == nil {
		ev = events.NopPublisher{}
	}

	return &Service{
		repo:         cfg.Repository,
		photos:       cfg.Photos,
		capabilities: cfg.Capabilities,
		events:       ev,
		log:          cfg.Logger,
		newID:        newID,
		now:          time.Now,
	}
}

// DeviceInput carries the attributes shared by all check-in requests.
type DeviceInput struct {
	Brand            string
	Model            string
	OwnerID          string
	OwnerName        string
	Photo            []byte
	PhotoContentType string
}

func (in *DeviceInput) validate() error {
	if in.Brand == "" {
		return fmt.Errorf("%w: brand is required", ErrValidation)
	}
	if in.Model == "" {
		return fmt.Errorf("%w: model is required", ErrValidation)
	}
	if in.OwnerName == "" {
		return fmt.Errorf("%w: owner name is required", ErrValidation)
	}
	return nil
}

// MedicalDeviceInput is a medical device check-in request.
type MedicalDeviceInput struct {
	DeviceInput
	Serial string
}

// FrequentComputerInput is a frequent computer registration request.
type FrequentComputerInput struct {
	DeviceInput
	CheckinURL  string
	CheckoutURL string
}

// CheckinComputer validates the request, assigns an identifier, stores the
// photo, and checks the computer in.
func (s *Service) CheckinComputer(ctx context.Context, input DeviceInput) (*Computer, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	c, err := s.buildComputer(ctx, input)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.CheckinComputer(ctx, c)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeCheckedIn, KindComputer, stored.ID, *stored.CheckinAt)
	return stored, nil
}

// CheckinMedicalDevice validates the request, assigns an identifier, stores
// the photo, and checks the medical device in.
func (s *Service) CheckinMedicalDevice(ctx context.Context, input MedicalDeviceInput) (*MedicalDevice, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if input.Serial == "" {
		return nil, fmt.Errorf("%w: serial is required", ErrValidation)
	}

	c, err := s.buildComputer(ctx, input.DeviceInput)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.CheckinMedicalDevice(ctx, &MedicalDevice{Computer: *c, Serial: input.Serial})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeCheckedIn, KindMedicalDevice, stored.ID, *stored.CheckinAt)
	return stored, nil
}

// RegisterFrequentComputer validates the request, assigns an identifier,
// stores the photo, and registers the computer for streamlined entry.
// Registration does not check the device in.
func (s *Service) RegisterFrequentComputer(ctx context.Context, input FrequentComputerInput) (*FrequentComputer, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := validateURL("checkin URL", input.CheckinURL); err != nil {
		return nil, err
	}
	if err := validateURL("checkout URL", input.CheckoutURL); err != nil {
		return nil, err
	}

	c, err := s.buildComputer(ctx, input.DeviceInput)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.RegisterFrequentComputer(ctx, &FrequentComputer{
		Device:      *c,
		CheckinURL:  input.CheckinURL,
		CheckoutURL: input.CheckoutURL,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeRegistered, KindFrequentComputer, stored.Device.ID, s.now())
	return stored, nil
}

// CheckinFrequentComputer stamps the entry time on a registered frequent
// computer and drives its check-in capability URL best-effort.
func (s *Service) CheckinFrequentComputer(ctx context.Context, id string) (*FrequentComputer, error) {
	at := s.now()

	fc, err := s.repo.CheckinFrequentComputer(ctx, id, at)
	if err != nil {
		return nil, err
	}

	s.invoke(ctx, fc.CheckinURL, id, at)
	s.publish(ctx, events.TypeCheckedIn, KindFrequentComputer, id, at)
	return fc, nil
}

// CheckoutDevice stamps the exit time on whichever category holds the
// device, and drives the checkout capability URL when the device is a
// registered frequent computer.
func (s *Service) CheckoutDevice(ctx context.Context, id string) error {
	at := s.now()

	if err := s.repo.CheckoutDevice(ctx, id, at); err != nil {
		return err
	}

	// The capability URL lives on the frequent computer record; drive it
	// only when the id is registered there.
	fcs, err := s.repo.GetFrequentComputers(ctx, Criteria{FilterBy: &Filter{Field: "id", Value: id}})
	if err != nil {
		s.log.Warn().Err(err).Str("device_id", id).Msg("frequent computer lookup after checkout failed")
	} else if len(fcs) == 1 {
		s.invoke(ctx, fcs[0].CheckoutURL, id, at)
	}

	s.publish(ctx, events.TypeCheckedOut, "", id, at)
	return nil
}

// Computers lists computers matching the criteria.
func (s *Service) Computers(ctx context.Context, criteria Criteria) ([]*Computer, error) {
	return s.repo.GetComputers(ctx, criteria)
}

// MedicalDevices lists medical devices matching the criteria.
func (s *Service) MedicalDevices(ctx context.Context, criteria Criteria) ([]*MedicalDevice, error) {
	return s.repo.GetMedicalDevices(ctx, criteria)
}

// FrequentComputers lists frequent computers matching the criteria.
func (s *Service) FrequentComputers(ctx context.Context, criteria Criteria) ([]*FrequentComputer, error) {
	return s.repo.GetFrequentComputers(ctx, criteria)
}

// EnteredDevices lists devices currently on-site across all categories.
func (s *Service) EnteredDevices(ctx context.Context, criteria Criteria) ([]EnteredDevice, error) {
	return s.repo.GetEnteredDevices(ctx, criteria)
}

// IsDeviceEntered reports whether any category holds an entered device with
// the given id.
func (s *Service) IsDeviceEntered(ctx context.Context, id string) (bool, error) {
	return s.repo.IsDeviceEntered(ctx, id)
}

// IsFrequentComputerRegistered reports whether the id is registered for
// streamlined entry.
func (s *Service) IsFrequentComputerRegistered(ctx context.Context, id string) (bool, error) {
	return s.repo.IsFrequentComputerRegistered(ctx, id)
}

// buildComputer assigns a fresh identifier and stores the photo when one
// was supplied.
func (s *Service) buildComputer(ctx context.Context, input DeviceInput) (*Computer, error) {
	id := s.newID()

	var photoURL string
	if len(input.Photo) > 0 {
		var err error
		photoURL, err = s.photos.Save(ctx, id, input.Photo, input.PhotoContentType)
		if err != nil {
			return nil, fmt.Errorf("save photo: %w", err)
		}
	}

	return &Computer{
		ID:       id,
		Brand:    input.Brand,
		Model:    input.Model,
		Owner:    Owner{ID: input.OwnerID, Name: input.OwnerName},
		PhotoURL: photoURL,
	}, nil
}

// invoke drives a capability URL best-effort; a failure is logged, never
// surfaced to the caller.
func (s *Service) invoke(ctx context.Context, capURL, deviceID string, at time.Time) {
	if s.capabilities == nil || capURL == "" {
		return
	}
	if err := s.capabilities.Invoke(ctx, capURL, deviceID, at); err != nil {
		s.log.Warn().
			Err(err).
			Str("device_id", deviceID).
			Str("capability_url", capURL).
			Msg("capability invocation failed")
	}
}

// publish emits an audit event best-effort.
func (s *Service) publish(ctx context.Context, eventType string, kind DeviceKind, deviceID string, at time.Time) {
	err := s.events.Publish(ctx, events.Event{
		Type:     eventType,
		Kind:     string(kind),
		DeviceID: deviceID,
		At:       at,
	})
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("device_id", deviceID).
			Msg("audit event publish failed")
	}
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, name)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrValidation, name)
	}
	return nil
}
