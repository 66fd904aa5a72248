package registry

import (
	"context"
	"errors"
	"time"
)

// Repository errors. Every implementation reports these uniformly: a
// check-in or check-out against a missing id is ErrDeviceNotFound even when
// the backing store tolerates zero-row updates, and registering an id twice
// is ErrDuplicateDevice even when the store would happily overwrite.
var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrDuplicateDevice = errors.New("device already registered")
)

// Repository defines the persistence contract for the device registry.
//
// Computers and medical devices are created by their check-in (there is no
// separate registration step) and updated in place on check-out. Frequent
// computers are registered once and then repeatedly checked in and out.
type Repository interface {
	// RegisterFrequentComputer inserts a new frequent computer.
	// Returns ErrDuplicateDevice if the id is already registered.
	RegisterFrequentComputer(ctx context.Context, fc *FrequentComputer) (*FrequentComputer, error)

	// GetFrequentComputers lists frequent computers matching the criteria.
	GetFrequentComputers(ctx context.Context, criteria Criteria) ([]*FrequentComputer, error)

	// CheckinFrequentComputer stamps the entry time on a registered
	// frequent computer. Returns ErrDeviceNotFound if the id is absent.
	CheckinFrequentComputer(ctx context.Context, id string, at time.Time) (*FrequentComputer, error)

	// IsFrequentComputerRegistered reports whether the id is registered.
	IsFrequentComputerRegistered(ctx context.Context, id string) (bool, error)

	// CheckinComputer inserts a new computer record, stamping the current
	// time as the entry time regardless of any value on the input.
	CheckinComputer(ctx context.Context, c *Computer) (*Computer, error)

	// CheckinMedicalDevice inserts a new medical device record, stamping
	// the current time as the entry time regardless of any value on the
	// input.
	CheckinMedicalDevice(ctx context.Context, d *MedicalDevice) (*MedicalDevice, error)

	// GetComputers lists computers matching the criteria.
	GetComputers(ctx context.Context, criteria Criteria) ([]*Computer, error)

	// GetMedicalDevices lists medical devices matching the criteria.
	GetMedicalDevices(ctx context.Context, criteria Criteria) ([]*MedicalDevice, error)

	// GetEnteredDevices lists devices currently on-site across all
	// categories, each tagged with its source category. The per-category
	// queries run concurrently under the same criteria; if any of them
	// fails the whole call fails with no partial results.
	GetEnteredDevices(ctx context.Context, criteria Criteria) ([]EnteredDevice, error)

	// CheckoutDevice stamps the exit time on whichever category holds an
	// entered device with the given id. Computers and medical devices are
	// attempted first and their storage failures are fatal; the frequent
	// computer attempt is best-effort and its failure is logged, never
	// returned. Returns ErrDeviceNotFound when no category held an
	// entered device with the id.
	CheckoutDevice(ctx context.Context, id string, at time.Time) error

	// IsDeviceEntered reports whether any category holds an entered
	// device with the given id, short-circuiting on the first match.
	IsDeviceEntered(ctx context.Context, id string) (bool, error)
}
