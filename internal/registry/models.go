// Package registry tracks devices entering and leaving the facility.
//
// Three device categories are persisted independently (computers, medical
// devices, frequent computers) but share one lifecycle: a check-in stamps an
// entry timestamp, a check-out stamps an exit timestamp. A device is on-site
// while its entry timestamp is set and no later exit timestamp exists.
package registry

import "time"

// Owner identifies the person responsible for a device. Owners have no
// lifecycle of their own; they are embedded in device records.
type Owner struct {
	ID   string
	Name string
}

// Computer is a visitor computer brought into the facility.
// A record is created on check-in and updated in place on check-out.
type Computer struct {
	ID         string
	Brand      string
	Model      string
	Owner      Owner
	PhotoURL   string
	UpdatedAt  time.Time
	CheckinAt  *time.Time
	CheckoutAt *time.Time
}

// Entered reports whether the computer is currently on-site: checked in,
// with no check-out newer than the latest check-in.
func (c *Computer) Entered() bool {
	if c.CheckinAt == nil {
		return false
	}
	return c.CheckoutAt == nil || c.CheckoutAt.Before(*c.CheckinAt)
}

// MedicalDevice is a medical device brought into the facility. It carries
// the same lifecycle as a Computer plus the manufacturer serial number.
type MedicalDevice struct {
	Computer
	Serial string
}

// FrequentComputer is a computer pre-registered for repeated, streamlined
// entry and exit. Registration happens once; subsequent check-ins and
// check-outs update the wrapped Computer in place. The capability URLs
// drive the streamlined flow and are invoked best-effort.
type FrequentComputer struct {
	Device      Computer
	CheckinURL  string
	CheckoutURL string
}

// DeviceKind tags an EnteredDevice with its source category.
type DeviceKind string

const (
	KindComputer         DeviceKind = "computer"
	KindMedicalDevice    DeviceKind = "medical-device"
	KindFrequentComputer DeviceKind = "frequent-computer"
)

// EnteredDevice is a read projection of a device currently on-site, tagged
// by its source category. It is never persisted; exactly one of the three
// pointers is set, matching Kind.
type EnteredDevice struct {
	Kind             DeviceKind
	Computer         *Computer
	MedicalDevice    *MedicalDevice
	FrequentComputer *FrequentComputer
}

// ID returns the identifier of the underlying device.
func (e EnteredDevice) ID() string {
	switch e.Kind {
	case KindComputer:
		return e.Computer.ID
	case KindMedicalDevice:
		return e.MedicalDevice.ID
	case KindFrequentComputer:
		return e.FrequentComputer.Device.ID
	}
	return ""
}
