// Package models provides request and response models for the lobbylog API.
package models

import (
	"time"

	"github.com/lobbylog/lobbylog/internal/registry"
)

// OwnerPayload identifies the person responsible for a device.
type OwnerPayload struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CheckinDeviceRequest is the body for computer and medical device check-ins
// and frequent computer registrations. Photo is base64-encoded when present.
type CheckinDeviceRequest struct {
	Brand            string       `json:"brand"`
	Model            string       `json:"model"`
	Owner            OwnerPayload `json:"owner"`
	Serial           string       `json:"serial,omitempty"`
	CheckinURL       string       `json:"checkinUrl,omitempty"`
	CheckoutURL      string       `json:"checkoutUrl,omitempty"`
	Photo            []byte       `json:"photo,omitempty"`
	PhotoContentType string       `json:"photoContentType,omitempty"`
}

// DeviceInput converts the request into the service's input type.
func (r *CheckinDeviceRequest) DeviceInput() registry.DeviceInput {
	return registry.DeviceInput{
		Brand:            r.Brand,
		Model:            r.Model,
		OwnerID:          r.Owner.ID,
		OwnerName:        r.Owner.Name,
		Photo:            r.Photo,
		PhotoContentType: r.PhotoContentType,
	}
}

// Device is the wire representation shared by all device categories.
type Device struct {
	ID         string       `json:"id"`
	Brand      string       `json:"brand"`
	Model      string       `json:"model"`
	Owner      OwnerPayload `json:"owner"`
	PhotoURL   string       `json:"photoUrl,omitempty"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	CheckinAt  *time.Time   `json:"checkinAt,omitempty"`
	CheckoutAt *time.Time   `json:"checkoutAt,omitempty"`
	Entered    bool         `json:"entered"`
}

// MedicalDevice is a Device carrying the manufacturer serial number.
type MedicalDevice struct {
	Device
	Serial string `json:"serial"`
}

// FrequentComputer is a Device registered for streamlined entry.
type FrequentComputer struct {
	Device
	CheckinURL  string `json:"checkinUrl"`
	CheckoutURL string `json:"checkoutUrl"`
}

// EnteredDevice is a device currently on-site, tagged by category.
type EnteredDevice struct {
	Kind string `json:"kind"`
	Device
	Serial string `json:"serial,omitempty"`
}

// DeviceList is the envelope for list responses.
type DeviceList[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewDeviceList wraps items in a list envelope.
func NewDeviceList[T any](items []T) DeviceList[T] {
	if items == nil {
		items = []T{}
	}
	return DeviceList[T]{Items: items, Count: len(items)}
}

// FromComputer converts a registry computer to its wire representation.
func FromComputer(c *registry.Computer) Device {
	return Device{
		ID:         c.ID,
		Brand:      c.Brand,
		Model:      c.Model,
		Owner:      OwnerPayload{ID: c.Owner.ID, Name: c.Owner.Name},
		PhotoURL:   c.PhotoURL,
		UpdatedAt:  c.UpdatedAt,
		CheckinAt:  c.CheckinAt,
		CheckoutAt: c.CheckoutAt,
		Entered:    c.Entered(),
	}
}

// FromMedicalDevice converts a registry medical device to its wire representation.
func FromMedicalDevice(m *registry.MedicalDevice) MedicalDevice {
	return MedicalDevice{Device: FromComputer(&m.Computer), Serial: m.Serial}
}

// FromFrequentComputer converts a registry frequent computer to its wire representation.
func FromFrequentComputer(fc *registry.FrequentComputer) FrequentComputer {
	return FrequentComputer{
		Device:      FromComputer(&fc.Device),
		CheckinURL:  fc.CheckinURL,
		CheckoutURL: fc.CheckoutURL,
	}
}

// FromEnteredDevice converts a registry entered-device projection to its
// wire representation.
func FromEnteredDevice(e registry.EnteredDevice) EnteredDevice {
	out := EnteredDevice{Kind: string(e.Kind)}
	switch e.Kind {
	case registry.KindComputer:
		out.Device = FromComputer(e.Computer)
	case registry.KindMedicalDevice:
		out.Device = FromComputer(&e.MedicalDevice.Computer)
		out.Serial = e.MedicalDevice.Serial
	case registry.KindFrequentComputer:
		out.Device = FromComputer(&e.FrequentComputer.Device)
	}
	return out
}
