// Package photo stores device photos taken at the facility entrance.
package photo

import (
	"context"
	"errors"
)

// ErrEmptyPhoto is returned when a save is attempted with no photo bytes.
var ErrEmptyPhoto = errors.New("photo is empty")

// Storage persists a device photo and returns a URL the registry can embed
// in the device record. The registry treats it as an opaque capability.
type Storage interface {
	Save(ctx context.Context, deviceID string, data []byte, contentType string) (string, error)
}
