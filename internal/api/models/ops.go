package models

import "time"

// HealthStatus represents the health status of the service.
type HealthStatus string

const (
	HealthStatusOK   HealthStatus = "OK"
	HealthStatusFail HealthStatus = "FAIL"
)

// Health represents the health of the service and its dependencies.
type Health struct {
	Status  HealthStatus      `json:"status"`
	Time    time.Time         `json:"time"`
	Details map[string]string `json:"details,omitempty"`
}
