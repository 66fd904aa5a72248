// Package handler provides HTTP handlers for the lobbylog API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lobbylog/lobbylog/internal/api/models"
	"github.com/lobbylog/lobbylog/internal/api/response"
	"github.com/lobbylog/lobbylog/internal/registry"
)

// DeviceHandler handles computer and medical device endpoints.
type DeviceHandler struct {
	svc *registry.Service
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(svc *registry.Service) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

// CheckinComputer handles POST /v1/devices/computers - check a computer in.
func (h *DeviceHandler) CheckinComputer(w http.ResponseWriter, r *http.Request) {
	var input models.CheckinDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	stored, err := h.svc.CheckinComputer(r.Context(), input.DeviceInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/devices/computers/%s", stored.ID)
	response.Created(w, r, location, models.FromComputer(stored))
}

// CheckinMedicalDevice handles POST /v1/devices/medical - check a medical device in.
func (h *DeviceHandler) CheckinMedicalDevice(w http.ResponseWriter, r *http.Request) {
	var input models.CheckinDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	stored, err := h.svc.CheckinMedicalDevice(r.Context(), registry.MedicalDeviceInput{
		DeviceInput: input.DeviceInput(),
		Serial:      input.Serial,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/devices/medical/%s", stored.ID)
	response.Created(w, r, location, models.FromMedicalDevice(stored))
}

// ListComputers handles GET /v1/devices/computers - list computers.
func (h *DeviceHandler) ListComputers(w http.ResponseWriter, r *http.Request) {
	criteria, err := models.CriteriaFromQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	computers, err := h.svc.Computers(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]models.Device, 0, len(computers))
	for _, c := range computers {
		items = append(items, models.FromComputer(c))
	}
	response.JSON(w, r, http.StatusOK, models.NewDeviceList(items))
}

// ListMedicalDevices handles GET /v1/devices/medical - list medical devices.
func (h *DeviceHandler) ListMedicalDevices(w http.ResponseWriter, r *http.Request) {
	criteria, err := models.CriteriaFromQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	devices, err := h.svc.MedicalDevices(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]models.MedicalDevice, 0, len(devices))
	for _, m := range devices {
		items = append(items, models.FromMedicalDevice(m))
	}
	response.JSON(w, r, http.StatusOK, models.NewDeviceList(items))
}

// ListEntered handles GET /v1/devices/entered - list devices currently on-site.
func (h *DeviceHandler) ListEntered(w http.ResponseWriter, r *http.Request) {
	criteria, err := models.CriteriaFromQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	entered, err := h.svc.EnteredDevices(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]models.EnteredDevice, 0, len(entered))
	for _, e := range entered {
		items = append(items, models.FromEnteredDevice(e))
	}
	response.JSON(w, r, http.StatusOK, models.NewDeviceList(items))
}

// CheckoutDevice handles POST /v1/devices/{deviceId}/checkout - check a device out.
func (h *DeviceHandler) CheckoutDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	if err := h.svc.CheckoutDevice(r.Context(), deviceID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// GetEnteredStatus handles GET /v1/devices/{deviceId}/entered - report whether
// a device is currently on-site.
func (h *DeviceHandler) GetEnteredStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	entered, err := h.svc.IsDeviceEntered(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]bool{"entered": entered})
}

// writeServiceError maps registry errors to Problem responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrValidation), errors.Is(err, registry.ErrInvalidField):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, registry.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
	case errors.Is(err, registry.ErrDuplicateDevice):
		response.Conflict(w, r, "a device with this id already exists")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
