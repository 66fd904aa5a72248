package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lobbylog/lobbylog/internal/api/models"
	"github.com/lobbylog/lobbylog/internal/api/response"
	"github.com/lobbylog/lobbylog/internal/registry"
)

// FrequentComputerHandler handles frequent computer endpoints.
type FrequentComputerHandler struct {
	svc *registry.Service
}

// NewFrequentComputerHandler creates a new FrequentComputerHandler.
func NewFrequentComputerHandler(svc *registry.Service) *FrequentComputerHandler {
	return &FrequentComputerHandler{svc: svc}
}

// Register handles POST /v1/frequent-computers - register a computer for
// streamlined entry. Registration does not check the device in.
func (h *FrequentComputerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.CheckinDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	stored, err := h.svc.RegisterFrequentComputer(r.Context(), registry.FrequentComputerInput{
		DeviceInput: input.DeviceInput(),
		CheckinURL:  input.CheckinURL,
		CheckoutURL: input.CheckoutURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/frequent-computers/%s", stored.Device.ID)
	response.Created(w, r, location, models.FromFrequentComputer(stored))
}

// List handles GET /v1/frequent-computers - list registered frequent computers.
func (h *FrequentComputerHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := models.CriteriaFromQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	computers, err := h.svc.FrequentComputers(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]models.FrequentComputer, 0, len(computers))
	for _, fc := range computers {
		items = append(items, models.FromFrequentComputer(fc))
	}
	response.JSON(w, r, http.StatusOK, models.NewDeviceList(items))
}

// Checkin handles POST /v1/frequent-computers/{deviceId}/checkin - stamp the
// entry time on a registered frequent computer.
func (h *FrequentComputerHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	fc, err := h.svc.CheckinFrequentComputer(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.FromFrequentComputer(fc))
}

// GetRegisteredStatus handles GET /v1/frequent-computers/{deviceId}/registered -
// report whether a device is registered for streamlined entry.
func (h *FrequentComputerHandler) GetRegisteredStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	registered, err := h.svc.IsFrequentComputerRegistered(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]bool{"registered": registered})
}
