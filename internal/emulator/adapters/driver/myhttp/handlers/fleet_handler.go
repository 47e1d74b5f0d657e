package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/ports/driver"
	"ride-sim/internal/mylogger"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

type FleetHandler struct {
	fleet driver.IFleetService
	log   mylogger.Logger
}

func NewFleetHandler(fleet driver.IFleetService, log mylogger.Logger) *FleetHandler {
	return &FleetHandler{
		fleet: fleet,
		log:   log,
	}
}

func (fh *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	JsonResponse(w, http.StatusOK, fh.fleet.Vehicles())
}

func (fh *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	view, err := fh.fleet.Vehicle(r.PathValue("vehicle_id"))
	if err != nil {
		JsonError(w, statusOf(err), err)
		return
	}
	JsonResponse(w, http.StatusOK, view)
}

func (fh *FleetHandler) ListGhosts(w http.ResponseWriter, r *http.Request) {
	JsonResponse(w, http.StatusOK, fh.fleet.Ghosts())
}

func (fh *FleetHandler) StartEmulator(w http.ResponseWriter, r *http.Request) {
	log := fh.log.Action("start_emulator")
	vehicleID := r.PathValue("vehicle_id")

	if err := fh.fleet.StartEmulator(vehicleID); err != nil {
		log.Warn("cannot start emulator", "vehicle_id", vehicleID, "error", err.Error())
		JsonError(w, statusOf(err), err)
		return
	}
	fh.respondVehicle(w, http.StatusAccepted, vehicleID)
}

func (fh *FleetHandler) StopEmulator(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicle_id")

	if err := fh.fleet.StopEmulator(vehicleID); err != nil {
		JsonError(w, statusOf(err), err)
		return
	}
	fh.respondVehicle(w, http.StatusOK, vehicleID)
}

func (fh *FleetHandler) SetActiveVehicle(w http.ResponseWriter, r *http.Request) {
	log := fh.log.Action("set_active_vehicle")

	req := dto.SetActiveVehicleRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JsonError(w, http.StatusBadRequest, err)
		return
	}
	if req.VehicleID == "" {
		JsonError(w, http.StatusBadRequest, errors.New("vehicle_id is required"))
		return
	}

	if err := fh.fleet.SetActiveVehicle(req.VehicleID); err != nil {
		log.Warn("cannot switch active vehicle", "vehicle_id", req.VehicleID, "error", err.Error())
		JsonError(w, statusOf(err), err)
		return
	}
	fh.respondVehicle(w, http.StatusOK, req.VehicleID)
}

func (fh *FleetHandler) ApplyConfig(w http.ResponseWriter, r *http.Request) {
	msg := dto.ConfigMessage{}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		JsonError(w, http.StatusBadRequest, err)
		return
	}
	if err := fh.fleet.HandleConfig(msg); err != nil {
		JsonError(w, http.StatusBadRequest, err)
		return
	}
	JsonResponse(w, http.StatusAccepted, nil)
}

func (fh *FleetHandler) Activate(w http.ResponseWriter, r *http.Request) {
	fh.setAvailability(w, r, true)
}

func (fh *FleetHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	fh.setAvailability(w, r, false)
}

func (fh *FleetHandler) setAvailability(w http.ResponseWriter, r *http.Request, active bool) {
	log := fh.log.Action("set_availability")
	vehicleID := r.PathValue("vehicle_id")

	if err := fh.fleet.SetAvailability(r.Context(), vehicleID, active); err != nil {
		log.Warn("cannot change availability", "vehicle_id", vehicleID, "active", active, "error", err.Error())
		JsonError(w, statusOf(err), err)
		return
	}
	fh.respondVehicle(w, http.StatusOK, vehicleID)
}

// OverrideNotification replaces the ride state of a vehicle with the body,
// which has the shape of a chair notification.
func (fh *FleetHandler) OverrideNotification(w http.ResponseWriter, r *http.Request) {
	log := fh.log.Action("override_notification")
	vehicleID := r.PathValue("vehicle_id")

	req := dto.NotificationData{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JsonError(w, http.StatusBadRequest, err)
		return
	}
	if req.RideID == "" && req.RequestID == "" {
		JsonError(w, http.StatusBadRequest, errors.New("ride_id is required"))
		return
	}
	if req.Status == "" {
		JsonError(w, http.StatusBadRequest, errors.New("status is required"))
		return
	}

	if err := fh.fleet.OverrideNotification(vehicleID, req); err != nil {
		log.Warn("cannot override notification", "vehicle_id", vehicleID, "error", err.Error())
		JsonError(w, statusOf(err), err)
		return
	}
	fh.respondVehicle(w, http.StatusOK, vehicleID)
}

func (fh *FleetHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicle_id")

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			JsonError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := fh.fleet.Events(r.Context(), vehicleID, limit)
	if err != nil {
		JsonError(w, statusOf(err), err)
		return
	}
	JsonResponse(w, http.StatusOK, events)
}

func (fh *FleetHandler) respondVehicle(w http.ResponseWriter, code int, vehicleID string) {
	view, err := fh.fleet.Vehicle(vehicleID)
	if err != nil {
		JsonError(w, statusOf(err), err)
		return
	}
	JsonResponse(w, code, view)
}
