package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ride-sim/internal/emulator/core/myerrors"
)

// JsonResponse writes data as a JSON-encoded HTTP response with the given status code.
func JsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes an error response as JSON with the specified HTTP status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, myerrors.ErrUnknownVehicle):
		return http.StatusNotFound
	case errors.Is(err, myerrors.ErrEmulatorRunning),
		errors.Is(err, myerrors.ErrVehicleBound),
		errors.Is(err, myerrors.ErrInvalidTransition),
		errors.Is(err, myerrors.ErrNoCredential):
		return http.StatusConflict
	case errors.Is(err, myerrors.ErrUnauthorized),
		errors.Is(err, myerrors.ErrNotFound),
		errors.Is(err, myerrors.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, myerrors.ErrNoJournal):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
