//
//
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ground-control/gcs/internal/command"
	"github.com/ground-control/gcs/internal/link"
	"github.com/ground-control/gcs/internal/mission"
)

// ToAPIError maps a domain error to an HTTP status and envelope body.
func ToAPIError(err error) (int, []byte) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, command.ErrVehicleUnknown):
		return http.StatusNotFound, marshalErrorResponse("NOT_FOUND", "Vehicle not found", nil)
	case errors.Is(err, command.ErrUnknownMode):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Unknown flight mode", nil)
	case errors.Is(err, command.ErrInvalidScope):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Scope must be a vehicle id or ALL", nil)
	case errors.Is(err, command.ErrUnknownAction):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Unknown emergency action", nil)
	case errors.Is(err, command.ErrNoMission):
		return http.StatusConflict, marshalErrorResponse("NO_MISSION", "No mission loaded for this vehicle", nil)
	case errors.Is(err, mission.ErrUploadInProgress):
		return http.StatusServiceUnavailable, marshalErrorResponse("BUSY", "Mission upload already in progress, retry with backoff", nil)
	case errors.Is(err, mission.ErrNoWaypoints):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Mission contains no waypoints", nil)
	case errors.Is(err, mission.ErrPrimaryRequired):
		return http.StatusServiceUnavailable, marshalErrorResponse("UNAVAILABLE", "Mission transfer requires the primary link", nil)
	case errors.Is(err, mission.ErrResumePointUnknown):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Resume waypoint is not part of the loaded mission", nil)
	case errors.Is(err, mission.ErrMissionComplete):
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", "Mission has no waypoints left to resume", nil)
	case errors.Is(err, link.ErrNoChannel), errors.Is(err, link.ErrPrimaryOnly):
		return http.StatusServiceUnavailable, marshalErrorResponse("UNAVAILABLE", "No usable channel to the vehicle", nil)
	default:
		return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", "Internal server error", map[string]interface{}{
			"original": err.Error(),
		})
	}
}

// writeAPIError writes the mapped envelope for a domain error.
func writeAPIError(w http.ResponseWriter, err error) {
	status, body := ToAPIError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func marshalErrorResponse(code, message string, details interface{}) []byte {
	response := ErrorResponse(code, message, details)
	jsonBytes, err := json.Marshal(response)
	if err != nil {
		fallback := map[string]interface{}{
			"result":        "error",
			"code":          "INTERNAL",
			"message":       "Failed to marshal error response",
			"correlationId": generateCorrelationID(),
		}
		jsonBytes, _ := json.Marshal(fallback)
		return jsonBytes
	}
	return jsonBytes
}
