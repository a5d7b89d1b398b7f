// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/booking"
	"carpool/internal/modules/inventory"
	"carpool/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrBadRequest), errors.Is(err, booking.ErrBadRequest), errors.Is(err, inventory.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, booking.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrTripUnavailable):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, trip.ErrInvalidState), errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, trip.ErrConflict), errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrInsufficientCapacity), errors.Is(err, inventory.ErrConflict),
		errors.Is(err, inventory.ErrInsufficientCapacity):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
