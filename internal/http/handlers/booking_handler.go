// README: Booking handlers for create, status changes, passenger cancel, and staff delete.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/booking"
	"carpool/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

type createBookingReq struct {
	TripID         string `json:"trip_id"`
	PassengerID    string `json:"passenger_id"`
	PassengerPhone string `json:"passenger_phone"`
	Seats          int    `json:"seats"`
	Note           string `json:"note"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.bookings.Create(c.Request.Context(), booking.CreateCommand{
		TripID:         types.ID(req.TripID),
		PassengerID:    types.ID(req.PassengerID),
		PassengerPhone: req.PassengerPhone,
		Seats:          req.Seats,
		Note:           req.Note,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"booking_id": id, "status": booking.StatusPending})
}

type transitionReq struct {
	Status    string `json:"status"`
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id"`
}

// UpdateStatus is the driver/staff manual transition endpoint.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	err := h.bookings.Transition(c.Request.Context(), booking.TransitionCommand{
		BookingID: types.ID(c.Param("id")),
		NewStatus: booking.Status(req.Status),
		ActorType: req.ActorType,
		ActorID:   types.ID(req.ActorID),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

// Cancel is the passenger-facing shortcut for the CANCELLED transition.
func (h *BookingHandler) Cancel(c *gin.Context) {
	err := h.bookings.Transition(c.Request.Context(), booking.TransitionCommand{
		BookingID: types.ID(c.Param("id")),
		NewStatus: booking.StatusCancelled,
		ActorType: "passenger",
		ActorID:   types.ID(c.GetHeader("X-Actor-ID")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusCancelled})
}

// Delete removes a booking outright (staff action).
func (h *BookingHandler) Delete(c *gin.Context) {
	err := h.bookings.Delete(c.Request.Context(), booking.DeleteCommand{
		BookingID: types.ID(c.Param("id")),
		ActorID:   types.ID(c.GetHeader("X-Actor-ID")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *BookingHandler) ListByPassenger(c *gin.Context) {
	bs, err := h.bookings.ListByPassenger(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": bookingViews(bs)})
}

func bookingView(b *booking.Booking) gin.H {
	return gin.H{
		"id":              b.ID,
		"code":            b.Code(),
		"trip_id":         b.TripID,
		"passenger_id":    b.PassengerID,
		"passenger_phone": b.PassengerPhone,
		"seats_booked":    b.SeatsBooked,
		"total_price":     b.TotalPrice.Amount,
		"currency":        b.TotalPrice.Currency,
		"note":            b.Note,
		"status":          b.Status,
		"created_at":      b.CreatedAt,
	}
}

func bookingViews(bs []*booking.Booking) []gin.H {
	out := make([]gin.H, len(bs))
	for i, b := range bs {
		out[i] = bookingView(b)
	}
	return out
}
