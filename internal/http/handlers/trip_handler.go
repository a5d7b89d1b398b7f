// README: Trip handlers for posting, listing, detail, and manual cancel.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/booking"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

type TripHandler struct {
	trips    *trip.Service
	bookings *booking.Service
}

func NewTripHandler(trips *trip.Service, bookings *booking.Service) *TripHandler {
	return &TripHandler{trips: trips, bookings: bookings}
}

type postTripReq struct {
	DriverID      string     `json:"driver_id"`
	DriverPhone   string     `json:"driver_phone"`
	Kind          string     `json:"kind"`
	OriginName    string     `json:"origin_name"`
	OriginDesc    string     `json:"origin_desc"`
	DestName      string     `json:"dest_name"`
	DestDesc      string     `json:"dest_desc"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	Price         int64      `json:"price"`
	Currency      string     `json:"currency"`
	Seats         int        `json:"seats"`
	VehicleInfo   string     `json:"vehicle_info"`
}

func (r postTripReq) command() trip.PostCommand {
	currency := r.Currency
	if currency == "" {
		currency = "VND"
	}
	return trip.PostCommand{
		DriverID:      types.ID(r.DriverID),
		DriverPhone:   r.DriverPhone,
		Kind:          trip.Kind(r.Kind),
		OriginName:    r.OriginName,
		OriginDesc:    r.OriginDesc,
		DestName:      r.DestName,
		DestDesc:      r.DestDesc,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		Price:         types.Money{Amount: r.Price, Currency: currency},
		Seats:         r.Seats,
		VehicleInfo:   r.VehicleInfo,
	}
}

// Post accepts a batch of trips, the way the client posts them.
func (h *TripHandler) Post(c *gin.Context) {
	var reqs []postTripReq
	if err := c.ShouldBindJSON(&reqs); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(reqs) == 0 {
		writeError(c, http.StatusBadRequest, "empty batch")
		return
	}
	cmds := make([]trip.PostCommand, len(reqs))
	for i, r := range reqs {
		cmds[i] = r.command()
	}
	ids, err := h.trips.PostBatch(c.Request.Context(), cmds)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"trip_ids": ids})
}

func (h *TripHandler) List(c *gin.Context) {
	var (
		trips []*trip.Trip
		err   error
	)
	if driverID := c.Query("driver_id"); driverID != "" {
		trips, err = h.trips.ListByDriver(c.Request.Context(), types.ID(driverID))
	} else {
		trips, err = h.trips.List(c.Request.Context())
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": tripViews(trips)})
}

func (h *TripHandler) Get(c *gin.Context) {
	id := c.Param("id")
	t, err := h.trips.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	bs, err := h.bookings.ListByTrip(c.Request.Context(), t.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"trip":     tripView(t),
		"bookings": bookingViews(bs),
	})
}

func (h *TripHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	err := h.trips.Cancel(c.Request.Context(), trip.CancelCommand{
		TripID:    types.ID(id),
		ActorType: c.GetHeader("X-Actor-Type"),
		ActorID:   types.ID(c.GetHeader("X-Actor-ID")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": trip.StatusCancelled})
}

func tripView(t *trip.Trip) gin.H {
	return gin.H{
		"id":              t.ID,
		"code":            t.Code(),
		"driver_id":       t.DriverID,
		"driver_phone":    t.DriverPhone,
		"kind":            t.Kind,
		"origin_name":     t.OriginName,
		"origin_desc":     t.OriginDesc,
		"dest_name":       t.DestName,
		"dest_desc":       t.DestDesc,
		"departure_time":  t.DepartureTime,
		"arrival_time":    t.ArrivalTime,
		"price":           t.Price.Amount,
		"currency":        t.Price.Currency,
		"seats":           t.Seats,
		"available_seats": t.AvailableSeats,
		"vehicle_info":    t.VehicleInfo,
		"status":          t.Status,
		"created_at":      t.CreatedAt,
	}
}

func tripViews(trips []*trip.Trip) []gin.H {
	out := make([]gin.H, len(trips))
	for i, t := range trips {
		out[i] = tripView(t)
	}
	return out
}
