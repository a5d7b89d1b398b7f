// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/handlers"
	"carpool/internal/http/middleware"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/notify"
	"carpool/internal/modules/trip"
)

type ServerDeps struct {
	Trips    *trip.Service
	Bookings *booking.Service
	Notify   *notify.Service
}

type Server struct {
	trips    *trip.Service
	bookings *booking.Service
	notify   *notify.Service
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		trips:    deps.Trips,
		bookings: deps.Bookings,
		notify:   deps.Notify,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	tripHandler := handlers.NewTripHandler(s.trips, s.bookings)
	r.POST("/api/trips", tripHandler.Post)
	r.GET("/api/trips", tripHandler.List)
	r.GET("/api/trips/:id", tripHandler.Get)
	r.POST("/api/trips/:id/cancel", tripHandler.Cancel)

	bookingHandler := handlers.NewBookingHandler(s.bookings)
	r.POST("/api/bookings", bookingHandler.Create)
	r.POST("/api/bookings/:id/status", bookingHandler.UpdateStatus)
	r.POST("/api/bookings/:id/cancel", bookingHandler.Cancel)
	r.DELETE("/api/bookings/:id", bookingHandler.Delete)
	r.GET("/api/passengers/:id/bookings", bookingHandler.ListByPassenger)

	notifyHandler := handlers.NewNotifyHandler(s.notify)
	r.GET("/api/users/:id/notifications", notifyHandler.List)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
