// README: Entry point; loads config, wires services, starts HTTP server and background workers.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carpool/internal/bus"
	"carpool/internal/config"
	httptransport "carpool/internal/http"
	"carpool/internal/infra"
	"carpool/internal/maps"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/inventory"
	"carpool/internal/modules/notify"
	"carpool/internal/modules/reconcile"
	"carpool/internal/modules/trip"
	"carpool/internal/queue"
	"carpool/internal/types"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	clock := types.RealClock()
	events := bus.NewRedis(redisClient)

	var eta trip.ArrivalEstimator
	if cfg.Maps.APIKey != "" {
		svc, err := maps.NewETAService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		eta = svc
	}

	urgentWindow := time.Duration(cfg.Reconcile.UrgentWindowMins) * time.Minute

	tripStore := trip.NewStore(dbPool)
	tripSvc := trip.NewService(tripStore, events, clock, eta, urgentWindow)

	ledger := inventory.NewLedger(inventory.NewStore(dbPool))

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, tripSvc, ledger, events, clock)

	inbox := notify.NewInbox(redisClient)
	sink := queue.NewPublisher(cfg.AMQP.URL)
	notifySvc := notify.NewService(inbox, sink, clock)

	worker := reconcile.NewWorker(tripSvc, bookingSvc, events, clock, cfg.Reconcile)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Trips:    tripSvc,
		Bookings: bookingSvc,
		Notify:   notifySvc,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go worker.Run(ctx)
	go func() {
		if err := notifySvc.Run(ctx, events); err != nil {
			log.Printf("notify consumer: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
