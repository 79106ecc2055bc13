// File: tutorhive/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorhive/config"
	"tutorhive/cron"
	"tutorhive/database"
	availabilityRepo "tutorhive/database/repository/availability"
	ledgerRepoPkg "tutorhive/database/repository/ledger"
	occurrenceRepo "tutorhive/database/repository/occurrence"
	"tutorhive/handlers"
	"tutorhive/middleware"
	"tutorhive/routes"
	"tutorhive/services/booking"
	"tutorhive/services/ledger"
	"tutorhive/services/schedule"
	"tutorhive/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	occRepo := occurrenceRepo.NewMongoOccurrenceRepo()
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	ledgRepo := ledgerRepoPkg.NewMongoLedgerRepo()

	// services.
	availabilityService := &schedule.DefaultAvailabilityService{
		Windows:     availRepo,
		Occurrences: occRepo,
		Logger:      logger,
	}

	billingClient := ledger.StripeBillingClient{}
	entitlementCache := ledger.NewEntitlementCache(utils.GetCacheClient(), config.EntitlementCacheTTL())
	ledgerService := &ledger.DefaultLedgerService{
		Repo:    ledgRepo,
		Billing: billingClient,
		Notifier: &ledger.RedisNotifier{
			Client: utils.GetCacheClient(),
			Logger: logger,
		},
		Cache:  entitlementCache,
		Logger: logger,
	}

	bookingService := &booking.DefaultBookingService{
		Occurrences:  occRepo,
		Availability: availabilityService,
		Entitlement:  ledgerService,
		Logger:       logger,
	}

	// handlers.
	scheduleHandler := handlers.NewScheduleHandler(availabilityService)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	billingHandler := handlers.NewBillingHandler(ledgerService, billingClient, logger)

	routes.RegisterRoutes(router, scheduleHandler, bookingHandler, billingHandler)

	// Start the abandoned-pending cleanup worker.
	cron.InitCleanupWorker(bookingService)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("listening on port %s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("server failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("forced shutdown: %v", err)
	}
	logger.Info("server exited")
}
