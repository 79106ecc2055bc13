package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"tutorhive/config"
	"tutorhive/services/booking"

	"github.com/hibiken/asynq"
)

const TypeBookingCleanup = "booking:cleanup"

// InitCleanupWorker runs the abandoned-pending cleanup in the background:
// a periodic asynq task cancels Pending occurrences that outlived the
// checkout TTL. CancelPending is a no-op on non-pending occurrences, so the
// worker races harmlessly with live confirmations.
func InitCleanupWorker(bookingSvc booking.Service) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingCleanup, handleCleanupTask(bookingSvc))

	go func() {
		log.Println("[CleanupWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[CleanupWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[CleanupWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runCleanupScheduler(redisOpts)
}

func runCleanupScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, nil)

	interval := fmt.Sprintf("@every %dm", config.AppConfig.CleanupIntervalMin)
	if _, err := scheduler.Register(interval, asynq.NewTask(TypeBookingCleanup, nil)); err != nil {
		log.Printf("[CleanupWorker] failed to register cleanup schedule: %v", err)
		return
	}
	if err := scheduler.Run(); err != nil {
		log.Printf("[CleanupWorker] scheduler stopped: %v", err)
	}
}

func handleCleanupTask(bookingSvc booking.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		cancelled, err := bookingSvc.CleanupAbandoned(ctx, config.PendingBookingTTL())
		if err != nil {
			return err
		}
		if cancelled > 0 {
			log.Printf("[CleanupWorker] cancelled %d abandoned pending bookings", cancelled)
		}
		return nil
	}
}
