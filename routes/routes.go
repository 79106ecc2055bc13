package routes

import (
	"tutorhive/handlers"
	"tutorhive/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all endpoints of the booking engine.
func RegisterRoutes(r *gin.Engine, scheduleHandler *handlers.ScheduleHandler, bookingHandler *handlers.BookingHandler, billingHandler *handlers.BillingHandler) {
	schedule := r.Group("/api/schedule")
	{
		schedule.GET("/:teacherID/slots", scheduleHandler.OpenSlotsHandler)
		schedule.POST("/:teacherID/regenerate", middleware.StudentAuthMiddleware(), scheduleHandler.RegenerateHandler)
	}

	booking := r.Group("/api/bookings", middleware.StudentAuthMiddleware())
	{
		booking.GET("", bookingHandler.ListBookingsHandler)
		booking.POST("", bookingHandler.CreateBookingHandler)
		booking.POST("/recurring", bookingHandler.RecurringBookingHandler)
		booking.POST("/:occurrenceID/confirm", bookingHandler.ConfirmBookingHandler)
		booking.POST("/:occurrenceID/cancel", bookingHandler.CancelBookingHandler)
	}

	billing := r.Group("/api/billing")
	{
		// The webhook authenticates by signature, not by bearer token.
		billing.POST("/events", billingHandler.WebhookHandler)
		billing.POST("/sync", middleware.StudentAuthMiddleware(), billingHandler.SyncHandler)
		billing.GET("/ledger", middleware.StudentAuthMiddleware(), billingHandler.GetLedgerHandler)
	}
}
