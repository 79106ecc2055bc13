package handlers

import (
	"errors"
	"net/http"
	"time"

	"tutorhive/models"
	"tutorhive/services/booking"
	"tutorhive/services/schedule"
	"tutorhive/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the occurrence lifecycle endpoints.
type BookingHandler struct {
	Bookings booking.Service
	Logger   *zap.Logger
}

func NewBookingHandler(bookings booking.Service, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Logger: logger}
}

type createBookingRequest struct {
	TeacherID string    `json:"teacherId" binding:"required"`
	StartUTC  time.Time `json:"startUtc" binding:"required"`
	EndUTC    time.Time `json:"endUtc" binding:"required"`
}

// CreateBookingHandler creates a Pending occurrence for the authenticated
// student. A lost booking race is an ordinary alternate outcome: 409 with a
// machine-readable code, not an error log.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	studentID := c.GetString("studentID")

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking request", err.Error())
		return
	}

	slot := models.TimeSlot{StartUTC: req.StartUTC.UTC(), EndUTC: req.EndUTC.UTC()}
	occ, err := h.Bookings.CreatePending(c.Request.Context(), req.TeacherID, studentID, slot)
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			utils.JSONCodedError(c, http.StatusConflict, booking.ErrSlotUnavailable.Code,
				"Slot no longer available, please pick another")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to create booking", err.Error())
		return
	}
	c.JSON(http.StatusCreated, occ)
}

func (h *BookingHandler) ConfirmBookingHandler(c *gin.Context) {
	occurrenceID := c.Param("occurrenceID")

	occ, err := h.Bookings.Confirm(c.Request.Context(), occurrenceID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotPending):
			utils.JSONCodedError(c, http.StatusConflict, booking.ErrNotPending.Code, err.Error())
		case errors.Is(err, booking.ErrNotEntitled):
			utils.JSONCodedError(c, http.StatusPaymentRequired, booking.ErrNotEntitled.Code, err.Error())
		default:
			utils.JSONError(c, http.StatusInternalServerError, "Failed to confirm booking", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, occ)
}

// ListBookingsHandler returns the authenticated student's occurrences. The
// range defaults to one horizon back and one ahead; ?from= and ?to= narrow it.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	studentID := c.GetString("studentID")

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -schedule.HorizonDays)
	to := now.AddDate(0, 0, schedule.HorizonDays)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid 'from' parameter", "expected RFC3339 timestamp")
			return
		}
		from = parsed.UTC()
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid 'to' parameter", "expected RFC3339 timestamp")
			return
		}
		to = parsed.UTC()
	}

	occs, err := h.Bookings.ListForStudent(c.Request.Context(), studentID, from, to)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": occs})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	occurrenceID := c.Param("occurrenceID")

	var req cancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.Bookings.Cancel(c.Request.Context(), occurrenceID, req.Reason); err != nil {
		if errors.Is(err, booking.ErrInvalidTransition) {
			utils.JSONCodedError(c, http.StatusConflict, booking.ErrInvalidTransition.Code, err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to cancel booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type recurringBookingRequest struct {
	TeacherID    string                   `json:"teacherId" binding:"required"`
	Pattern      models.RecurrencePattern `json:"pattern" binding:"required"`
	StartingFrom time.Time                `json:"startingFrom" binding:"required"`
}

// RecurringBookingHandler expands a weekly pattern into pending occurrences.
// Unschedulable dates come back as explicit gaps; the caller decides whether
// partial success is acceptable.
func (h *BookingHandler) RecurringBookingHandler(c *gin.Context) {
	studentID := c.GetString("studentID")

	var req recurringBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid recurring booking request", err.Error())
		return
	}

	result, err := h.Bookings.BookRecurring(c.Request.Context(), req.TeacherID, studentID, req.Pattern, req.StartingFrom.UTC())
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to book recurrence", err.Error())
		return
	}
	c.JSON(http.StatusCreated, result)
}
