package handlers

import (
	"errors"
	"net/http"
	"time"

	"tutorhive/models"
	"tutorhive/services/schedule"
	"tutorhive/utils"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves teacher availability.
type ScheduleHandler struct {
	Availability schedule.AvailabilityService
}

func NewScheduleHandler(availability schedule.AvailabilityService) *ScheduleHandler {
	return &ScheduleHandler{Availability: availability}
}

type localSlotView struct {
	ID         string             `json:"id"`
	StartUTC   time.Time          `json:"startUtc"`
	EndUTC     time.Time          `json:"endUtc"`
	LocalStart schedule.WallClock `json:"localStart"`
	LocalEnd   schedule.WallClock `json:"localEnd"`
}

// OpenSlotsHandler lists a teacher's open slots in [from, to). With ?tz= the
// response additionally projects each slot into the viewer's zone.
func (h *ScheduleHandler) OpenSlotsHandler(c *gin.Context) {
	teacherID := c.Param("teacherID")

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid 'from' parameter", "expected RFC3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid 'to' parameter", "expected RFC3339 timestamp")
		return
	}

	slots, err := h.Availability.OpenSlots(c.Request.Context(), teacherID, from.UTC(), to.UTC())
	if err != nil {
		if errors.Is(err, schedule.ErrHorizonExceeded) {
			utils.JSONCodedError(c, http.StatusBadRequest, "horizonExceeded", err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list open slots", err.Error())
		return
	}

	zone := c.Query("tz")
	if zone == "" {
		c.JSON(http.StatusOK, gin.H{"slots": slots})
		return
	}

	views := make([]localSlotView, 0, len(slots))
	for _, slot := range slots {
		localStart, err := schedule.ToLocal(slot.StartUTC, zone)
		if err != nil {
			utils.JSONCodedError(c, http.StatusBadRequest, "invalidTimezone", err.Error())
			return
		}
		localEnd, _ := schedule.ToLocal(slot.EndUTC, zone)
		views = append(views, localSlotView{
			ID:         slot.ID,
			StartUTC:   slot.StartUTC,
			EndUTC:     slot.EndUTC,
			LocalStart: localStart,
			LocalEnd:   localEnd,
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": views})
}

type regenerateRequest struct {
	Template []models.WeeklyTemplateEntry `json:"template" binding:"required"`
}

// RegenerateHandler rebuilds the teacher's availability windows over the
// horizon from their weekly template.
func (h *ScheduleHandler) RegenerateHandler(c *gin.Context) {
	teacherID := c.Param("teacherID")

	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid regenerate request", err.Error())
		return
	}

	if err := h.Availability.RegenerateHorizon(c.Request.Context(), teacherID, req.Template, time.Now().UTC()); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to regenerate availability", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "regenerated"})
}
