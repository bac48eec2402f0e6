package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slot-service/internal/schedule"
)

// maxSlotRangeDays bounds GET /slots/range.
const maxSlotRangeDays = 14

// POST /api/slots/apply-template
func (a *App) ApplyTemplateHandler(c *gin.Context) {
	var req ApplyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.ApplyTemplate(c.Request.Context(), tenantID(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/slots/range?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (a *App) ListSlotsRangeHandler(c *gin.Context) {
	startStr, endStr := c.Query("start_date"), c.Query("end_date")
	if startStr == "" || endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date required (YYYY-MM-DD)"})
		return
	}
	start, end, err := parseRange(startStr, endStr, maxSlotRangeDays)
	if err != nil {
		a.respondError(c, err)
		return
	}
	slots, err := a.Slots.FetchSlotsInRange(c.Request.Context(), tenantID(c), start, end)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if slots == nil {
		slots = []schedule.PersistedSlot{}
	}
	c.JSON(http.StatusOK, slots)
}

// PATCH /api/slots/:id
func (a *App) PatchSlotHandler(c *gin.Context) {
	var patch schedule.SlotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}
	if patch.Capacity != nil && *patch.Capacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must not be negative"})
		return
	}

	slot, ok, err := a.Slots.PatchSlot(c.Request.Context(), tenantID(c), c.Param("id"), patch)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
		return
	}
	c.JSON(http.StatusOK, slot)
}
