package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"slot-service/internal/schedule"
)

type templatePayload struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config" binding:"required"`
	ActiveFrom  *schedule.Date  `json:"active_from"`
	ActiveTo    *schedule.Date  `json:"active_to"`
}

// template decodes the payload strictly: anything DecodeConfig would drop
// is an error here.
func (p templatePayload) template(tenantID, id string) (schedule.Template, error) {
	cfg, err := schedule.DecodeConfig(p.Config)
	if err != nil {
		return schedule.Template{}, validationf("config: %v", err)
	}
	if err := schedule.ValidateConfig(cfg); err != nil {
		return schedule.Template{}, err
	}
	if p.ActiveFrom != nil && p.ActiveTo != nil && p.ActiveFrom.After(*p.ActiveTo) {
		return schedule.Template{}, validationf("active_from must be on or before active_to")
	}
	return schedule.Template{
		ID:          id,
		TenantID:    tenantID,
		Name:        p.Name,
		Description: p.Description,
		Config:      cfg,
		ActiveFrom:  p.ActiveFrom,
		ActiveTo:    p.ActiveTo,
	}, nil
}

// GET /api/templates
func (a *App) ListTemplatesHandler(c *gin.Context) {
	templates, err := a.Templates.ListTemplates(c.Request.Context(), tenantID(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if templates == nil {
		templates = []schedule.Template{}
	}
	c.JSON(http.StatusOK, templates)
}

// GET /api/templates/:id
func (a *App) GetTemplateHandler(c *gin.Context) {
	tpl, ok, err := a.Templates.GetTemplate(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// POST /api/templates
func (a *App) CreateTemplateHandler(c *gin.Context) {
	var payload templatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := payload.template(tenantID(c), "")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.Templates.CreateTemplate(c.Request.Context(), &tpl); err != nil {
		a.respondError(c, fmt.Errorf("create template: %w", err))
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// PUT /api/templates/:id
func (a *App) UpdateTemplateHandler(c *gin.Context) {
	var payload templatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := payload.template(tenantID(c), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	ok, err := a.Templates.UpdateTemplate(c.Request.Context(), &tpl)
	if err != nil {
		a.respondError(c, fmt.Errorf("update template: %w", err))
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DELETE /api/templates/:id
func (a *App) DeleteTemplateHandler(c *gin.Context) {
	ok, err := a.Templates.DeleteTemplate(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
