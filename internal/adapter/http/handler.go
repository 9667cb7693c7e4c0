// Package http exposes evacuation planning, risk and hazard lookups over a
// JSON API.
package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/wildfire-evac-planner/internal/alert"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/planner"
)

const (
	defaultHazardLimit = 100
	maxHazardLimit     = 500
)

// PlanService runs evacuation plan requests.
type PlanService interface {
	Plan(ctx context.Context, req planner.Request) (domain.Plan, error)
}

// RiskService assesses risk and processes alert batches.
type RiskService interface {
	ComputeRiskLevel(ctx context.Context, at domain.Coordinate, activeHazard bool) (domain.RiskAssessment, error)
	ProcessAlerts(raw []domain.AlertRecord) alert.Processed
}

// Handler serves the /api routes.
type Handler struct {
	plans   PlanService
	risk    RiskService
	hazards domain.HazardStore
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(plans PlanService, risk RiskService, hazards domain.HazardStore, logger *slog.Logger) *Handler {
	return &Handler{
		plans:   plans,
		risk:    risk,
		hazards: hazards,
		logger:  logger,
	}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/evacuation-plans", h.createPlan)
	r.POST("/hazards/:id/evacuation-plans", h.createHazardPlan)
	r.GET("/risk", h.getRisk)
	r.POST("/alerts/process", h.processAlerts)
	r.GET("/hazards", h.listHazards)
	r.GET("/hazards/:id", h.getHazard)
}

type planRequest struct {
	SessionID    string                 `json:"session_id"`
	Hazard       *domain.Coordinate     `json:"hazard" binding:"required"`
	Origin       *domain.Coordinate     `json:"origin"`
	Profile      domain.TravelerProfile `json:"profile"`
	ActiveHazard bool                   `json:"active_hazard"`
}

type hazardPlanRequest struct {
	SessionID string                 `json:"session_id"`
	Origin    *domain.Coordinate     `json:"origin"`
	Profile   domain.TravelerProfile `json:"profile"`
}

func (h *Handler) createPlan(c *gin.Context) {
	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.runPlan(c, planner.Request{
		SessionID:    body.SessionID,
		Hazard:       *body.Hazard,
		Origin:       body.Origin,
		Profile:      body.Profile,
		ActiveHazard: body.ActiveHazard,
	})
}

// createHazardPlan plans around an indexed hazard. Selecting a hazard marks
// it active for risk purposes.
func (h *Handler) createHazardPlan(c *gin.Context) {
	var body hazardPlanRequest
	// An empty body plans from the hazard itself with no profile.
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hz, err := h.hazards.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeHazardError(c, err)
		return
	}
	h.runPlan(c, planner.Request{
		SessionID:    body.SessionID,
		Hazard:       hz.Location,
		Origin:       body.Origin,
		Profile:      body.Profile,
		ActiveHazard: true,
	})
}

func (h *Handler) runPlan(c *gin.Context, req planner.Request) {
	plan, err := h.plans.Plan(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, plan)
	case errors.Is(err, domain.ErrStaleRequest):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, plan)
	default:
		c.JSON(http.StatusServiceUnavailable, plan)
	}
}

func (h *Handler) getRisk(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be numbers"})
		return
	}
	active, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	risk, err := h.risk.ComputeRiskLevel(c.Request.Context(), domain.Coordinate{Lat: lat, Lon: lon}, active)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, risk)
	case errors.Is(err, domain.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Warn("risk assessment failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "risk data is temporarily unavailable"})
	}
}

type processAlertsRequest struct {
	Alerts []domain.AlertRecord `json:"alerts"`
}

func (h *Handler) processAlerts(c *gin.Context) {
	var body processAlertsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.risk.ProcessAlerts(body.Alerts))
}

// hazardView adds the derived display fields to a stored hazard.
type hazardView struct {
	domain.HazardEvent
	SizeClass domain.SizeClass `json:"size_class"`
	IsNew     bool             `json:"is_new"`
}

func newHazardView(hz domain.HazardEvent) hazardView {
	return hazardView{HazardEvent: hz, SizeClass: hz.SizeClass(), IsNew: hz.IsNew(domain.Now())}
}

func (h *Handler) listHazards(c *gin.Context) {
	filter := domain.HazardFilter{Limit: defaultHazardLimit}
	if v := c.Query("new_only"); v != "" {
		filter.NewOnly, _ = strconv.ParseBool(v)
	}
	if v := c.Query("min_acres"); v != "" {
		if acres, err := strconv.ParseFloat(v, 64); err == nil && acres > 0 {
			filter.MinAcres = acres
		}
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= maxHazardLimit {
			filter.Limit = limit
		}
	}

	hazards, err := h.hazards.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list hazards failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch hazards"})
		return
	}

	views := make([]hazardView, len(hazards))
	for i, hz := range hazards {
		views[i] = newHazardView(hz)
	}
	c.JSON(http.StatusOK, gin.H{"hazards": views})
}

func (h *Handler) getHazard(c *gin.Context) {
	hz, err := h.hazards.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeHazardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHazardView(hz))
}

func (h *Handler) writeHazardError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrHazardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("hazard lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch hazard"})
}
