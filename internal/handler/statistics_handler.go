package handler

import (
	"net/http"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/auth"
	"bookinventory/internal/middleware"
	"bookinventory/internal/model"
	"bookinventory/internal/service"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	issuer            *auth.TokenIssuer
	log               *zap.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, issuer *auth.TokenIssuer, log *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, issuer: issuer, log: log}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	statsGroup.Use(middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager))
	{
		statsGroup.GET("", h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Catalog totals and inventory value, plus stock movements and top ranked books bounded by time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339), defaults to the first day of the current month"
// @Param        end_date   query string false "End Date (RFC3339), defaults to now"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.ErrorResponse "Invalid date format"
// @Failure      401 {object} response.ErrorResponse "Unauthorized"
// @Failure      403 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := time.Now()
	startDate, err := timeQuery(c, "start_date", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	endDate, err := timeQuery(c, "end_date", now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, stats))
}

func timeQuery(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.Validation("invalid %s format, expected RFC3339", key)
	}
	return t, nil
}
