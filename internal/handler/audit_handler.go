package handler

import (
	"net/http"

	"bookinventory/internal/auth"
	"bookinventory/internal/middleware"
	"bookinventory/internal/model"
	"bookinventory/internal/service"
	"bookinventory/pkg/pagination"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	issuer       *auth.TokenIssuer
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, issuer *auth.TokenIssuer, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, issuer: issuer, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
		group.GET("/:table/:record_id", h.GetHistory)
	}
}

// GetAuditLogs retrieves paginated audit rows, newest first
// @Summary      Get audit logs
// @Description  Lists recorded changes, optionally narrowed to a table, record, user or operation
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        table_name  query     string  false  "books, authors, publishers, genres or users"
// @Param        record_id   query     string  false  "Changed record id"
// @Param        user_id     query     string  false  "Acting user id"
// @Param        operation   query     string  false  "CREATE, UPDATE, DELETE, SOFT_DELETE or RESTORE"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 10)"
// @Success      200         {object}  response.Response{data=service.Page[model.AuditLog]}
// @Failure      400         {object}  response.ErrorResponse
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	q := service.AuditQuery{
		Table:     c.Query("table_name"),
		RecordID:  c.Query("record_id"),
		UserID:    c.Query("user_id"),
		Operation: c.Query("operation"),
	}

	logs, err := h.auditService.GetAuditLogs(c.Request.Context(), q, pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, logs))
}

// GetHistory lists the changes of one record
// @Summary      Get record history
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        table      path      string  true   "Table name"
// @Param        record_id  path      string  true   "Record id"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 10)"
// @Success      200        {object}  response.Response{data=service.Page[model.AuditLog]}
// @Failure      400        {object}  response.ErrorResponse
// @Router       /api/audit-logs/{table}/{record_id} [get]
func (h *AuditHandler) GetHistory(c *gin.Context) {
	logs, err := h.auditService.GetHistory(c.Request.Context(), c.Param("table"), c.Param("record_id"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, logs))
}
