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

type InventoryHandler struct {
	inventoryService service.InventoryService
	issuer           *auth.TokenIssuer
	log              *zap.Logger
}

func NewInventoryHandler(inventoryService service.InventoryService, issuer *auth.TokenIssuer, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, issuer: issuer, log: log}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	inventory.Use(middleware.RequireAuth(h.issuer))
	{
		inventory.GET("/low-stock", h.LowStock)
		inventory.POST("/movements", middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager), h.CreateMovement)
	}
}

// CreateMovement handles POST /api/inventory/movements
// @Summary      Move stock
// @Description  Adds (stock_in) or removes (stock_out) units for one or more books. Either every item is applied or none.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.StockMovementRequest  true  "Stock movement"
// @Success      201      {object}  response.Response{data=service.StockMovementResponse}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      403      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse  "Insufficient stock"
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) CreateMovement(c *gin.Context) {
	var req service.StockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.inventoryService.Move(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, res))
}

// LowStock handles GET /api/inventory/low-stock
// @Summary      List low stock books
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        threshold  query     int  false  "Stock at or below this value (default 5)"
// @Param        page       query     int  false  "Page number (default 1)"
// @Param        limit      query     int  false  "Items per page (default 10, max 100)"
// @Success      200        {object}  response.Response{data=service.Page[service.BookListItem]}
// @Failure      400        {object}  response.ErrorResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold := service.DefaultLowStockThreshold
	if _, ok := c.GetQuery("threshold"); ok {
		n, err := intQuery(c, "threshold")
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		threshold = n
	}

	page, err := h.inventoryService.LowStock(c.Request.Context(), threshold, pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, page))
}
