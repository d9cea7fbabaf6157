package handler

import (
	"context"
	"net/http"

	"bookinventory/internal/audit"
	"bookinventory/internal/auth"
	"bookinventory/internal/middleware"
	"bookinventory/internal/model"
	"bookinventory/internal/service"
	"bookinventory/pkg/pagination"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const publishersPath = "/api/publishers"

type PublisherHandler struct {
	publisherService service.PublisherService
	issuer           *auth.TokenIssuer
	log              *zap.Logger
}

func NewPublisherHandler(publisherService service.PublisherService, issuer *auth.TokenIssuer, log *zap.Logger) *PublisherHandler {
	return &PublisherHandler{publisherService: publisherService, issuer: issuer, log: log}
}

func (h *PublisherHandler) RegisterRoutes(router *gin.RouterGroup) {
	publishers := router.Group(publishersPath)
	publishers.Use(middleware.RequireAuth(h.issuer))
	{
		publishers.POST("", h.CreatePublisher)
		publishers.GET("", h.ListPublishers)
		publishers.GET("/:id", h.GetPublisher)
		publishers.PATCH("/:id", audit.Snapshot(), h.UpdatePublisher)
		publishers.DELETE("/:id", middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager), audit.Snapshot(), h.DeletePublisher)
	}
}

func (h *PublisherHandler) AuditPolicies(p audit.Policies) {
	load := func(ctx context.Context, id string) (any, error) { return h.publisherService.Get(ctx, id) }
	p.Add(http.MethodPost, publishersPath, audit.Policy{Table: "publishers"})
	p.Add(http.MethodPatch, publishersPath+"/:id", audit.Policy{Table: "publishers", Load: load})
	p.Add(http.MethodDelete, publishersPath+"/:id", audit.Policy{Table: "publishers", Load: load})
}

// CreatePublisher handles POST /api/publishers
// @Summary      Create a publisher
// @Tags         publishers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePublisherRequest  true  "Create Publisher Payload"
// @Success      201      {object}  response.Response{data=model.Publisher}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/publishers [post]
func (h *PublisherHandler) CreatePublisher(c *gin.Context) {
	var req service.CreatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	publisher, err := h.publisherService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, publisher.ID.String(), publisher)
	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, publisher))
}

// ListPublishers handles GET /api/publishers
// @Summary      List publishers
// @Description  Searches name and address. Ordered by name.
// @Tags         publishers
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Success      200     {object}  response.Response{data=service.Page[model.Publisher]}
// @Router       /api/publishers [get]
func (h *PublisherHandler) ListPublishers(c *gin.Context) {
	page, err := h.publisherService.List(c.Request.Context(), c.Query("search"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, page))
}

// GetPublisher handles GET /api/publishers/:id
// @Summary      Get a publisher
// @Tags         publishers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Publisher ID"
// @Success      200  {object}  response.Response{data=model.Publisher}
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/publishers/{id} [get]
func (h *PublisherHandler) GetPublisher(c *gin.Context) {
	publisher, err := h.publisherService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, publisher))
}

// UpdatePublisher handles PATCH /api/publishers/:id
// @Summary      Update a publisher
// @Tags         publishers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Publisher ID"
// @Param        payload  body      service.UpdatePublisherRequest  true  "Update Publisher Payload"
// @Success      200      {object}  response.Response{data=model.Publisher}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/publishers/{id} [patch]
func (h *PublisherHandler) UpdatePublisher(c *gin.Context) {
	var req service.UpdatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	publisher, err := h.publisherService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, publisher.ID.String(), publisher)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, publisher))
}

// DeletePublisher handles DELETE /api/publishers/:id
// @Summary      Delete a publisher
// @Description  Soft deletes a publisher. Admin or manager only.
// @Tags         publishers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Publisher ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/publishers/{id} [delete]
func (h *PublisherHandler) DeletePublisher(c *gin.Context) {
	id := c.Param("id")
	if err := h.publisherService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, id, nil)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, gin.H{"id": id}))
}
