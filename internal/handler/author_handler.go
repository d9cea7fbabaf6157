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

const authorsPath = "/api/authors"

type AuthorHandler struct {
	authorService service.AuthorService
	issuer        *auth.TokenIssuer
	log           *zap.Logger
}

// NewAuthorHandler sets up the routing dependencies for Author endpoints
func NewAuthorHandler(authorService service.AuthorService, issuer *auth.TokenIssuer, log *zap.Logger) *AuthorHandler {
	return &AuthorHandler{authorService: authorService, issuer: issuer, log: log}
}

func (h *AuthorHandler) RegisterRoutes(router *gin.RouterGroup) {
	authors := router.Group(authorsPath)
	authors.Use(middleware.RequireAuth(h.issuer))
	{
		authors.POST("", h.CreateAuthor)
		authors.GET("", h.ListAuthors)
		authors.GET("/:id", h.GetAuthor)
		authors.PATCH("/:id", audit.Snapshot(), h.UpdateAuthor)
		authors.DELETE("/:id", middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager), audit.Snapshot(), h.DeleteAuthor)
	}
}

func (h *AuthorHandler) AuditPolicies(p audit.Policies) {
	load := func(ctx context.Context, id string) (any, error) { return h.authorService.Get(ctx, id) }
	p.Add(http.MethodPost, authorsPath, audit.Policy{Table: "authors"})
	p.Add(http.MethodPatch, authorsPath+"/:id", audit.Policy{Table: "authors", Load: load})
	p.Add(http.MethodDelete, authorsPath+"/:id", audit.Policy{Table: "authors", Load: load})
}

// CreateAuthor handles POST /api/authors
// @Summary      Create an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAuthorRequest  true  "Create Author Payload"
// @Success      201      {object}  response.Response{data=model.Author}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/authors [post]
func (h *AuthorHandler) CreateAuthor(c *gin.Context) {
	var req service.CreateAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	author, err := h.authorService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, author.ID.String(), author)
	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, author))
}

// ListAuthors handles GET /api/authors
// @Summary      List authors
// @Description  Searches first name, last name and nationality. Ordered by last name, then first name.
// @Tags         authors
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Success      200     {object}  response.Response{data=service.Page[model.Author]}
// @Router       /api/authors [get]
func (h *AuthorHandler) ListAuthors(c *gin.Context) {
	page, err := h.authorService.List(c.Request.Context(), c.Query("search"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, page))
}

// GetAuthor handles GET /api/authors/:id
// @Summary      Get an author
// @Tags         authors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Author ID"
// @Success      200  {object}  response.Response{data=model.Author}
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/authors/{id} [get]
func (h *AuthorHandler) GetAuthor(c *gin.Context) {
	author, err := h.authorService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, author))
}

// UpdateAuthor handles PATCH /api/authors/:id
// @Summary      Update an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Author ID"
// @Param        payload  body      service.UpdateAuthorRequest  true  "Update Author Payload"
// @Success      200      {object}  response.Response{data=model.Author}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/authors/{id} [patch]
func (h *AuthorHandler) UpdateAuthor(c *gin.Context) {
	var req service.UpdateAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	author, err := h.authorService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, author.ID.String(), author)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, author))
}

// DeleteAuthor handles DELETE /api/authors/:id
// @Summary      Delete an author
// @Description  Soft deletes an author. Admin or manager only.
// @Tags         authors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Author ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/authors/{id} [delete]
func (h *AuthorHandler) DeleteAuthor(c *gin.Context) {
	id := c.Param("id")
	if err := h.authorService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, id, nil)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, gin.H{"id": id}))
}
