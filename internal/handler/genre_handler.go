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

const genresPath = "/api/genres"

type GenreHandler struct {
	genreService service.GenreService
	issuer       *auth.TokenIssuer
	log          *zap.Logger
}

// NewGenreHandler sets up the routing dependencies for Genre endpoints
func NewGenreHandler(genreService service.GenreService, issuer *auth.TokenIssuer, log *zap.Logger) *GenreHandler {
	return &GenreHandler{genreService: genreService, issuer: issuer, log: log}
}

func (h *GenreHandler) RegisterRoutes(router *gin.RouterGroup) {
	genres := router.Group(genresPath)
	genres.Use(middleware.RequireAuth(h.issuer))
	{
		genres.POST("", h.CreateGenre)
		genres.GET("", h.ListGenres)
		genres.GET("/:id", h.GetGenre)
		genres.PATCH("/:id", audit.Snapshot(), h.UpdateGenre)
		genres.DELETE("/:id", middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager), audit.Snapshot(), h.DeleteGenre)
	}
}

func (h *GenreHandler) AuditPolicies(p audit.Policies) {
	load := func(ctx context.Context, id string) (any, error) { return h.genreService.Get(ctx, id) }
	p.Add(http.MethodPost, genresPath, audit.Policy{Table: "genres"})
	p.Add(http.MethodPatch, genresPath+"/:id", audit.Policy{Table: "genres", Load: load})
	p.Add(http.MethodDelete, genresPath+"/:id", audit.Policy{Table: "genres", Load: load})
}

// CreateGenre handles POST /api/genres
// @Summary      Create a genre
// @Tags         genres
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateGenreRequest  true  "Create Genre Payload"
// @Success      201      {object}  response.Response{data=model.Genre}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/genres [post]
func (h *GenreHandler) CreateGenre(c *gin.Context) {
	var req service.CreateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	genre, err := h.genreService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, genre.ID.String(), genre)
	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, genre))
}

// ListGenres handles GET /api/genres
// @Summary      List genres
// @Description  Searches name and description. Ordered by name.
// @Tags         genres
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Success      200     {object}  response.Response{data=service.Page[model.Genre]}
// @Router       /api/genres [get]
func (h *GenreHandler) ListGenres(c *gin.Context) {
	page, err := h.genreService.List(c.Request.Context(), c.Query("search"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, page))
}

// GetGenre handles GET /api/genres/:id
// @Summary      Get a genre
// @Tags         genres
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Genre ID"
// @Success      200  {object}  response.Response{data=model.Genre}
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/genres/{id} [get]
func (h *GenreHandler) GetGenre(c *gin.Context) {
	genre, err := h.genreService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, genre))
}

// UpdateGenre handles PATCH /api/genres/:id
// @Summary      Update a genre
// @Tags         genres
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Genre ID"
// @Param        payload  body      service.UpdateGenreRequest  true  "Update Genre Payload"
// @Success      200      {object}  response.Response{data=model.Genre}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/genres/{id} [patch]
func (h *GenreHandler) UpdateGenre(c *gin.Context) {
	var req service.UpdateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	genre, err := h.genreService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, genre.ID.String(), genre)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, genre))
}

// DeleteGenre handles DELETE /api/genres/:id
// @Summary      Delete a genre
// @Description  Soft deletes a genre. Admin or manager only.
// @Tags         genres
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Genre ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/genres/{id} [delete]
func (h *GenreHandler) DeleteGenre(c *gin.Context) {
	id := c.Param("id")
	if err := h.genreService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, id, nil)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, gin.H{"id": id}))
}
