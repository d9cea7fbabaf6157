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

const usersPath = "/api/users"

type UserHandler struct {
	userService service.UserService
	issuer      *auth.TokenIssuer
	log         *zap.Logger
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, issuer *auth.TokenIssuer, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, issuer: issuer, log: log}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup.
// User administration is reserved to admins and has no delete endpoint.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group(usersPath)
	users.Use(middleware.RequireRole(h.issuer, model.RoleAdmin))
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUserByID)
		users.POST("", h.CreateUser)
		users.PATCH("/:id", audit.Snapshot(), h.UpdateUser)
	}
}

// AuditPolicies registers how user mutations are audited
func (h *UserHandler) AuditPolicies(p audit.Policies) {
	load := func(ctx context.Context, id string) (any, error) { return h.userService.GetUserByID(ctx, id) }
	p.Add(http.MethodPost, usersPath, audit.Policy{Table: "users"})
	p.Add(http.MethodPatch, usersPath+"/:id", audit.Policy{Table: "users", Load: load})
}

// CreateUser handles POST /api/users requests mapping
// @Summary      Create a new user
// @Description  Creates a new user validating constraints and hashing password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=model.User}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, user.ID.String(), user)
	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, user))
}

// ListUsers handles GET /api/users
// @Summary      List users
// @Description  Get paginated users, optionally searched by email or name
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search by email or name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Success      200     {object}  response.Response{data=service.Page[model.User]}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context(), c.Query("search"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, users))
}

// GetUserByID handles GET /api/users/:id
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=model.User}
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, user))
}

// UpdateUser handles PATCH /api/users/:id
// @Summary      Update user
// @Description  Changes the supplied fields. A new password is hashed before it is stored.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Update User Payload"
// @Success      200      {object}  response.Response{data=model.User}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, user.ID.String(), user)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, user))
}
