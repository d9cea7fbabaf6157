package handler

import (
	"net/http"

	"bookinventory/internal/apperror"
	"bookinventory/internal/auth"
	"bookinventory/internal/middleware"
	"bookinventory/internal/service"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService service.AuthService
	issuer      *auth.TokenIssuer
	limiter     *middleware.IPRateLimiter
	log         *zap.Logger
}

// NewAuthHandler sets up the routing dependencies for authentication endpoints
func NewAuthHandler(authService service.AuthService, issuer *auth.TokenIssuer, limiter *middleware.IPRateLimiter, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, issuer: issuer, limiter: limiter, log: log}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/auth")
	{
		// Public routes, rate limited per client IP
		group.POST("/login", h.limiter.Middleware(), h.Login)
		group.POST("/register", h.limiter.Middleware(), h.Register)
		group.POST("/refresh", h.limiter.Middleware(), h.Refresh)

		group.GET("/profile", middleware.RequireAuth(h.issuer), h.Profile)
	}
}

// Login handles POST /api/auth/login to authenticate and return a token pair
// @Summary      Login user
// @Description  Authenticates a user by email and password, returning access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      401      {object}  response.ErrorResponse
// @Failure      429      {object}  response.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, res))
}

// Register handles POST /api/auth/register
// @Summary      Register user
// @Description  Creates an account with the user role and signs it in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, res))
}

// Refresh handles POST /api/auth/refresh
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  true  "Refresh Token"
// @Success      200      {object}  response.Response{data=service.RefreshResponse}
// @Failure      401      {object}  response.ErrorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req service.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, res))
}

// Profile handles GET /api/auth/profile to return the current user based on JWT
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.User}
// @Failure      401  {object}  response.ErrorResponse
// @Router       /api/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == nil {
		respondError(c, h.log, apperror.Unauthorized("Invalid or expired token"))
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), userID.String())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, user))
}
