package handler

import (
	"net/http"

	"bookinventory/internal/audit"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes is implemented by every handler
type Routes interface {
	RegisterRoutes(router *gin.RouterGroup)
}

// Audited handlers declare the audit policy of their mutating routes
type Audited interface {
	AuditPolicies(p audit.Policies)
}

// RegisterRoutes mounts handlers on router behind the audit middleware and
// returns the policies they declared.
func RegisterRoutes(router *gin.RouterGroup, rec *audit.Recorder, log *zap.Logger, handlers ...Routes) audit.Policies {
	policies := audit.Policies{}
	router.Use(audit.Middleware(rec, policies, log))

	for _, h := range handlers {
		if a, ok := h.(Audited); ok {
			a.AuditPolicies(policies)
		}
		h.RegisterRoutes(router)
	}
	return policies
}

// RegisterFallbacks answers unknown routes and unsupported methods with the
// error envelope.
func RegisterFallbacks(engine *gin.Engine) {
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Error(c, http.StatusNotFound, "Route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, response.Error(c, http.StatusMethodNotAllowed, "Method not allowed"))
	})
}
