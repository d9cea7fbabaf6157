package handler

import (
	"net/http"
	"strconv"
	"strings"

	"bookinventory/internal/apperror"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError writes the error envelope for err. Server faults are logged
// with their full detail and answered with a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperror.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, response.Error(c, status, apperror.PublicMessage(err)))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// intQuery reads an optional integer query parameter, 0 when absent
func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("%s must be an integer", key)
	}
	return n, nil
}

// uuidListQuery accepts both repeated (?genres=a&genres=b) and comma
// separated (?genres=a,b) values.
func uuidListQuery(c *gin.Context, key string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, apperror.Validation("%s must contain valid UUIDs, got %q", key, part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
