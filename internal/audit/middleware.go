package audit

import (
	"context"
	"encoding/json"
	"net/http"

	"bookinventory/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	ctxResultID     = "auditResultID"
	ctxResultEntity = "auditResultEntity"
	ctxSnapshot     = "auditSnapshot"
)

// Loader fetches the current state of a record for the "before" snapshot
type Loader func(ctx context.Context, id string) (any, error)

// Policy describes how requests to one route are audited
type Policy struct {
	Table string
	// Operation overrides the one derived from the HTTP method
	Operation Operation
	Load      Loader
}

// Policies maps a method and gin route template to its audit policy
type Policies map[string]Policy

func policyKey(method, route string) string {
	return method + " " + route
}

// Add registers p for method and route, e.g. ("PATCH", "/api/books/:id")
func (p Policies) Add(method, route string, policy Policy) {
	p[policyKey(method, route)] = policy
}

func (p Policies) lookup(method, route string) (Policy, bool) {
	policy, ok := p[policyKey(method, route)]
	return policy, ok
}

// SetResult publishes the id and resulting state of the record a handler
// changed. Requests that never call it produce no audit entry.
func SetResult(c *gin.Context, id string, entity any) {
	c.Set(ctxResultID, id)
	c.Set(ctxResultEntity, entity)
}

// Snapshot loads the "before" state of the record named by the :id parameter.
// Place it in a route's chain after the auth middleware so rejected requests
// never read the record. Routes without it audit no old values.
func Snapshot() gin.HandlerFunc {
	return func(c *gin.Context) {
		if load, ok := c.Get(ctxSnapshot); ok {
			load.(func())()
		}
		c.Next()
	}
}

// Middleware records an audit entry for every successful request whose route
// has a policy. The before state is captured by Snapshot further down the
// chain.
func Middleware(rec *Recorder, policies Policies, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := policies.lookup(c.Request.Method, c.FullPath())
		if !ok {
			c.Next()
			return
		}

		op := policy.Operation
		if op == "" {
			op = OperationForMethod(c.Request.Method)
		}

		var before datatypes.JSON
		if id := c.Param("id"); id != "" && op != OpCreate && policy.Load != nil {
			c.Set(ctxSnapshot, func() {
				if old, err := policy.Load(c.Request.Context(), id); err == nil {
					before = snapshot(old, log)
				}
			})
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		recordID := c.GetString(ctxResultID)
		if recordID == "" {
			return
		}

		entry := Entry{
			Table:     policy.Table,
			RecordID:  recordID,
			Operation: op,
			UserID:    middleware.CurrentUserID(c),
			UserIP:    c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if op != OpCreate {
			entry.OldValues = before
		}
		if op != OpSoftDelete && op != OpDelete {
			if entity, ok := c.Get(ctxResultEntity); ok {
				entry.NewValues = snapshot(entity, log)
			}
		}
		rec.Record(entry)
	}
}

func snapshot(v any, log *zap.Logger) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn("audit snapshot failed", zap.Error(err))
		return nil
	}
	return datatypes.JSON(raw)
}
