package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
)

type complianceHandler struct {
	consent   consentdomain.Service
	retention retentiondomain.Service
	audit     auditdomain.Service
	clock     clock.Clock
}

func (h *complianceHandler) register(r gin.IRoutes) {
	r.GET("/compliance/purge-queue", h.purgeQueue)
	r.GET("/compliance/retention-policies", h.retentionPolicies)
	r.GET("/audit-logs", h.auditLogs)
}

// purgeQueue is the read-only view consumed by the external deletion
// job. The optional "at" parameter answers "what would be due then".
func (h *complianceHandler) purgeQueue(c *gin.Context) {
	now := h.clock.Now()
	if raw := c.Query("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		now = at.UTC()
	}

	queue, err := h.consent.DueForPurge(c.Request.Context(), now)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, queue)
}

func (h *complianceHandler) retentionPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"retention_policies": h.retention.List()})
}

func (h *complianceHandler) auditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	req := auditdomain.ListRequest{
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
		ActorType:  c.Query("actor_type"),
		Limit:      limit,
	}
	if raw := c.Query("start_at"); raw != "" {
		startAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		req.StartAt = &startAt
	}
	if raw := c.Query("end_at"); raw != "" {
		endAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		req.EndAt = &endAt
	}

	logs, err := h.audit.List(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
