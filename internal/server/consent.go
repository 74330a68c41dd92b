package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
)

type consentHandler struct {
	svc consentdomain.Service
}

func (h *consentHandler) register(r gin.IRoutes) {
	r.POST("/consent-events", h.recordEvent)
	r.POST("/personal-data", h.recordCollection)
	r.GET("/consent/:subjectId", h.subjectState)
}

func (h *consentHandler) recordEvent(c *gin.Context) {
	var req consentdomain.RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.RecordEvent(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *consentHandler) recordCollection(c *gin.Context) {
	var req consentdomain.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.RecordCollection(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *consentHandler) subjectState(c *gin.Context) {
	resp, err := h.svc.SubjectState(c.Request.Context(), c.Param("subjectId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
