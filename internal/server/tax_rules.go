package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
)

type taxRuleHandler struct {
	svc taxdomain.Service
}

func (h *taxRuleHandler) register(r gin.IRoutes) {
	r.POST("/tax-rules", h.create)
	r.GET("/tax-rules", h.list)
}

func (h *taxRuleHandler) create(c *gin.Context) {
	var req taxdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Insert(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *taxRuleHandler) list(c *gin.Context) {
	req := taxdomain.ListRequest{Category: c.Query("category")}
	if raw := c.Query("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		req.At = &at
	}

	resp, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tax_rules": resp})
}
