package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
)

type dsarHandler struct {
	svc dsardomain.Service
}

func (h *dsarHandler) register(r gin.IRoutes) {
	r.POST("/dsar", h.create)
	r.GET("/dsar", h.list)
	r.GET("/dsar/:id", h.get)
	r.POST("/dsar/:id/verify", h.verify)
	r.POST("/dsar/:id/approve-deletion", h.approveDeletion)
}

func (h *dsarHandler) create(c *gin.Context) {
	var req dsardomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *dsarHandler) get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *dsarHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := h.svc.List(c.Request.Context(), dsardomain.ListRequest{
		SubjectID: c.Query("subject_id"),
		Status:    c.Query("status"),
		Limit:     limit,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dsar_requests": resp})
}

func (h *dsarHandler) verify(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Verify(c.Request.Context(), c.Param("id"), req.Token)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *dsarHandler) approveDeletion(c *gin.Context) {
	var req struct {
		ApprovedBy string `json:"approved_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.ApproveDeletion(c.Request.Context(), c.Param("id"), req.ApprovedBy)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
