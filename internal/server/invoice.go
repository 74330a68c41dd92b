package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
)

type invoiceHandler struct {
	svc  invoicedomain.Service
	idem gin.HandlerFunc
}

// Both mutating routes sit behind the idempotency guard: a retried
// POST with the same Idempotency-Key must not issue a second document.
func (h *invoiceHandler) register(r gin.IRoutes) {
	r.POST("/invoices", h.idem, h.create)
	r.GET("/invoices", h.list)
	r.GET("/invoices/:id", h.get)
	r.POST("/invoices/:id/credit-note", h.idem, h.creditNote)
}

func (h *invoiceHandler) create(c *gin.Context) {
	var req invoicedomain.CreateRequest
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

func (h *invoiceHandler) get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *invoiceHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := h.svc.List(c.Request.Context(), invoicedomain.ListRequest{
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Limit:      limit,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": resp})
}

func (h *invoiceHandler) creditNote(c *gin.Context) {
	var req invoicedomain.CreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.CreditNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
