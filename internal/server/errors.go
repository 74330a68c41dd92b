package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	idempotencydomain "github.com/nexuscore/nexuscore/internal/idempotency/domain"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/nexuscore/nexuscore/pkg/money"
)

// mapError translates domain failures to HTTP statuses: validation
// failures are 422, conflicts with recorded state are 409, lookups 404.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, dsardomain.ErrRequestNotFound),
		errors.Is(err, consentdomain.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, taxdomain.ErrRuleConflict),
		errors.Is(err, consentdomain.ErrOutOfOrderEvent),
		errors.Is(err, invoicedomain.ErrAlreadyCredited),
		errors.Is(err, invoicedomain.ErrNotCreditable),
		errors.Is(err, dsardomain.ErrNotVerifiable),
		errors.Is(err, dsardomain.ErrNotAwaitingApproval),
		errors.Is(err, idempotencydomain.ErrKeyInProgress):
		return http.StatusConflict, "conflict"

	case errors.Is(err, dsardomain.ErrInvalidToken):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, invoicedomain.ErrEmptyInvoice),
		errors.Is(err, invoicedomain.ErrNegativeQuantity),
		errors.Is(err, invoicedomain.ErrNegativePrice),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, taxdomain.ErrNoApplicableRule),
		errors.Is(err, taxdomain.ErrInvalidCategory),
		errors.Is(err, taxdomain.ErrInvalidRate),
		errors.Is(err, taxdomain.ErrInvalidEffectiveRange),
		errors.Is(err, taxdomain.ErrInvalidIRASCode),
		errors.Is(err, retentiondomain.ErrUnknownCategory),
		errors.Is(err, consentdomain.ErrInvalidAction),
		errors.Is(err, consentdomain.ErrInvalidSubject),
		errors.Is(err, dsardomain.ErrInvalidRequestType),
		errors.Is(err, dsardomain.ErrInvalidSubject),
		errors.Is(err, idempotencydomain.ErrKeyPayloadMismatch),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity, "validation_failed"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// classifyError feeds the request logger so error taxonomy shows up on
// access logs without leaking messages.
func classifyError(err error) (string, string) {
	_, code := mapError(err)
	return code, err.Error()
}

// ErrorHandler renders the last handler error as a JSON body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, code := mapError(last.Err)
		c.JSON(status, gin.H{
			"error":   code,
			"message": last.Err.Error(),
		})
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "bad_request",
		"message": err.Error(),
	})
}
