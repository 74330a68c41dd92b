package domain

import (
	"context"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	CreditNote(ctx context.Context, invoiceID string, req CreditNoteRequest) (*Response, error)
}

type CreateRequest struct {
	CustomerID string      `json:"customer_id"`
	Currency   string      `json:"currency,omitempty"`
	IssuedAt   *time.Time  `json:"issued_at,omitempty"`
	Lines      []LineInput `json:"lines"`
}

type LineInput struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Category    string `json:"category"`
}

type CreditNoteRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ListRequest struct {
	CustomerID string
	Status     string
	Limit      int
}

type Response struct {
	ID                string            `json:"id"`
	InvoiceNumber     string            `json:"invoice_number"`
	CustomerID        string            `json:"customer_id"`
	Currency          string            `json:"currency"`
	Status            string            `json:"status"`
	OriginalInvoiceID *string           `json:"original_invoice_id,omitempty"`
	Subtotal          int64             `json:"subtotal"`
	Tax               int64             `json:"tax"`
	Total             int64             `json:"total"`
	IssuedAt          time.Time         `json:"issued_at"`
	Lines             []LineResponse    `json:"lines"`
	TaxLines          []TaxLineResponse `json:"tax_lines"`
}

type LineResponse struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Category    string `json:"category"`
	LineTotal   int64  `json:"line_total"`
}

type TaxLineResponse struct {
	Category      string `json:"category"`
	RateBps       int64  `json:"rate_bps"`
	IRASCode      string `json:"iras_code"`
	TaxableAmount int64  `json:"taxable_amount"`
	TaxAmount     int64  `json:"tax_amount"`
}
