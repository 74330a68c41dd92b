package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Resolver taxdomain.Resolver
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     invoicedomain.Repository
	resolver taxdomain.Resolver
	audit    auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		cfg:      p.Cfg,
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		resolver: p.Resolver,
		audit:    p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Response, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return nil, invoicedomain.ErrInvalidCustomer
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}

	issuedAt := s.clock.Now()
	if req.IssuedAt != nil {
		issuedAt = req.IssuedAt.UTC()
	}

	calc, err := Calculate(req.Lines, currency, issuedAt, s.resolver)
	if err != nil {
		return nil, err
	}

	invoice := s.buildInvoice(customerID, currency, issuedAt, calc)
	if err := s.repo.Insert(ctx, s.db, invoice); err != nil {
		s.log.Error("failed to persist invoice", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordInvoiceIssued(ctx, currency)
	invoiceID := invoice.ID.String()
	_ = s.audit.AuditLog(ctx, "system", nil, "invoice.issue", "invoice", &invoiceID, map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"currency":       currency,
		"total":          invoice.TotalAmount,
	})
	s.log.Info("invoice issued",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("currency", currency),
		zap.Int64("total", invoice.TotalAmount),
	)

	resp := toResponse(*invoice)
	return &resp, nil
}

func (s *Service) buildInvoice(customerID, currency string, issuedAt time.Time, calc *Calculation) *invoicedomain.Invoice {
	invoice := &invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		InvoiceNumber:  s.newInvoiceNumber(issuedAt),
		CustomerID:     customerID,
		Currency:       currency,
		Status:         invoicedomain.StatusIssued,
		SubtotalAmount: calc.Subtotal.Amount,
		TaxAmount:      calc.Tax.Amount,
		TotalAmount:    calc.Total.Amount,
		IssuedAt:       issuedAt,
		CreatedAt:      s.clock.Now(),
	}
	for i, line := range calc.Lines {
		invoice.Lines = append(invoice.Lines, invoicedomain.InvoiceLine{
			ID:              s.genID.Generate(),
			InvoiceID:       invoice.ID,
			Position:        i,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPriceAmount: line.UnitPrice.Amount,
			Category:        line.Category,
			LineTotalAmount: line.LineTotal.Amount,
		})
	}
	for _, taxLine := range calc.TaxLines {
		invoice.TaxLines = append(invoice.TaxLines, invoicedomain.InvoiceTaxLine{
			ID:            s.genID.Generate(),
			InvoiceID:     invoice.ID,
			Category:      taxLine.Category,
			RateBps:       taxLine.RateBps,
			IRASCode:      taxLine.IRASCode,
			TaxableAmount: taxLine.Taxable.Amount,
			TaxAmount:     taxLine.Tax.Amount,
		})
	}
	return invoice
}

func (s *Service) newInvoiceNumber(issuedAt time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(issuedAt), rand.Reader)
	return "INV-" + id.String()
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.Response, error) {
	invoiceID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*invoice)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) ([]invoicedomain.Response, error) {
	if req.Limit <= 0 {
		req.Limit = 100
	}
	if req.Limit > 500 {
		req.Limit = 500
	}

	invoices, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}

	resp := make([]invoicedomain.Response, 0, len(invoices))
	for _, invoice := range invoices {
		resp = append(resp, toResponse(invoice))
	}
	return resp, nil
}

// CreditNote issues a negating document for an issued invoice. The credit
// note copies the original's amounts with the sign flipped, including the
// captured tax lines, so the pair always nets to zero without recomputing
// against the current rule set.
func (s *Service) CreditNote(ctx context.Context, invoiceID string, req invoicedomain.CreditNoteRequest) (*invoicedomain.Response, error) {
	originalID, err := snowflake.ParseString(invoiceID)
	if err != nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	var creditNote *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.repo.FindByID(ctx, tx, originalID)
		if err != nil {
			return err
		}
		switch original.Status {
		case invoicedomain.StatusIssued:
		case invoicedomain.StatusCredited:
			return invoicedomain.ErrAlreadyCredited
		default:
			return invoicedomain.ErrNotCreditable
		}

		creditNote = s.negate(original)
		if err := s.repo.Insert(ctx, tx, creditNote); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, tx, original.ID, invoicedomain.StatusCredited)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCreditNote(ctx, creditNote.Currency)
	creditNoteID := creditNote.ID.String()
	_ = s.audit.AuditLog(ctx, "system", nil, "invoice.credit_note", "invoice", &creditNoteID, map[string]any{
		"original_invoice_id": invoiceID,
		"reason":              req.Reason,
	})
	s.log.Info("credit note issued",
		zap.String("invoice_number", creditNote.InvoiceNumber),
		zap.String("original_invoice_id", invoiceID),
	)

	resp := toResponse(*creditNote)
	return &resp, nil
}

func (s *Service) negate(original *invoicedomain.Invoice) *invoicedomain.Invoice {
	now := s.clock.Now()
	originalID := original.ID
	creditNote := &invoicedomain.Invoice{
		ID:                s.genID.Generate(),
		InvoiceNumber:     "CN-" + strings.TrimPrefix(original.InvoiceNumber, "INV-"),
		CustomerID:        original.CustomerID,
		Currency:          original.Currency,
		Status:            invoicedomain.StatusCreditNote,
		OriginalInvoiceID: &originalID,
		SubtotalAmount:    -original.SubtotalAmount,
		TaxAmount:         -original.TaxAmount,
		TotalAmount:       -original.TotalAmount,
		IssuedAt:          now,
		CreatedAt:         now,
	}
	for _, line := range original.Lines {
		creditNote.Lines = append(creditNote.Lines, invoicedomain.InvoiceLine{
			ID:              s.genID.Generate(),
			InvoiceID:       creditNote.ID,
			Position:        line.Position,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPriceAmount: -line.UnitPriceAmount,
			Category:        line.Category,
			LineTotalAmount: -line.LineTotalAmount,
		})
	}
	for _, taxLine := range original.TaxLines {
		creditNote.TaxLines = append(creditNote.TaxLines, invoicedomain.InvoiceTaxLine{
			ID:            s.genID.Generate(),
			InvoiceID:     creditNote.ID,
			Category:      taxLine.Category,
			RateBps:       taxLine.RateBps,
			IRASCode:      taxLine.IRASCode,
			TaxableAmount: -taxLine.TaxableAmount,
			TaxAmount:     -taxLine.TaxAmount,
		})
	}
	return creditNote
}

func toResponse(invoice invoicedomain.Invoice) invoicedomain.Response {
	resp := invoicedomain.Response{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    invoice.CustomerID,
		Currency:      invoice.Currency,
		Status:        invoice.Status,
		Subtotal:      invoice.SubtotalAmount,
		Tax:           invoice.TaxAmount,
		Total:         invoice.TotalAmount,
		IssuedAt:      invoice.IssuedAt,
	}
	if invoice.OriginalInvoiceID != nil {
		originalID := invoice.OriginalInvoiceID.String()
		resp.OriginalInvoiceID = &originalID
	}
	for _, line := range invoice.Lines {
		resp.Lines = append(resp.Lines, invoicedomain.LineResponse{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPriceAmount,
			Category:    line.Category,
			LineTotal:   line.LineTotalAmount,
		})
	}
	for _, taxLine := range invoice.TaxLines {
		resp.TaxLines = append(resp.TaxLines, invoicedomain.TaxLineResponse{
			Category:      taxLine.Category,
			RateBps:       taxLine.RateBps,
			IRASCode:      taxLine.IRASCode,
			TaxableAmount: taxLine.TaxableAmount,
			TaxAmount:     taxLine.TaxAmount,
		})
	}
	return resp
}
