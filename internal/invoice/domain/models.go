// Package domain contains the invoice models and DTOs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invoice lifecycle states. An issued invoice is immutable: a correction
// produces a credit note that supersedes it, never an in-place edit.
const (
	StatusIssued     = "issued"
	StatusCredited   = "credited"
	StatusCreditNote = "credit_note"
)

// Invoice is a finalized billing document. All amounts are in minor units
// of Currency. TaxLines carry the rate and IRAS code that were effective
// at issuance, so later rule inserts never change an issued invoice.
type Invoice struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	InvoiceNumber     string        `gorm:"type:text;not null;uniqueIndex"`
	CustomerID        string        `gorm:"type:text;not null;index"`
	Currency          string        `gorm:"type:varchar(3);not null"`
	Status            string        `gorm:"type:text;not null;default:'issued'"`
	OriginalInvoiceID *snowflake.ID `gorm:"index"`
	SubtotalAmount    int64         `gorm:"not null"`
	TaxAmount         int64         `gorm:"not null"`
	TotalAmount       int64         `gorm:"not null"`
	IssuedAt          time.Time     `gorm:"not null;index"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Lines    []InvoiceLine    `gorm:"foreignKey:InvoiceID"`
	TaxLines []InvoiceTaxLine `gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

type InvoiceLine struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	InvoiceID       snowflake.ID `gorm:"not null;index"`
	Position        int          `gorm:"not null"`
	Description     string       `gorm:"type:text"`
	Quantity        int64        `gorm:"not null"`
	UnitPriceAmount int64        `gorm:"not null"`
	Category        string       `gorm:"type:text;not null"`
	LineTotalAmount int64        `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

// InvoiceTaxLine is one tax amount per distinct category on the invoice.
// Rounding happens once per category on the summed taxable base, so the
// invoice tax total is exactly the sum of its tax lines.
type InvoiceTaxLine struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	InvoiceID     snowflake.ID `gorm:"not null;index"`
	Category      string       `gorm:"type:text;not null"`
	RateBps       int64        `gorm:"column:rate_bps;not null"`
	IRASCode      string       `gorm:"column:iras_code;type:text;not null"`
	TaxableAmount int64        `gorm:"not null"`
	TaxAmount     int64        `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceTaxLine) TableName() string { return "invoice_tax_lines" }
