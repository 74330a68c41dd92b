package domain

import "errors"

var (
	ErrEmptyInvoice     = errors.New("empty_invoice")
	ErrNegativeQuantity = errors.New("negative_quantity")
	ErrNegativePrice    = errors.New("negative_price")
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrAlreadyCredited  = errors.New("invoice_already_credited")
	ErrNotCreditable    = errors.New("invoice_not_creditable")
)
