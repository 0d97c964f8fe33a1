package domain

import "errors"

var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrInvoiceRejected  = errors.New("payment processor did not create an invoice")
	ErrInvalidSlotCount = errors.New("slot count must be positive")
	ErrAuctionEnded     = errors.New("auction true end has already passed")
	ErrReceiptNotFound  = errors.New("receipt not found")
)

var ErrSchedulerStopped = errors.New("settlement scheduler stopped")
