package services

import (
	"auction-settlement/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	InvoiceCurrency         = "BTC"
	InvoiceMinConfirmations = 6
	SlotLineItemDescription = "Auction Ad Slot"
)

// BuildInvoice splits payment evenly across one line item per won slot.
// token is echoed back by the processor's paid webhook.
func BuildInvoice(payment decimal.Decimal, slots int, webhookURL, token string) (*domain.Invoice, error) {
	if slots <= 0 {
		return nil, domain.ErrInvalidSlotCount
	}

	perSlot := payment.InexactFloat64() / float64(slots)
	items := make([]domain.LineItem, slots)
	for i := range items {
		items[i] = domain.LineItem{
			Description: SlotLineItemDescription,
			Quantity:    1,
			Amount:      perSlot,
		}
	}

	return &domain.Invoice{
		Currency:         InvoiceCurrency,
		MinConfirmations: InvoiceMinConfirmations,
		LineItems:        items,
		BalanceDue:       payment,
		Webhooks: domain.InvoiceWebhooks{
			Paid: domain.Webhook{URL: webhookURL, Token: token},
		},
	}, nil
}
