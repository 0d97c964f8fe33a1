package services

import (
	"context"
	"fmt"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"auction-settlement/pkg/metrics"
)

const WinnerNoticeSubject = "You're the winning bidder for an auction."

func BidderNoticeSubject(auctionID string) string {
	return fmt.Sprintf("Auction %s has ended.", auctionID)
}

// NotificationDispatcher sends the post-settlement notices: a closing notice
// to every bidder and an invoice plus winner notice to every winner.
type NotificationDispatcher struct {
	auctions   domain.AuctionRepository
	receipts   domain.ReceiptRepository
	payments   domain.PaymentProcessor
	sender     domain.EmailSender
	renderer   domain.TemplateRenderer
	from       string
	webhookURL string
	metrics    *metrics.SettlementMetrics
	log        logger.Logger
}

func NewNotificationDispatcher(
	auctions domain.AuctionRepository,
	receipts domain.ReceiptRepository,
	payments domain.PaymentProcessor,
	sender domain.EmailSender,
	renderer domain.TemplateRenderer,
	from string,
	webhookURL string,
	m *metrics.SettlementMetrics,
	log logger.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		auctions:   auctions,
		receipts:   receipts,
		payments:   payments,
		sender:     sender,
		renderer:   renderer,
		from:       from,
		webhookURL: webhookURL,
		metrics:    m,
		log:        log,
	}
}

// NotifyBidder tells a bidder the auction closed and points them at the next
// scheduled auction when there is one.
func (d *NotificationDispatcher) NotifyBidder(ctx context.Context, bidder domain.BidderSummary, auctionID string) error {
	log := d.log.With("auction_id", auctionID, "username", bidder.User.Username)

	notice := domain.BidderNotice{AuctionID: auctionID, User: bidder.User}
	partitioned, err := d.auctions.GetAuctionsPartitionedByTime(ctx)
	if err != nil {
		log.Warn("Failed to look up next auction", "error", err)
	} else if len(partitioned.Future) > 0 {
		notice.NextAuction = partitioned.Future[0]
	}

	html, err := d.renderer.Render(domain.BidderNoticeTemplate, notice)
	if err != nil {
		d.metrics.IncFailed(metrics.KindBidder)
		log.Error("Failed to render bidder notice", "error", err)
		return fmt.Errorf("render bidder notice: %w", err)
	}

	err = d.sender.Send(ctx, &domain.Email{
		From:    d.from,
		To:      bidder.User.Email,
		Subject: BidderNoticeSubject(auctionID),
		HTML:    html,
	})
	if err != nil {
		d.metrics.IncFailed(metrics.KindBidder)
		log.Error("Failed to send bidder notice", "error", err)
		return fmt.Errorf("send bidder notice: %w", err)
	}

	d.metrics.IncSent(metrics.KindBidder)
	log.Info("Bidder notified")
	return nil
}

// NotifyWinner raises an invoice for the winner and mails them the winner
// notice. Each step runs only after the previous one succeeded; the returned
// state is the last one reached.
func (d *NotificationDispatcher) NotifyWinner(ctx context.Context, winner domain.WinnerSummary, auctionID string) (domain.WinnerState, error) {
	log := d.log.With("auction_id", auctionID, "username", winner.User.Username)
	fail := func(state domain.WinnerState, msg string, err error) (domain.WinnerState, error) {
		d.metrics.IncFailed(metrics.KindWinner)
		log.Error(msg, "state", state.String(), "error", err)
		return domain.WinnerFailed, err
	}

	state := domain.WinnerReceiptPending
	receipt := &domain.Receipt{AuctionID: auctionID, Username: winner.User.Username}
	receiptID, err := d.receipts.CreateReceipt(ctx, receipt)
	if err != nil {
		return fail(state, "Failed to create receipt", fmt.Errorf("create receipt: %w", err))
	}
	receipt.ID = receiptID

	invoice, err := BuildInvoice(winner.Payment, winner.Slots, d.webhookURL, receiptID)
	if err != nil {
		return fail(state, "Failed to build invoice", err)
	}

	state = domain.WinnerInvoiceRequested
	created, err := d.payments.CreateInvoice(ctx, invoice)
	if err != nil {
		d.metrics.IncInvoiceRejected()
		return fail(state, "Failed to create invoice", fmt.Errorf("create invoice: %w", err))
	}
	if len(created) == 0 || created[0].ID == "" {
		d.metrics.IncInvoiceRejected()
		return fail(state, "Payment processor could not generate an invoice", domain.ErrInvoiceRejected)
	}

	state = domain.WinnerInvoiceConfirmed
	d.metrics.IncInvoiceCreated()
	invoiceID := created[0].ID
	log.Info("Invoice created", "invoice_id", invoiceID, "receipt_id", receiptID)

	receipt.InvoiceID = invoiceID
	if err := d.receipts.UpdateReceipt(ctx, receipt); err != nil {
		log.Warn("Failed to attach invoice to receipt", "receipt_id", receiptID, "invoice_id", invoiceID, "error", err)
	}

	html, err := d.renderer.Render(domain.WinnerNoticeTemplate, domain.WinnerNotice{
		AuctionID:  auctionID,
		User:       winner.User,
		Payment:    winner.Payment.StringFixed(2),
		Slots:      winner.Slots,
		InvoiceID:  invoiceID,
		InvoiceURL: d.payments.BaseURL(),
	})
	if err != nil {
		return fail(state, "Failed to render winner notice", fmt.Errorf("render winner notice: %w", err))
	}

	err = d.sender.Send(ctx, &domain.Email{
		From:    d.from,
		To:      winner.User.Email,
		Subject: WinnerNoticeSubject,
		HTML:    html,
	})
	if err != nil {
		return fail(state, "Failed to send winner notice", fmt.Errorf("send winner notice: %w", err))
	}

	d.metrics.IncSent(metrics.KindWinner)
	log.Info("Winner notified", "invoice_id", invoiceID)
	return domain.WinnerNotified, nil
}
