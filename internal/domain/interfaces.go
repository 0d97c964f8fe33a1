package domain

import (
	"context"
)

// Repository interfaces
type AuctionRepository interface {
	LoadAllAuctionsWithTrueEnd(ctx context.Context) ([]*Auction, error)
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	GetAuctionWithResolvedSlotWinners(ctx context.Context, auction *Auction) (*AuctionWithWinners, error)
	GetAuctionsPartitionedByTime(ctx context.Context) (*TimeRelativeAuctions, error)
}

type BidRepository interface {
	// GetBidsForAuction returns bids oldest first; element 0 is the seed bid.
	GetBidsForAuction(ctx context.Context, auctionID string) ([]*Bid, error)
}

type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, receipt *Receipt) (string, error)
	UpdateReceipt(ctx context.Context, receipt *Receipt) error
}

type SchedulerRepository interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	MarkExecuted(ctx context.Context, auctionID string) error
	CancelJobsForAuction(ctx context.Context, auctionID string) error
}

// Outbound collaborators
type PaymentProcessor interface {
	CreateInvoice(ctx context.Context, invoice *Invoice) ([]CreatedInvoice, error)
	BaseURL() string
}

type EmailSender interface {
	Send(ctx context.Context, email *Email) error
}

type TemplateRenderer interface {
	Render(name string, data interface{}) (string, error)
}

// Settlement coordination
type SettlementGuard interface {
	// Claim reports whether the caller is the first to settle auctionID.
	Claim(ctx context.Context, auctionID string) (bool, error)
}

type EventPublisher interface {
	PublishSettlementEvent(ctx context.Context, event *SettlementEvent) error
}
