package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction is read-only to settlement. TrueEnd is the instant bidding actually
// closes and may differ from EndTime once anti-sniping extensions apply.
type Auction struct {
	ID        string    `json:"id"`
	Region    string    `json:"region"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	TrueEnd   time.Time `json:"true_end"`
	Slots     []Slot    `json:"slots"`
}

type Slot struct {
	ID        string `json:"id"`
	AuctionID string `json:"auction_id"`
	Position  int    `json:"position"`
}

type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Bid is one entry of an auction's bid history. Slot stays nil until the
// slot-resolution query assigns the bid to a won position.
type Bid struct {
	ID        string
	AuctionID string
	User      User
	Slot      *int
	Price     decimal.Decimal
	CreatedAt time.Time
}

// WinningBid is a Bid resolved to a specific slot.
type WinningBid = Bid

type AuctionWithWinners struct {
	Auction     *Auction
	BidsPerSlot []WinningBid
}

// WinnerSummary aggregates every slot one user won in a single auction.
type WinnerSummary struct {
	User    User
	Payment decimal.Decimal
	Slots   int
}

type BidderSummary struct {
	User User
}

type TimeRelativeAuctions struct {
	Open   []*Auction `json:"open"`
	Closed []*Auction `json:"closed"`
	Future []*Auction `json:"future"`
	Past   []*Auction `json:"past"`
}

// Receipt links a winner to the processor invoice raised for an auction. Its
// ID doubles as the webhook token handed to the processor.
type Receipt struct {
	ID        string
	AuctionID string
	Username  string
	InvoiceID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Invoice struct {
	Currency         string          `json:"currency"`
	MinConfirmations int             `json:"min_confirmations"`
	LineItems        []LineItem      `json:"line_items"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	Webhooks         InvoiceWebhooks `json:"webhooks"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Amount      float64 `json:"amount"`
}

type InvoiceWebhooks struct {
	Paid Webhook `json:"paid"`
}

type Webhook struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// CreatedInvoice is one record of the processor's create response.
type CreatedInvoice struct {
	ID string `json:"_id"`
}

type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type ScheduledJob struct {
	ID        string
	AuctionID string
	JobType   JobType
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobType string

const (
	JobSettleAuction JobType = "settle_auction"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)

// WinnerState tracks the winner-payment flow. Every step only runs after the
// previous one succeeded; any failure parks the flow in WinnerFailed.
type WinnerState int

const (
	WinnerReceiptPending WinnerState = iota
	WinnerInvoiceRequested
	WinnerInvoiceConfirmed
	WinnerNotified
	WinnerFailed
)

func (s WinnerState) String() string {
	switch s {
	case WinnerReceiptPending:
		return "receipt_pending"
	case WinnerInvoiceRequested:
		return "invoice_requested"
	case WinnerInvoiceConfirmed:
		return "invoice_confirmed"
	case WinnerNotified:
		return "notified"
	case WinnerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type SettlementEvent struct {
	Type      SettlementEventType `json:"type"`
	AuctionID string              `json:"auction_id"`
	Winners   int                 `json:"winners"`
	Bidders   int                 `json:"bidders"`
	Timestamp time.Time           `json:"timestamp"`
}

type SettlementEventType string

const (
	AuctionSettled SettlementEventType = "auction_settled"
)

// PendingSettlement describes an armed settlement timer.
type PendingSettlement struct {
	AuctionID string    `json:"auction_id"`
	FireAt    time.Time `json:"fire_at"`
}

// Names of the two notice templates known to every TemplateRenderer.
const (
	WinnerNoticeTemplate = "winner_notice"
	BidderNoticeTemplate = "bidder_notice"
)

// WinnerNotice is the render context of the winner notice.
type WinnerNotice struct {
	AuctionID  string
	User       User
	Payment    string
	Slots      int
	InvoiceID  string
	InvoiceURL string
}

// BidderNotice is the render context of the bidder notice. NextAuction is
// nil when no future auction is scheduled.
type BidderNotice struct {
	AuctionID   string
	User        User
	NextAuction *Auction
}
