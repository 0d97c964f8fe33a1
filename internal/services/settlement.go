package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// Notifier delivers the per-user outcome of a settled auction.
type Notifier interface {
	NotifyBidder(ctx context.Context, bidder domain.BidderSummary, auctionID string) error
	NotifyWinner(ctx context.Context, winner domain.WinnerSummary, auctionID string) (domain.WinnerState, error)
}

// SettlementReport summarises one SettleAuction call.
type SettlementReport struct {
	AuctionID       string
	AlreadySettled  bool
	Bidders         int
	BiddersNotified int
	Winners         int
	WinnersNotified int
	BidderErr       error
	WinnerErr       error
}

type SettlementService struct {
	auctions       domain.AuctionRepository
	bids           domain.BidRepository
	notifier       Notifier
	guard          domain.SettlementGuard
	events         domain.EventPublisher
	maxConcurrency int
	clock          clock.Clock
	log            logger.Logger
}

// NewSettlementService wires the settlement flow. guard and events may be nil.
func NewSettlementService(
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	notifier Notifier,
	guard domain.SettlementGuard,
	events domain.EventPublisher,
	maxConcurrency int,
	clk clock.Clock,
	log logger.Logger,
) *SettlementService {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &SettlementService{
		auctions:       auctions,
		bids:           bids,
		notifier:       notifier,
		guard:          guard,
		events:         events,
		maxConcurrency: maxConcurrency,
		clock:          clk,
		log:            log,
	}
}

// Settle adapts SettleAuction to the scheduler's callback.
func (s *SettlementService) Settle(ctx context.Context, auction *domain.Auction) {
	s.SettleAuction(ctx, auction)
}

// SettleAuction notifies the bidders and the winners of an ended auction.
// The two halves run concurrently and a failed fetch only skips its own half.
func (s *SettlementService) SettleAuction(ctx context.Context, auction *domain.Auction) SettlementReport {
	report := SettlementReport{AuctionID: auction.ID}
	log := s.log.With("auction_id", auction.ID)

	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, auction.ID)
		switch {
		case err != nil:
			log.Warn("Settlement guard unavailable, settling anyway", "error", err)
		case !claimed:
			log.Info("Auction already settled")
			report.AlreadySettled = true
			return report
		}
	}

	log.Info("Settling auction")

	var wg conc.WaitGroup
	wg.Go(func() {
		report.Bidders, report.BiddersNotified, report.BidderErr = s.settleBidders(ctx, auction.ID, log)
	})
	wg.Go(func() {
		report.Winners, report.WinnersNotified, report.WinnerErr = s.settleWinners(ctx, auction, log)
	})
	wg.Wait()

	log.Info("Auction settled",
		"bidders", report.Bidders, "bidders_notified", report.BiddersNotified,
		"winners", report.Winners, "winners_notified", report.WinnersNotified)

	if s.events != nil {
		event := &domain.SettlementEvent{
			Type:      domain.AuctionSettled,
			AuctionID: auction.ID,
			Winners:   report.Winners,
			Bidders:   report.Bidders,
			Timestamp: s.clock.Now(),
		}
		if err := s.events.PublishSettlementEvent(ctx, event); err != nil {
			log.Warn("Failed to publish settlement event", "error", err)
		}
	}
	return report
}

func (s *SettlementService) settleBidders(ctx context.Context, auctionID string, log logger.Logger) (int, int, error) {
	bids, err := s.bids.GetBidsForAuction(ctx, auctionID)
	if err != nil {
		log.Error("Failed to load bids, skipping bidder notices", "error", err)
		return 0, 0, fmt.Errorf("load bids: %w", err)
	}

	bidders := GenerateBidders(bids)
	var notified atomic.Int64
	p := pool.New().WithMaxGoroutines(s.maxConcurrency)
	for _, bidder := range bidders {
		bidder := *bidder
		p.Go(func() {
			if err := s.notifier.NotifyBidder(ctx, bidder, auctionID); err == nil {
				notified.Add(1)
			}
		})
	}
	p.Wait()
	return len(bidders), int(notified.Load()), nil
}

func (s *SettlementService) settleWinners(ctx context.Context, auction *domain.Auction, log logger.Logger) (int, int, error) {
	resolved, err := s.auctions.GetAuctionWithResolvedSlotWinners(ctx, auction)
	if err != nil {
		log.Error("Failed to resolve slot winners, skipping winner notices", "error", err)
		return 0, 0, fmt.Errorf("resolve slot winners: %w", err)
	}

	winners := GenerateWinners(resolved.BidsPerSlot)
	var notified atomic.Int64
	p := pool.New().WithMaxGoroutines(s.maxConcurrency)
	for _, winner := range winners {
		winner := *winner
		p.Go(func() {
			if state, _ := s.notifier.NotifyWinner(ctx, winner, auction.ID); state == domain.WinnerNotified {
				notified.Add(1)
			}
		})
	}
	p.Wait()
	return len(winners), int(notified.Load()), nil
}
