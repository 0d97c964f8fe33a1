package services

import (
	"context"
	"fmt"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"

	"go.uber.org/multierr"
)

type settlementArmer interface {
	Arm(ctx context.Context, auction *domain.Auction) error
}

// Bootstrapper re-arms settlement timers from persisted auctions on startup.
type Bootstrapper struct {
	auctions  domain.AuctionRepository
	scheduler settlementArmer
	clock     clock.Clock
	log       logger.Logger
}

func NewBootstrapper(auctions domain.AuctionRepository, scheduler settlementArmer, clk clock.Clock,
	log logger.Logger) *Bootstrapper {
	return &Bootstrapper{auctions: auctions, scheduler: scheduler, clock: clk, log: log}
}

// Bootstrap arms every auction whose true end is still ahead and returns how
// many were armed. Auctions that already ended are never settled
// retroactively. A failed load arms nothing.
func (b *Bootstrapper) Bootstrap(ctx context.Context) (int, error) {
	auctions, err := b.auctions.LoadAllAuctionsWithTrueEnd(ctx)
	if err != nil {
		return 0, fmt.Errorf("load auctions: %w", err)
	}

	now := b.clock.Now()
	armed := 0
	var errs error
	for _, auction := range auctions {
		if !auction.TrueEnd.After(now) {
			b.log.Debug("Skipping ended auction", "auction_id", auction.ID, "true_end", auction.TrueEnd)
			continue
		}
		if err := b.scheduler.Arm(ctx, auction); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("arm auction %s: %w", auction.ID, err))
			continue
		}
		armed++
	}

	b.log.Info("Settlement bootstrap complete", "loaded", len(auctions), "armed", armed)
	return armed, errs
}
