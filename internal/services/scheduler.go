package services

import (
	"context"
	"sort"
	"sync"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"
	"auction-settlement/pkg/metrics"
	"auction-settlement/pkg/utils"
)

// SettlementFunc settles an auction whose timer fired.
type SettlementFunc func(ctx context.Context, auction *domain.Auction)

type armedSettlement struct {
	auction *domain.Auction
	timer   *LongDelayTimer
}

// SettlementScheduler owns one long-delay timer per auction, keyed by
// auction id. Armed timers live in process memory only; the persisted jobs
// are a record of what was armed, not a recovery source.
type SettlementScheduler struct {
	clock   clock.Clock
	repo    domain.SchedulerRepository
	onFire  SettlementFunc
	metrics *metrics.SettlementMetrics
	log     logger.Logger

	mu      sync.Mutex
	armed   map[string]*armedSettlement
	stopped bool
}

func NewSettlementScheduler(clk clock.Clock, repo domain.SchedulerRepository, onFire SettlementFunc,
	m *metrics.SettlementMetrics, log logger.Logger) *SettlementScheduler {
	return &SettlementScheduler{
		clock:   clk,
		repo:    repo,
		onFire:  onFire,
		metrics: m,
		log:     log,
		armed:   make(map[string]*armedSettlement),
	}
}

// Arm schedules settlement of auction at its true end, replacing any timer
// already armed for the same auction.
func (s *SettlementScheduler) Arm(ctx context.Context, auction *domain.Auction) error {
	delay := auction.TrueEnd.Sub(s.clock.Now())
	if delay <= 0 {
		return domain.ErrAuctionEnded
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return domain.ErrSchedulerStopped
	}
	if prev, ok := s.armed[auction.ID]; ok {
		prev.timer.Stop()
	}
	entry := &armedSettlement{auction: auction}
	entry.timer = ArmLongDelay(s.clock, delay, entry, s.fire)
	s.armed[auction.ID] = entry
	n := len(s.armed)
	s.mu.Unlock()

	s.metrics.SetArmed(n)
	s.log.Info("Settlement armed", "auction_id", auction.ID, "true_end", auction.TrueEnd,
		"full_days", entry.timer.FullDays())

	job := &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auction.ID,
		JobType:   domain.JobSettleAuction,
		RunAt:     auction.TrueEnd,
		Status:    domain.JobPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		s.log.Warn("Failed to record settlement job", "auction_id", auction.ID, "error", err)
	}
	return nil
}

// Cancel stops the pending settlement of auctionID. It reports whether one
// was armed.
func (s *SettlementScheduler) Cancel(ctx context.Context, auctionID string) bool {
	s.mu.Lock()
	entry, ok := s.armed[auctionID]
	if ok {
		delete(s.armed, auctionID)
		entry.timer.Stop()
	}
	n := len(s.armed)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.metrics.SetArmed(n)
	if err := s.repo.CancelJobsForAuction(ctx, auctionID); err != nil {
		s.log.Warn("Failed to cancel settlement job", "auction_id", auctionID, "error", err)
	}
	s.log.Info("Settlement cancelled", "auction_id", auctionID)
	return true
}

// Reschedule re-arms auction at its current true end. An auction whose
// true end has passed keeps whatever timer it had.
func (s *SettlementScheduler) Reschedule(ctx context.Context, auction *domain.Auction) error {
	if !auction.TrueEnd.After(s.clock.Now()) {
		return domain.ErrAuctionEnded
	}
	if err := s.repo.CancelJobsForAuction(ctx, auction.ID); err != nil {
		s.log.Warn("Failed to cancel settlement job", "auction_id", auction.ID, "error", err)
	}
	return s.Arm(ctx, auction)
}

// Pending lists armed settlements ordered by fire time.
func (s *SettlementScheduler) Pending() []domain.PendingSettlement {
	s.mu.Lock()
	pending := make([]domain.PendingSettlement, 0, len(s.armed))
	for id, entry := range s.armed {
		pending = append(pending, domain.PendingSettlement{AuctionID: id, FireAt: entry.timer.Deadline()})
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].FireAt.Equal(pending[j].FireAt) {
			return pending[i].AuctionID < pending[j].AuctionID
		}
		return pending[i].FireAt.Before(pending[j].FireAt)
	})
	return pending
}

// Stop cancels every armed timer. Persisted jobs stay pending.
func (s *SettlementScheduler) Stop() {
	s.log.Info("Stopping settlement scheduler")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, entry := range s.armed {
		entry.timer.Stop()
		delete(s.armed, id)
	}
	s.metrics.SetArmed(0)
}

func (s *SettlementScheduler) fire(entry *armedSettlement) {
	id := entry.auction.ID

	s.mu.Lock()
	if s.armed[id] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.armed, id)
	n := len(s.armed)
	s.mu.Unlock()

	s.metrics.SetArmed(n)
	s.metrics.IncFired()
	s.log.Info("Settlement timer fired", "auction_id", id)

	ctx := context.Background()
	if err := s.repo.MarkExecuted(ctx, id); err != nil {
		s.log.Warn("Failed to mark settlement job executed", "auction_id", id, "error", err)
	}
	s.onFire(ctx, entry.auction)
}
