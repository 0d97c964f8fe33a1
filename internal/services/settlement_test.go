package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBidRepo struct {
	bids map[string][]*domain.Bid
	err  error
}

func (r *fakeBidRepo) GetBidsForAuction(_ context.Context, auctionID string) ([]*domain.Bid, error) {
	return r.bids[auctionID], r.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	bidders   []string
	winners   map[string]domain.WinnerSummary
	failUsers map[string]bool
}

func (n *recordingNotifier) NotifyBidder(_ context.Context, bidder domain.BidderSummary, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bidders = append(n.bidders, bidder.User.Username)
	if n.failUsers[bidder.User.Username] {
		return errors.New("send failed")
	}
	return nil
}

func (n *recordingNotifier) NotifyWinner(_ context.Context, winner domain.WinnerSummary, _ string) (domain.WinnerState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.winners == nil {
		n.winners = make(map[string]domain.WinnerSummary)
	}
	n.winners[winner.User.Username] = winner
	if n.failUsers[winner.User.Username] {
		return domain.WinnerFailed, domain.ErrInvoiceRejected
	}
	return domain.WinnerNotified, nil
}

func (n *recordingNotifier) sortedBidders() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]string(nil), n.bidders...)
	sort.Strings(out)
	return out
}

type fakeGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (g *fakeGuard) Claim(_ context.Context, auctionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.claimed == nil {
		g.claimed = make(map[string]bool)
	}
	if g.claimed[auctionID] {
		return false, nil
	}
	g.claimed[auctionID] = true
	return true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.SettlementEvent
	err    error
}

func (p *fakePublisher) PublishSettlementEvent(_ context.Context, event *domain.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func bid(id, name, price string) *domain.Bid {
	return &domain.Bid{ID: id, AuctionID: "a1", User: user(name), Price: decimal.RequireFromString(price)}
}

type settlementFixture struct {
	auctions  *fakeAuctionRepo
	bids      *fakeBidRepo
	notifier  *recordingNotifier
	guard     *fakeGuard
	publisher *fakePublisher
}

func newSettlementFixture() *settlementFixture {
	return &settlementFixture{
		auctions: &fakeAuctionRepo{winners: map[string][]domain.WinningBid{
			"a1": {winningBid("A", "10", 1), winningBid("A", "15", 2), winningBid("B", "5", 3)},
		}},
		bids: &fakeBidRepo{bids: map[string][]*domain.Bid{
			"a1": {bid("seed", "house", "1"), bid("b1", "A", "10"), bid("b2", "B", "5"), bid("b3", "A", "15"), bid("b4", "C", "2")},
		}},
		notifier:  &recordingNotifier{},
		guard:     &fakeGuard{},
		publisher: &fakePublisher{},
	}
}

func (f *settlementFixture) service() *SettlementService {
	return NewSettlementService(f.auctions, f.bids, f.notifier, f.guard, f.publisher, 2,
		clock.NewManual(epoch), logger.NewNop())
}

func TestSettleAuctionNotifiesBiddersAndWinners(t *testing.T) {
	f := newSettlementFixture()

	report := f.service().SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	assert.False(t, report.AlreadySettled)
	assert.Equal(t, 3, report.Bidders)
	assert.Equal(t, 3, report.BiddersNotified)
	assert.Equal(t, 2, report.Winners)
	assert.Equal(t, 2, report.WinnersNotified)
	assert.NoError(t, report.BidderErr)
	assert.NoError(t, report.WinnerErr)

	assert.Equal(t, []string{"A", "B", "C"}, f.notifier.sortedBidders())
	assert.Equal(t, "25.00", f.notifier.winners["A"].Payment.StringFixed(2))
	assert.Equal(t, 2, f.notifier.winners["A"].Slots)
	assert.Equal(t, "5.00", f.notifier.winners["B"].Payment.StringFixed(2))

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, domain.AuctionSettled, event.Type)
	assert.Equal(t, "a1", event.AuctionID)
	assert.Equal(t, 2, event.Winners)
	assert.Equal(t, 3, event.Bidders)
	assert.True(t, event.Timestamp.Equal(epoch))
}

func TestSettleAuctionBidFetchFailureStillNotifiesWinners(t *testing.T) {
	f := newSettlementFixture()
	f.bids.err = errors.New("read timeout")

	report := f.service().SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	require.Error(t, report.BidderErr)
	assert.Empty(t, f.notifier.sortedBidders())
	assert.Equal(t, 2, report.WinnersNotified)
}

func TestSettleAuctionWinnerFetchFailureStillNotifiesBidders(t *testing.T) {
	f := newSettlementFixture()
	f.auctions.winnersErr = errors.New("read timeout")

	report := f.service().SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	require.Error(t, report.WinnerErr)
	assert.Empty(t, f.notifier.winners)
	assert.Equal(t, 3, report.BiddersNotified)
}

func TestSettleAuctionUserFailuresAreIsolated(t *testing.T) {
	f := newSettlementFixture()
	f.notifier.failUsers = map[string]bool{"A": true}

	report := f.service().SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	assert.Equal(t, 2, report.BiddersNotified)
	assert.Equal(t, 1, report.WinnersNotified)
	assert.Len(t, f.notifier.sortedBidders(), 3)
}

func TestSettleAuctionRunsOnce(t *testing.T) {
	f := newSettlementFixture()
	s := f.service()

	s.SettleAuction(context.Background(), auctionEndingIn("a1", 0))
	second := s.SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	assert.True(t, second.AlreadySettled)
	assert.Len(t, f.notifier.sortedBidders(), 3)
	assert.Len(t, f.publisher.events, 1)
}

func TestSettleAuctionGuardErrorFailsOpen(t *testing.T) {
	f := newSettlementFixture()
	f.guard.err = errors.New("redis down")
	f.publisher.err = errors.New("redis down")

	report := f.service().SettleAuction(context.Background(), auctionEndingIn("a1", 0))

	assert.False(t, report.AlreadySettled)
	assert.Equal(t, 3, report.BiddersNotified)
	assert.Equal(t, 2, report.WinnersNotified)
}

func TestSettleAuctionWithoutGuardOrPublisher(t *testing.T) {
	f := newSettlementFixture()
	s := NewSettlementService(f.auctions, f.bids, f.notifier, nil, nil, 0, clock.NewManual(epoch), logger.NewNop())

	report := s.SettleAuction(context.Background(), auctionEndingIn("a1", 0))
	assert.Equal(t, 2, report.WinnersNotified)
}

func TestScheduledSettlementEndToEnd(t *testing.T) {
	f := newSettlementFixture()
	clk := clock.NewManual(epoch)
	settlement := NewSettlementService(f.auctions, f.bids, f.notifier, f.guard, f.publisher, 4, clk, logger.NewNop())
	scheduler := NewSettlementScheduler(clk, &fakeSchedulerRepo{}, settlement.Settle, nil, logger.NewNop())

	require.NoError(t, scheduler.Arm(context.Background(), auctionEndingIn("a1", 3*OneDay+time.Minute)))

	clk.Advance(3 * OneDay)
	assert.Empty(t, f.publisher.events)

	clk.Advance(time.Minute)
	require.Len(t, f.publisher.events, 1)
	assert.Len(t, f.notifier.winners, 2)
}
