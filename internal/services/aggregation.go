package services

import (
	"auction-settlement/internal/domain"
)

// GenerateBidders reduces an auction's bid history to one summary per
// bidder. bids[0] is the seed bid and is ignored. The first bid seen for a
// user supplies the stored identity.
func GenerateBidders(bids []*domain.Bid) map[string]*domain.BidderSummary {
	bidders := make(map[string]*domain.BidderSummary)
	if len(bids) <= 1 {
		return bidders
	}
	for _, bid := range bids[1:] {
		if _, seen := bidders[bid.User.Username]; seen {
			continue
		}
		bidders[bid.User.Username] = &domain.BidderSummary{User: bid.User}
	}
	return bidders
}

// GenerateWinners totals the slots each user won and what they owe. The
// running payment is rounded to cents after every addition.
func GenerateWinners(bidsPerSlot []domain.WinningBid) map[string]*domain.WinnerSummary {
	winners := make(map[string]*domain.WinnerSummary)
	for _, bid := range bidsPerSlot {
		winner, ok := winners[bid.User.Username]
		if !ok {
			winners[bid.User.Username] = &domain.WinnerSummary{
				User:    bid.User,
				Payment: bid.Price,
				Slots:   1,
			}
			continue
		}
		winner.Payment = winner.Payment.Add(bid.Price).Round(2)
		winner.Slots++
	}
	return winners
}
