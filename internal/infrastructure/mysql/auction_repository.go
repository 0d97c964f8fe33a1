package mysql

import (
	"auction-settlement/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

type MySQLAuctionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db, now: time.Now}
}

func (r *MySQLAuctionRepository) LoadAllAuctionsWithTrueEnd(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, region, start_time, end_time, true_end
        FROM auctions ORDER BY true_end ASC, id ASC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		var auction domain.Auction
		err := rows.Scan(&auction.ID, &auction.Region, &auction.StartTime,
			&auction.EndTime, &auction.TrueEnd)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, &auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachSlots(ctx, auctions); err != nil {
		return nil, err
	}
	return auctions, nil
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `
        SELECT id, region, start_time, end_time, true_end
        FROM auctions WHERE id = ?
    `

	var auction domain.Auction
	err := r.db.QueryRowContext(ctx, query, auctionID).Scan(
		&auction.ID, &auction.Region, &auction.StartTime, &auction.EndTime, &auction.TrueEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	if err := r.attachSlots(ctx, []*domain.Auction{&auction}); err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *MySQLAuctionRepository) attachSlots(ctx context.Context, auctions []*domain.Auction) error {
	if len(auctions) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Auction, len(auctions))
	for _, a := range auctions {
		byID[a.ID] = a
	}

	query := `SELECT id, auction_id, position FROM auction_slots ORDER BY auction_id ASC, position ASC`
	args := []interface{}{}
	if len(auctions) == 1 {
		query = `SELECT id, auction_id, position FROM auction_slots WHERE auction_id = ? ORDER BY position ASC`
		args = append(args, auctions[0].ID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot domain.Slot
		if err := rows.Scan(&slot.ID, &slot.AuctionID, &slot.Position); err != nil {
			return fmt.Errorf("scan slot: %w", err)
		}
		if a, ok := byID[slot.AuctionID]; ok {
			a.Slots = append(a.Slots, slot)
		}
	}
	return rows.Err()
}

// GetAuctionWithResolvedSlotWinners assigns the auction's slots, in position
// order, to its highest non-seed bids. Equal prices go to the earlier bid.
func (r *MySQLAuctionRepository) GetAuctionWithResolvedSlotWinners(ctx context.Context, auction *domain.Auction) (*domain.AuctionWithWinners, error) {
	result := &domain.AuctionWithWinners{Auction: auction, BidsPerSlot: []domain.WinningBid{}}
	if len(auction.Slots) == 0 {
		return result, nil
	}

	slots := make([]domain.Slot, len(auction.Slots))
	copy(slots, auction.Slots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Position < slots[j].Position })

	query := `
        SELECT b.id, b.auction_id, b.price, b.created_at,
               b.username, COALESCE(u.display_name, ''), COALESCE(u.email, '')
        FROM bids b
        LEFT JOIN users u ON u.username = b.username
        WHERE b.auction_id = ?
          AND b.id <> (
              SELECT s.id FROM bids s WHERE s.auction_id = ?
              ORDER BY s.created_at ASC, s.id ASC LIMIT 1
          )
        ORDER BY b.price DESC, b.created_at ASC, b.id ASC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, auction.ID, auction.ID, len(slots))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids, err := scanBids(rows)
	if err != nil {
		return nil, err
	}

	for i, bid := range bids {
		position := slots[i].Position
		bid.Slot = &position
		result.BidsPerSlot = append(result.BidsPerSlot, *bid)
	}
	return result, nil
}

func (r *MySQLAuctionRepository) GetAuctionsPartitionedByTime(ctx context.Context) (*domain.TimeRelativeAuctions, error) {
	auctions, err := r.LoadAllAuctionsWithTrueEnd(ctx)
	if err != nil {
		return nil, err
	}
	return domain.PartitionByTime(auctions, r.now()), nil
}
