package mysql

import (
	"context"
	"database/sql"

	"auction-settlement/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) GetBidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `
        SELECT b.id, b.auction_id, b.price, b.created_at,
               b.username, COALESCE(u.display_name, ''), COALESCE(u.email, '')
        FROM bids b
        LEFT JOIN users u ON u.username = b.username
        WHERE b.auction_id = ?
        ORDER BY b.created_at ASC, b.id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBids(rows)
}

func scanBids(rows *sql.Rows) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.Price, &bid.CreatedAt,
			&bid.User.Username, &bid.User.DisplayName, &bid.User.Email)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}
