package mysql

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/utils"
	"context"
	"database/sql"
	"time"
)

type MySQLReceiptRepository struct {
	db *sql.DB
}

func NewMySQLReceiptRepository(db *sql.DB) *MySQLReceiptRepository {
	return &MySQLReceiptRepository{db: db}
}

// CreateReceipt inserts the receipt and returns its generated identifier.
func (r *MySQLReceiptRepository) CreateReceipt(ctx context.Context, receipt *domain.Receipt) (string, error) {
	id := utils.GenerateID("rcpt")
	now := time.Now().UTC()

	query := `
        INSERT INTO receipts (id, auction_id, username, invoice_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		id, receipt.AuctionID, receipt.Username, receipt.InvoiceID, now, now)
	if err != nil {
		return "", err
	}

	receipt.ID = id
	receipt.CreatedAt = now
	receipt.UpdatedAt = now
	return id, nil
}

func (r *MySQLReceiptRepository) UpdateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	now := time.Now().UTC()
	query := `UPDATE receipts SET invoice_id = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, receipt.InvoiceID, now, receipt.ID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrReceiptNotFound
	}
	receipt.UpdatedAt = now
	return nil
}
