package mysql

import (
	"context"
	"strings"
	"testing"

	"auction-settlement/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptCreateThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMySQLReceiptRepository(db)
	ctx := context.Background()

	receipt := &domain.Receipt{AuctionID: "a1", Username: "alice"}
	id, err := repo.CreateReceipt(ctx, receipt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "rcpt_"))
	assert.Equal(t, id, receipt.ID)

	receipt.InvoiceID = "inv-42"
	require.NoError(t, repo.UpdateReceipt(ctx, receipt))

	var invoiceID, username string
	err = db.QueryRow(`SELECT invoice_id, username FROM receipts WHERE id = ?`, id).Scan(&invoiceID, &username)
	require.NoError(t, err)
	assert.Equal(t, "inv-42", invoiceID)
	assert.Equal(t, "alice", username)
}

func TestUpdateReceiptMissing(t *testing.T) {
	repo := NewMySQLReceiptRepository(setupTestDB(t))

	err := repo.UpdateReceipt(context.Background(), &domain.Receipt{ID: "rcpt_missing", InvoiceID: "inv"})
	assert.ErrorIs(t, err, domain.ErrReceiptNotFound)
}
