package mysql

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// The repositories only use portable SQL, so they run unchanged against an
// in-memory sqlite database in tests.
const testSchema = `
CREATE TABLE auctions (
  id TEXT PRIMARY KEY,
  region TEXT NOT NULL DEFAULT '',
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  true_end DATETIME NOT NULL
);
CREATE TABLE auction_slots (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  position INTEGER NOT NULL
);
CREATE TABLE users (
  username TEXT PRIMARY KEY,
  display_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT ''
);
CREATE TABLE bids (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  username TEXT NOT NULL,
  price DECIMAL(12,2) NOT NULL,
  created_at DATETIME NOT NULL
);
CREATE TABLE receipts (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  username TEXT NOT NULL,
  invoice_id TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE TABLE scheduled_jobs (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  job_type TEXT NOT NULL,
  run_at DATETIME NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME NOT NULL
);`

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range strings.Split(testSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func insertAuction(t *testing.T, db *sql.DB, id string, start, end, trueEnd time.Time, slots int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO auctions (id, region, start_time, end_time, true_end) VALUES (?, ?, ?, ?, ?)`,
		id, "eu", start, end, trueEnd)
	require.NoError(t, err)
	for i := 1; i <= slots; i++ {
		_, err := db.Exec(`INSERT INTO auction_slots (id, auction_id, position) VALUES (?, ?, ?)`,
			fmt.Sprintf("%s-slot-%d", id, i), id, i)
		require.NoError(t, err)
	}
}

func insertUser(t *testing.T, db *sql.DB, username string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (username, display_name, email) VALUES (?, ?, ?)`,
		username, strings.ToUpper(username), username+"@example.com")
	require.NoError(t, err)
}

func insertBid(t *testing.T, db *sql.DB, id, auctionID, username, price string, at time.Time) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO bids (id, auction_id, username, price, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, auctionID, username, price, at)
	require.NoError(t, err)
}
