// Package archive queries the read-only Mina archive database (blocks,
// user_commands, public_keys) that backs every proposal's raw vote
// transactions.
package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ocvd/internal/vote"
)

// QueryObserver optionally records per-query timing; nil disables it.
type QueryObserver interface {
	ObserveArchiveQuery(query string, d time.Duration)
}

// Client is a read-only handle onto the archive database.
type Client struct {
	db       *gorm.DB
	Observer QueryObserver
}

// Open connects to dsn with a bounded connection pool.
func Open(ctx context.Context, dsn string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("archive: unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) observe(query string, start time.Time) {
	if c.Observer != nil {
		c.Observer.ObserveArchiveQuery(query, time.Since(start))
	}
}

// FetchChainTip returns the maximum known block height.
func (c *Client) FetchChainTip(ctx context.Context) (int64, error) {
	start := time.Now()
	defer c.observe("chain_tip", start)

	var max int64
	err := c.db.WithContext(ctx).Raw(`SELECT MAX(height) FROM blocks`).Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("archive: fetch chain tip: %w", err)
	}
	return max, nil
}

// FetchLatestSlot returns the maximum known global slot.
func (c *Client) FetchLatestSlot(ctx context.Context) (int64, error) {
	start := time.Now()
	defer c.observe("latest_slot", start)

	var max int64
	err := c.db.WithContext(ctx).Raw(`SELECT MAX(global_slot) FROM blocks`).Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("archive: fetch latest slot: %w", err)
	}
	return max, nil
}

// row mirrors one result row of fetchTransactionsSQL.
type row struct {
	Account   string
	Hash      string
	Memo      string
	Height    int64
	Status    string
	Timestamp int64
	Nonce     int64
}

const fetchTransactionsSQL = `
SELECT DISTINCT pk.value as account, uc.memo as memo, uc.nonce as nonce, uc.hash as hash,
  b.height as height, b.chain_status as status, b.timestamp::bigint as timestamp
FROM user_commands AS uc
JOIN blocks_user_commands AS buc ON uc.id = buc.user_command_id
JOIN blocks AS b ON buc.block_id = b.id
JOIN public_keys AS pk ON uc.source_id = pk.id
WHERE uc.command_type = 'payment'
AND uc.source_id = uc.receiver_id
AND NOT b.chain_status = 'orphaned'
AND buc.status = 'applied'
AND b.timestamp::bigint BETWEEN ? AND ?
`

// FetchTransactions returns every applied self-payment transaction whose
// containing block falls within [startTime, endTime], inclusive.
func (c *Client) FetchTransactions(ctx context.Context, startTime, endTime int64) ([]vote.Transaction, error) {
	start := time.Now()
	defer c.observe("transactions", start)

	var rows []row
	err := c.db.WithContext(ctx).Raw(fetchTransactionsSQL, startTime, endTime).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("archive: fetch transactions: %w", err)
	}

	out := make([]vote.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, vote.Transaction{
			Account:   r.Account,
			Hash:      r.Hash,
			Memo:      r.Memo,
			Height:    r.Height,
			Nonce:     r.Nonce,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}
