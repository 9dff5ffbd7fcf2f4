// Package statstore persists route discovery statistics in a local sqlite
// database so repeated runs can report aggregate hit rates per router.
package statstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// RequestRecord captures the outcome of a single route discovery request.
type RequestRecord struct {
	ChainID   uint64
	TokenIn   string
	TokenOut  string
	Router    string
	Success   bool
	LatencyMS int64
	NetUSD    string
	CreatedAt time.Time
}

// RouterStats aggregates outcomes for one router.
type RouterStats struct {
	Router    string
	Requests  int64
	Successes int64
}

// Summary aggregates outcomes over all recorded requests for a chain.
type Summary struct {
	ChainID      uint64
	Requests     int64
	Successes    int64
	AvgLatencyMS float64
	Routers      []RouterStats
}

// Store is a sqlite-backed stats store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the stats database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create stats directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS route_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chain_id INTEGER NOT NULL,
			token_in TEXT NOT NULL,
			token_out TEXT NOT NULL,
			router TEXT NOT NULL,
			success INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			net_usd TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_route_requests_chain_created ON route_requests(chain_id, created_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init stats schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a request outcome.
func (s *Store) Record(ctx context.Context, rec RequestRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	success := 0
	if rec.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_requests (chain_id, token_in, token_out, router, success, latency_ms, net_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ChainID, rec.TokenIn, rec.TokenOut, rec.Router, success, rec.LatencyMS, rec.NetUSD, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("record route request: %w", err)
	}
	return nil
}

// Summarize aggregates all recorded requests for a chain.
func (s *Store) Summarize(ctx context.Context, chainID uint64) (Summary, error) {
	summary := Summary{ChainID: chainID}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(latency_ms), 0)
		FROM route_requests WHERE chain_id = ?
	`, chainID)
	if err := row.Scan(&summary.Requests, &summary.Successes, &summary.AvgLatencyMS); err != nil {
		return Summary{}, fmt.Errorf("summarize route requests: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT router, COUNT(*), COALESCE(SUM(success), 0)
		FROM route_requests WHERE chain_id = ?
		GROUP BY router ORDER BY COUNT(*) DESC
	`, chainID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize routers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rs RouterStats
		if err := rows.Scan(&rs.Router, &rs.Requests, &rs.Successes); err != nil {
			return Summary{}, fmt.Errorf("scan router stats: %w", err)
		}
		summary.Routers = append(summary.Routers, rs)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate router stats: %w", err)
	}

	return summary, nil
}

// Recent returns the most recent request records across all chains.
func (s *Store) Recent(ctx context.Context, limit int) ([]RequestRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chain_id, token_in, token_out, router, success, latency_ms, net_usd, created_at
		FROM route_requests ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list route requests: %w", err)
	}
	defer rows.Close()

	records := make([]RequestRecord, 0, limit)
	for rows.Next() {
		var (
			rec     RequestRecord
			success int
			created int64
		)
		if err := rows.Scan(&rec.ChainID, &rec.TokenIn, &rec.TokenOut, &rec.Router, &success, &rec.LatencyMS, &rec.NetUSD, &created); err != nil {
			return nil, fmt.Errorf("scan route request: %w", err)
		}
		rec.Success = success == 1
		rec.CreatedAt = time.Unix(created, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route requests: %w", err)
	}

	return records, nil
}
