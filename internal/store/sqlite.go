// ABOUTME: SQLite persistence for scan and speed test results using modernc.org/sqlite
// ABOUTME: One unified network_results table keyed by BSSID with upsert semantics

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists scan and speed test results in a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the results database at the given path.
// Parent directories are created if needed and the schema is applied
// on open.
func New(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps readers (export) from blocking the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("results store opened", "path", path)
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS network_results (
			bssid         TEXT PRIMARY KEY,
			ssid          TEXT NOT NULL DEFAULT '',
			frequency     REAL NOT NULL DEFAULT 0,
			band          TEXT NOT NULL DEFAULT '',
			signal        REAL NOT NULL DEFAULT 0,
			channel       INTEGER NOT NULL DEFAULT 0,
			security      TEXT NOT NULL DEFAULT '',
			tool          TEXT NOT NULL DEFAULT '',
			download_mbps REAL NOT NULL DEFAULT 0,
			upload_mbps   REAL NOT NULL DEFAULT 0,
			ping_ms       REAL NOT NULL DEFAULT 0,
			jitter_ms     REAL NOT NULL DEFAULT 0,
			packet_loss   REAL NOT NULL DEFAULT 0,
			server        TEXT NOT NULL DEFAULT '',
			isp           TEXT NOT NULL DEFAULT '',
			result_url    TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_network_results_ssid
			ON network_results(ssid);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertScan inserts or refreshes the row for one scanned access point.
// Scan columns are overwritten; measurement columns from an earlier
// speed test on the same BSSID are left intact. The write timestamp is
// taken in UTC here, never from the caller.
func (s *Store) UpsertScan(ctx context.Context, rec *NetworkRecord) error {
	query := `
		INSERT INTO network_results
			(bssid, ssid, frequency, band, signal, channel, security, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bssid) DO UPDATE SET
			ssid       = excluded.ssid,
			frequency  = excluded.frequency,
			band       = excluded.band,
			signal     = excluded.signal,
			channel    = excluded.channel,
			security   = excluded.security,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.BSSID,
		rec.SSID,
		rec.Frequency,
		rec.Band,
		rec.Signal,
		rec.Channel,
		rec.Security,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting scan result: %w", err)
	}

	s.logger.Debug("saved scan result", "bssid", rec.BSSID, "ssid", rec.SSID)
	return nil
}

// UpsertScans saves a batch of scan results and returns the number of
// rows written.
func (s *Store) UpsertScans(ctx context.Context, recs []NetworkRecord) (int, error) {
	for i := range recs {
		if err := s.UpsertScan(ctx, &recs[i]); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

// UpsertSpeedTest inserts or refreshes the measurement columns for one
// BSSID. If the AP was never scanned the row is created from the
// record's SSID alone.
func (s *Store) UpsertSpeedTest(ctx context.Context, rec *SpeedTestRecord) error {
	query := `
		INSERT INTO network_results
			(bssid, ssid, tool, download_mbps, upload_mbps, ping_ms, jitter_ms,
			 packet_loss, server, isp, result_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bssid) DO UPDATE SET
			tool          = excluded.tool,
			download_mbps = excluded.download_mbps,
			upload_mbps   = excluded.upload_mbps,
			ping_ms       = excluded.ping_ms,
			jitter_ms     = excluded.jitter_ms,
			packet_loss   = excluded.packet_loss,
			server        = excluded.server,
			isp           = excluded.isp,
			result_url    = excluded.result_url,
			created_at    = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.BSSID,
		rec.SSID,
		rec.Tool,
		rec.DownloadMbps,
		rec.UploadMbps,
		rec.PingMs,
		rec.JitterMs,
		rec.PacketLoss,
		rec.Server,
		rec.ISP,
		rec.ResultURL,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting speedtest result: %w", err)
	}

	s.logger.Debug("saved speedtest result", "bssid", rec.BSSID, "tool", rec.Tool)
	return nil
}

// QueryAll returns every stored row ordered strongest signal first,
// then by BSSID for a stable export order.
func (s *Store) QueryAll(ctx context.Context) ([]ResultRow, error) {
	query := `
		SELECT bssid, ssid, frequency, band, signal, channel, security,
		       tool, download_mbps, upload_mbps, ping_ms, jitter_ms,
		       packet_loss, server, isp, result_url, created_at
		FROM network_results
		ORDER BY signal DESC, bssid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []ResultRow
	for rows.Next() {
		var r ResultRow
		var createdAt string

		if err := rows.Scan(
			&r.BSSID, &r.SSID, &r.Frequency, &r.Band, &r.Signal, &r.Channel,
			&r.Security, &r.Tool, &r.DownloadMbps, &r.UploadMbps, &r.PingMs,
			&r.JitterMs, &r.PacketLoss, &r.Server, &r.ISP, &r.ResultURL,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}

		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}

	return results, nil
}

// Get returns the row for one BSSID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, bssid string) (*ResultRow, error) {
	query := `
		SELECT bssid, ssid, frequency, band, signal, channel, security,
		       tool, download_mbps, upload_mbps, ping_ms, jitter_ms,
		       packet_loss, server, isp, result_url, created_at
		FROM network_results
		WHERE bssid = ?
	`

	var r ResultRow
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, bssid).Scan(
		&r.BSSID, &r.SSID, &r.Frequency, &r.Band, &r.Signal, &r.Channel,
		&r.Security, &r.Tool, &r.DownloadMbps, &r.UploadMbps, &r.PingMs,
		&r.JitterMs, &r.PacketLoss, &r.Server, &r.ISP, &r.ResultURL,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying result: %w", err)
	}

	r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &r, nil
}
