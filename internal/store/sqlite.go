package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Finished analyses, newest row wins
	CREATE TABLE IF NOT EXISTS analysis_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		ta_data TEXT,
		ai_analysis TEXT,
		full_message TEXT
	);

	CREATE TABLE IF NOT EXISTS favorites (
		ticker TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS portfolio (
		ticker TEXT PRIMARY KEY,
		avg_price REAL NOT NULL,
		lots INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_ticker_ts ON analysis_cache(ticker, timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_ticker ON history(ticker);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// ============================================================================
// Analysis Cache Methods
// ============================================================================

// GetCachedAnalysis returns the newest report for ticker saved within validFor.
func (s *SQLiteStore) GetCachedAnalysis(ctx context.Context, ticker string, validFor time.Duration) (*models.Report, error) {
	if validFor <= 0 {
		validFor = DefaultCacheValidity
	}
	cutoff := s.now().Add(-validFor)

	var (
		id         int64
		ts         time.Time
		taData     sql.NullString
		aiAnalysis sql.NullString
		message    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, ta_data, ai_analysis, full_message
		FROM analysis_cache
		WHERE ticker = ? AND timestamp > ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, key(ticker), cutoff).Scan(&id, &ts, &taData, &aiAnalysis, &message)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	report := &models.Report{}
	if taData.Valid && taData.String != "" {
		if err := json.Unmarshal([]byte(taData.String), report); err != nil {
			return nil, fmt.Errorf("failed to decode cached analysis %d: %w", id, err)
		}
	}
	report.Ticker = key(ticker)
	report.CreatedAt = ts
	report.AIAnalysis = aiAnalysis.String
	report.Message = message.String
	report.FromCache = true
	return report, nil
}

// SaveAnalysis saves a new analysis result.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	ts := report.CreatedAt
	if ts.IsZero() {
		ts = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (ticker, timestamp, ta_data, ai_analysis, full_message)
		VALUES (?, ?, ?, ?, ?)
	`, key(report.Ticker), ts.UTC(), string(data), report.AIAnalysis, report.Message)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// ============================================================================
// Favorites Methods
// ============================================================================

// AddFavorite adds a ticker to favorites; duplicates are ignored.
func (s *SQLiteStore) AddFavorite(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO favorites (ticker) VALUES (?)", key(ticker))
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite removes a ticker from favorites.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE ticker = ?", key(ticker))
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns favorites in ticker order.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]string, error) {
	return s.queryTickers(ctx, "SELECT ticker FROM favorites ORDER BY ticker")
}

// IsFavorite reports whether ticker is a favorite.
func (s *SQLiteStore) IsFavorite(ctx context.Context, ticker string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM favorites WHERE ticker = ?", key(ticker)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query favorite: %w", err)
	}
	return true, nil
}

// ============================================================================
// History Methods
// ============================================================================

// AddHistory records a searched ticker.
func (s *SQLiteStore) AddHistory(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO history (ticker, timestamp) VALUES (?, ?)", key(ticker), s.now())
	if err != nil {
		return fmt.Errorf("failed to add history: %w", err)
	}
	return nil
}

// ListHistory returns distinct tickers, most recently searched first.
func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryTickers(ctx, `
		SELECT ticker FROM history
		GROUP BY ticker
		ORDER BY MAX(id) DESC
		LIMIT ?
	`, limit)
}

func (s *SQLiteStore) queryTickers(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	tickers := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}
	return tickers, nil
}

// ============================================================================
// Portfolio Methods
// ============================================================================

// UpsertPortfolio inserts or replaces a holding.
func (s *SQLiteStore) UpsertPortfolio(ctx context.Context, entry models.PortfolioEntry) error {
	if entry.Lots <= 0 {
		return apperrors.NewValidationError("lots", entry.Lots, "must be positive")
	}
	if entry.AvgPrice <= 0 {
		return apperrors.NewValidationError("avg_price", entry.AvgPrice, "must be positive")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio (ticker, avg_price, lots, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			avg_price = excluded.avg_price,
			lots = excluded.lots,
			updated_at = excluded.updated_at
	`, key(entry.Ticker), entry.AvgPrice, entry.Lots, s.now())
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio: %w", err)
	}
	return nil
}

// DeletePortfolio removes a holding and reports whether it existed.
func (s *SQLiteStore) DeletePortfolio(ctx context.Context, ticker string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM portfolio WHERE ticker = ?", key(ticker))
	if err != nil {
		return false, fmt.Errorf("failed to delete portfolio: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return n > 0, nil
}

// ListPortfolio returns all holdings in ticker order.
func (s *SQLiteStore) ListPortfolio(ctx context.Context) ([]models.PortfolioEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ticker, avg_price, lots, updated_at FROM portfolio ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	defer rows.Close()

	entries := []models.PortfolioEntry{}
	for rows.Next() {
		var e models.PortfolioEntry
		if err := rows.Scan(&e.Ticker, &e.AvgPrice, &e.Lots, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio: %w", err)
	}
	return entries, nil
}
