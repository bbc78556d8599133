// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"strings"
	"time"

	"stocksignal/internal/models"
)

// DefaultCacheValidity is how long a finished analysis is reused.
const DefaultCacheValidity = 120 * time.Minute

// ReportCache stores finished analyses.
type ReportCache interface {
	// GetCachedAnalysis returns the newest report younger than validFor or
	// errors.ErrCacheMiss.
	GetCachedAnalysis(ctx context.Context, ticker string, validFor time.Duration) (*models.Report, error)
	SaveAnalysis(ctx context.Context, report *models.Report) error
	Close() error
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	ReportCache

	// Favorites
	AddFavorite(ctx context.Context, ticker string) error
	RemoveFavorite(ctx context.Context, ticker string) error
	ListFavorites(ctx context.Context) ([]string, error)
	IsFavorite(ctx context.Context, ticker string) (bool, error)

	// History
	AddHistory(ctx context.Context, ticker string) error
	ListHistory(ctx context.Context, limit int) ([]string, error)

	// Portfolio
	UpsertPortfolio(ctx context.Context, entry models.PortfolioEntry) error
	DeletePortfolio(ctx context.Context, ticker string) (bool, error)
	ListPortfolio(ctx context.Context) ([]models.PortfolioEntry, error)

	Ping(ctx context.Context) error
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
