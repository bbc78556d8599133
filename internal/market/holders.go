package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/resilience"
)

// Holder labels used in reports.
const (
	HolderNA          = "N/A"
	HolderUnavailable = "Data Tidak Tersedia"
)

const defaultHoldersURL = "https://finance.yahoo.com/quote/%s/holders"

// HolderSource scrapes the institutional holders table from Yahoo.
type HolderSource struct {
	urlFormat string
	client    *http.Client
	breaker   *resilience.Breaker
	logger    zerolog.Logger
}

// NewHolderSource creates a scraper. urlFormat takes the symbol as its only
// verb; empty uses the Yahoo holders page.
func NewHolderSource(urlFormat string, breaker *resilience.Breaker, logger zerolog.Logger) *HolderSource {
	if urlFormat == "" {
		urlFormat = defaultHoldersURL
	}
	return &HolderSource{
		urlFormat: urlFormat,
		client:    &http.Client{Timeout: 10 * time.Second},
		breaker:   breaker,
		logger:    logger.With().Str("component", "holders").Logger(),
	}
}

// TopInstitutionalHolder returns "Name (Inst)" for the largest holder,
// HolderNA when the table is empty and HolderUnavailable on failure.
func (h *HolderSource) TopInstitutionalHolder(ctx context.Context, symbol string) string {
	name, err := resilience.DoWithResult(ctx, h.breaker, func(ctx context.Context) (string, error) {
		return h.scrape(ctx, symbol)
	})
	if err != nil {
		h.logger.Debug().Err(err).Str("symbol", symbol).Msg("Holder lookup failed")
		return HolderUnavailable
	}
	if name == "" {
		return HolderNA
	}
	return name + " (Inst)"
}

func (h *HolderSource) scrape(ctx context.Context, symbol string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(h.urlFormat, symbol), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) stocksignal")
	req.Header.Set("Accept", "text/html")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewDataError("holders", symbol, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", apperrors.NewDataError("holders", symbol, "parsing html", err)
	}
	return FirstHolder(doc), nil
}

// FirstHolder returns the first row of the first table whose header names
// a holder column.
func FirstHolder(doc *goquery.Document) string {
	var holder string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := strings.ToLower(table.Find("thead").Text())
		if !strings.Contains(header, "holder") {
			return true
		}
		table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			holder = strings.TrimSpace(row.Find("td").First().Text())
			return holder == ""
		})
		return holder == ""
	})
	return holder
}
