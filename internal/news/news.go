// Package news gathers recent headlines for a ticker from GoAPI with a
// Serper search fallback.
package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/market"
	"stocksignal/internal/models"
)

// MsgMissingKey is shown when no search key is configured.
const MsgMissingKey = "⚠️ Pencarian Berita Dilewati: SERPER_API_KEY belum dikonfigurasi di .env."

// Provider is a headline source keyed by ticker.
type Provider interface {
	News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error)
}

// Result is the formatted news block plus the items behind it.
type Result struct {
	Text   string
	Items  []models.NewsItem
	Source string
}

// HasItems reports whether any headline was found.
func (r Result) HasItems() bool {
	return len(r.Items) > 0
}

// Fetcher tries the primary provider and falls back to Serper.
type Fetcher struct {
	primary  Provider
	serper   *SerperClient
	maxItems int
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher. primary may be nil.
func NewFetcher(primary Provider, serper *SerperClient, maxItems int, logger zerolog.Logger) *Fetcher {
	if maxItems <= 0 {
		maxItems = 5
	}
	return &Fetcher{
		primary:  primary,
		serper:   serper,
		maxItems: maxItems,
		logger:   logger.With().Str("component", "news").Logger(),
	}
}

// Fetch never fails; problems are reported in Result.Text.
func (f *Fetcher) Fetch(ctx context.Context, ticker string) Result {
	clean := models.BaseTicker(ticker)

	if f.primary != nil {
		items, err := f.primary.News(ctx, ticker, f.maxItems)
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("ticker", clean).Msg("GoAPI news failed, falling back to Serper")
		case len(items) > 0:
			f.logger.Debug().Str("ticker", clean).Int("items", len(items)).Msg("News from GoAPI")
			return Result{Text: FormatHeadlines(items), Items: items, Source: "goapi"}
		}
	}

	if !f.serper.Configured() {
		return Result{Text: MsgMissingKey}
	}

	hits, err := f.serper.Search(ctx, Query(ticker))
	if err != nil {
		return Result{Text: fmt.Sprintf("Gagal mengambil berita setelah %d kali percobaan: %v", f.serper.Attempts(), err)}
	}

	items := Relevant(hits, clean, f.maxItems)
	if len(items) == 0 {
		return Result{Text: NoNewsMessage(clean), Source: "serper"}
	}
	return Result{Text: FormatSnippets(items), Items: items, Source: "serper"}
}

// Query builds the Serper query. IDX tickers get an exact-match Indonesian
// query; anything else a generic one biased to Indonesia.
func Query(ticker string) string {
	clean := models.BaseTicker(ticker)
	if market.IsIDX(ticker) {
		return fmt.Sprintf(`Saham "%s" IDX Indonesia berita terkini`, clean)
	}
	return fmt.Sprintf(`"%s" stock news Indonesia`, clean)
}

// Relevant keeps hits whose title or snippet mention the ticker.
func Relevant(hits []OrganicResult, ticker string, limit int) []models.NewsItem {
	needle := strings.ToLower(ticker)
	var out []models.NewsItem
	for _, h := range hits {
		title := CleanText(h.Title)
		snippet := CleanText(h.Snippet)
		if title == "" {
			title = "No Title"
		}
		if snippet == "" {
			snippet = "No Snippet"
		}
		if !strings.Contains(strings.ToLower(title), needle) && !strings.Contains(strings.ToLower(snippet), needle) {
			continue
		}
		link := h.Link
		if link == "" {
			link = "#"
		}
		out = append(out, models.NewsItem{Title: title, URL: link, Snippet: snippet, Date: h.Date, Source: "serper"})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// NoNewsMessage is shown when nothing relevant was published this week.
func NoNewsMessage(ticker string) string {
	return fmt.Sprintf("Tidak ada berita spesifik untuk %s dalam seminggu terakhir.", ticker)
}

// FormatHeadlines renders "- [title](url) date" lines.
func FormatHeadlines(items []models.NewsItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		title, url := it.Title, it.URL
		if title == "" {
			title = "No Title"
		}
		if url == "" {
			url = "#"
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("- [%s](%s) %s", title, url, it.Date)))
	}
	return strings.Join(lines, "\n")
}

// FormatSnippets renders "- [title](link): snippet" lines.
func FormatSnippets(items []models.NewsItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- [%s](%s): %s", it.Title, it.URL, it.Snippet))
	}
	return strings.Join(lines, "\n")
}
