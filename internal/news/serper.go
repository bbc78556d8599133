package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/resilience"
	"stocksignal/pkg/utils"
)

// DefaultSerperURL is the Serper Google search endpoint.
const DefaultSerperURL = "https://google.serper.dev/search"

// SerperConfig configures a SerperClient.
type SerperConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	Attempts int
}

// SerperClient searches Google News through Serper.
type SerperClient struct {
	cfg     SerperConfig
	client  *http.Client
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewSerperClient creates a client with a 15s timeout and two
// attempts unless overridden.
func NewSerperClient(cfg SerperConfig, breaker *resilience.Breaker, logger zerolog.Logger) *SerperClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSerperURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	return &SerperClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger.With().Str("component", "serper").Logger(),
	}
}

// Configured reports whether a usable key is set. Template placeholders
// count as unset.
func (s *SerperClient) Configured() bool {
	return s != nil && s.cfg.APIKey != "" && !strings.Contains(s.cfg.APIKey, "your_serper")
}

// Attempts returns the configured attempt count.
func (s *SerperClient) Attempts() int {
	return s.cfg.Attempts
}

type searchRequest struct {
	Q   string `json:"q"`
	TBS string `json:"tbs"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

type searchResponse struct {
	Organic []OrganicResult `json:"organic"`
}

// Search runs a past-week Indonesian search for query.
func (s *SerperClient) Search(ctx context.Context, query string) ([]OrganicResult, error) {
	if !s.Configured() {
		return nil, apperrors.ErrMissingAPIKey
	}

	payload, err := json.Marshal(searchRequest{Q: query, TBS: "qdr:w", Num: 10, GL: "id", HL: "id"})
	if err != nil {
		return nil, err
	}

	retry := utils.RetryConfig{
		MaxAttempts:   s.cfg.Attempts,
		InitialDelay:  time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
		Retryable: func(err error) bool {
			return !apperrors.Is(err, resilience.ErrCircuitOpen)
		},
	}

	return utils.RetryWithResult(ctx, retry, func() ([]OrganicResult, error) {
		return resilience.DoWithResult(ctx, s.breaker, func(ctx context.Context) ([]OrganicResult, error) {
			start := time.Now()
			res, err := s.post(ctx, payload)
			logging.LogAPICall(s.logger, http.MethodPost, s.cfg.Endpoint, time.Since(start), err)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Serper request failed")
			}
			return res, err
		})
	})
}

func (s *SerperClient) post(ctx context.Context, payload []byte) ([]OrganicResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding serper response: %w", err)
	}
	return out.Organic, nil
}

// CleanText strips markup and collapses whitespace in a search snippet.
func CleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
