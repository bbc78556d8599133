package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/resilience"
)

// DefaultBridgeURL is where the WhatsApp bridge listens by default.
const DefaultBridgeURL = "http://localhost:3000"

// BridgeHealth is the body of GET /health.
type BridgeHealth struct {
	Status        string `json:"status"`
	WhatsAppReady bool   `json:"whatsapp_ready"`
}

// QRCode is the body of GET /qr.
type QRCode struct {
	QR     string `json:"qr"`
	Status string `json:"status,omitempty"`
}

// Group is one WhatsApp group the linked account belongs to.
type Group struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// WhatsAppClient talks to the local WhatsApp bridge.
type WhatsAppClient struct {
	baseURL string
	client  *http.Client
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewWhatsAppClient creates a bridge client.
func NewWhatsAppClient(baseURL string, timeout time.Duration, breaker *resilience.Breaker, logger zerolog.Logger) *WhatsAppClient {
	if baseURL == "" {
		baseURL = DefaultBridgeURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WhatsAppClient{
		baseURL: strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/send"),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger.With().Str("component", "whatsapp").Logger(),
	}
}

// BaseURL returns the bridge root URL.
func (w *WhatsAppClient) BaseURL() string {
	return w.baseURL
}

type sendPayload struct {
	Number    string `json:"number"`
	Message   string `json:"message"`
	ImagePath string `json:"image_path,omitempty"`
}

// Send posts a message, with an optional local image, to number. number is
// a phone in international format or a group id ending in @g.us.
func (w *WhatsAppClient) Send(ctx context.Context, number, message, imagePath string) error {
	if strings.TrimSpace(number) == "" {
		return apperrors.NewValidationError("number", number, "recipient is required")
	}
	body, err := json.Marshal(sendPayload{Number: number, Message: message, ImagePath: imagePath})
	if err != nil {
		return fmt.Errorf("marshaling send payload: %w", err)
	}

	return w.breaker.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		_, err := w.do(ctx, http.MethodPost, "/send", body)
		logging.LogAPICall(w.logger, http.MethodPost, "/send", time.Since(start), err)
		return err
	})
}

// Health returns the bridge status. A bridge that does not answer wraps
// ErrBridgeUnavailable.
func (w *WhatsAppClient) Health(ctx context.Context) (*BridgeHealth, error) {
	data, err := w.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var h BridgeHealth
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decoding health: %w", err)
	}
	return &h, nil
}

// QR returns the pairing QR code string.
func (w *WhatsAppClient) QR(ctx context.Context) (*QRCode, error) {
	data, err := w.do(ctx, http.MethodGet, "/qr", nil)
	if err != nil {
		return nil, err
	}
	var qr QRCode
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("decoding qr: %w", err)
	}
	return &qr, nil
}

// Groups lists the groups of the linked account.
func (w *WhatsAppClient) Groups(ctx context.Context) ([]Group, error) {
	data, err := w.do(ctx, http.MethodGet, "/groups", nil)
	if err != nil {
		return nil, err
	}
	groups := []Group{}
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("decoding groups: %w", err)
	}
	return groups, nil
}

func (w *WhatsAppClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("creating bridge request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading bridge response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewBridgeError(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
