// Package notify delivers finished reports over WhatsApp and other channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"stocksignal/internal/config"
	"stocksignal/internal/models"
)

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Recipient string
	ImagePath string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationReport NotificationType = "report"
	NotificationError  NotificationType = "error"
	NotificationInfo   NotificationType = "info"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a notifier with the given channels plus the
// webhook channel when configured.
func NewMultiNotifier(cfg config.NotificationConfig, channels ...NotificationChannel) *MultiNotifier {
	mn := &MultiNotifier{channels: channels}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Send sends a notification to all enabled channels. The returned error
// joins every channel failure so callers can match sentinel errors.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []error
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SendReport delivers a finished report to recipient.
func (mn *MultiNotifier) SendReport(ctx context.Context, r *models.Report, recipient string) error {
	data := map[string]interface{}{
		"ticker": r.Ticker,
		"score":  r.Score(),
	}
	if r.Technical != nil {
		data["verdict"] = r.Technical.Verdict
		data["price"] = r.Technical.Price
	}
	if r.Council != nil && r.Council.CIO != nil {
		data["action"] = r.Council.CIO.RecommendedAction
	}

	return mn.Send(ctx, Notification{
		Type:      NotificationReport,
		Title:     fmt.Sprintf("StockSignal: %s", r.Ticker),
		Message:   r.Message,
		Recipient: recipient,
		ImagePath: r.ChartPath,
		Data:      data,
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "Analysis failed",
		Message: fmt.Sprintf("Context: %s\nError: %v\nTime: %s", errContext, err, time.Now().Format("15:04:05")),
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// WhatsAppChannel sends reports through the bridge. Without a recipient the
// message is written to the console channel instead.
type WhatsAppChannel struct {
	client   *WhatsAppClient
	fallback *ConsoleChannel
}

// NewWhatsAppChannel creates the WhatsApp channel.
func NewWhatsAppChannel(client *WhatsAppClient, fallback *ConsoleChannel) *WhatsAppChannel {
	return &WhatsAppChannel{client: client, fallback: fallback}
}

// Name returns the name of the notifier.
func (w *WhatsAppChannel) Name() string {
	return "whatsapp"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WhatsAppChannel) IsEnabled() bool {
	return w.client != nil
}

// Send delivers reports; other notification types are not sent to chats.
func (w *WhatsAppChannel) Send(ctx context.Context, n Notification) error {
	if n.Type != NotificationReport {
		return nil
	}
	if n.Recipient == "" {
		if w.fallback != nil {
			return w.fallback.Send(ctx, n)
		}
		return nil
	}
	return w.client.Send(ctx, n.Recipient, n.Message, n.ImagePath)
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StockSignal/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
