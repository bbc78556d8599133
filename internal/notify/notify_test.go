package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stocksignal/internal/config"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

type bridgeStub struct {
	ready    bool
	lastSend sendPayload
	sends    int
}

func (b *bridgeStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(BridgeHealth{Status: "online", WhatsAppReady: b.ready})
	})
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qr":"2@abc","status":"waiting"}`))
	})
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		if !b.ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"WhatsApp client not ready"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Saham Club","id":"1203@g.us"}]`))
	})
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !b.ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"WhatsApp client not ready yet"}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&b.lastSend)
		b.sends++
		_, _ = w.Write([]byte(`{"success":true,"status":"Sent"}`))
	})
	return mux
}

func newBridge(t *testing.T, ready bool) (*bridgeStub, *WhatsAppClient) {
	t.Helper()
	stub := &bridgeStub{ready: ready}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return stub, NewWhatsAppClient(srv.URL, 5*time.Second, nil, zerolog.Nop())
}

func TestWhatsAppSend(t *testing.T) {
	stub, client := newBridge(t, true)

	err := client.Send(context.Background(), "628123456789", "*BBCA*", "/tmp/BBCA.JK_chart.png")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if stub.lastSend.Number != "628123456789" || stub.lastSend.Message != "*BBCA*" || stub.lastSend.ImagePath != "/tmp/BBCA.JK_chart.png" {
		t.Errorf("unexpected payload: %+v", stub.lastSend)
	}
}

func TestWhatsAppNotReady(t *testing.T) {
	_, client := newBridge(t, false)

	err := client.Send(context.Background(), "628123456789", "hi", "")
	if !apperrors.Is(err, apperrors.ErrBridgeNotReady) {
		t.Fatalf("expected ErrBridgeNotReady, got %v", err)
	}
	var be *apperrors.BridgeError
	if !apperrors.As(err, &be) || be.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected BridgeError 503, got %v", err)
	}

	if _, err := client.Groups(context.Background()); !apperrors.Is(err, apperrors.ErrBridgeNotReady) {
		t.Errorf("Groups: expected ErrBridgeNotReady, got %v", err)
	}
}

func TestWhatsAppUnavailable(t *testing.T) {
	client := NewWhatsAppClient("http://127.0.0.1:1", time.Second, nil, zerolog.Nop())
	if _, err := client.Health(context.Background()); !apperrors.Is(err, apperrors.ErrBridgeUnavailable) {
		t.Errorf("expected ErrBridgeUnavailable, got %v", err)
	}
}

func TestWhatsAppInfoEndpoints(t *testing.T) {
	_, client := newBridge(t, true)
	ctx := context.Background()

	h, err := client.Health(ctx)
	if err != nil || !h.WhatsAppReady || h.Status != "online" {
		t.Errorf("Health = %+v, %v", h, err)
	}
	qr, err := client.QR(ctx)
	if err != nil || qr.QR != "2@abc" {
		t.Errorf("QR = %+v, %v", qr, err)
	}
	groups, err := client.Groups(ctx)
	if err != nil || len(groups) != 1 || groups[0].ID != "1203@g.us" {
		t.Errorf("Groups = %+v, %v", groups, err)
	}
}

func TestLegacySendURL(t *testing.T) {
	c := NewWhatsAppClient("http://localhost:3000/send", 0, nil, zerolog.Nop())
	if c.BaseURL() != "http://localhost:3000" {
		t.Errorf("BaseURL = %s", c.BaseURL())
	}
}

func TestMultiNotifierReport(t *testing.T) {
	stub, client := newBridge(t, true)

	var hook map[string]interface{}
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&hook)
	}))
	defer hookSrv.Close()

	var console bytes.Buffer
	mn := NewMultiNotifier(
		config.NotificationConfig{Webhook: config.WebhookConfig{Enabled: true, URL: hookSrv.URL}},
		NewWhatsAppChannel(client, NewConsoleChannel(&console)),
	)

	report := &models.Report{
		Ticker:    "BBCA.JK",
		Message:   "*REPORT*",
		ChartPath: "/tmp/chart.png",
		Technical: &models.TechnicalSnapshot{Verdict: "BUY / ACCUMULATE", FinalScore: 66},
	}
	if err := mn.SendReport(context.Background(), report, "628111"); err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if stub.sends != 1 || stub.lastSend.ImagePath != "/tmp/chart.png" {
		t.Errorf("bridge not called correctly: %+v", stub.lastSend)
	}
	if hook["title"] != "StockSignal: BBCA.JK" {
		t.Errorf("webhook payload = %v", hook)
	}
	if console.Len() != 0 {
		t.Error("console should be silent when a recipient is set")
	}

	// Without recipient the message is printed instead.
	if err := mn.SendReport(context.Background(), report, ""); err != nil {
		t.Fatalf("SendReport without phone: %v", err)
	}
	if stub.sends != 1 {
		t.Error("bridge should not be called without a recipient")
	}
	if !strings.Contains(console.String(), "--- Generated Message ---\n*REPORT*") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	_, client := newBridge(t, false)
	mn := NewMultiNotifier(config.NotificationConfig{}, NewWhatsAppChannel(client, nil))

	err := mn.SendReport(context.Background(), &models.Report{Ticker: "X", Message: "m"}, "628")
	if !apperrors.Is(err, apperrors.ErrBridgeNotReady) {
		t.Fatalf("expected joined ErrBridgeNotReady, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "whatsapp: ") {
		t.Errorf("error should name the channel: %v", err)
	}
}
