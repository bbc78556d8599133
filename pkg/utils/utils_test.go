package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{1000, "Rp 1.000"},
		{1234567.4, "Rp 1.234.567"},
		{-25000, "-Rp 25.000"},
	}
	for _, tt := range tests {
		if got := FormatRupiah(tt.in); got != tt.want {
			t.Errorf("FormatRupiah(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	tests := map[float64]string{
		2.5e12: "2.50 T",
		21e9:   "21.00 M",
		-3e6:   "-3.00 Jt",
		1500:   "1.5 Rb",
		42:     "42",
	}
	for in, want := range tests {
		if got := FormatCompact(in); got != want {
			t.Errorf("FormatCompact(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMarketStatus(t *testing.T) {
	wib := JakartaLocation
	tests := []struct {
		at   time.Time
		want MarketStatus
	}{
		{time.Date(2024, 6, 3, 8, 50, 0, 0, wib), MarketPreOpen}, // Monday
		{time.Date(2024, 6, 3, 10, 0, 0, 0, wib), MarketOpen},
		{time.Date(2024, 6, 3, 12, 30, 0, 0, wib), MarketBreak},
		{time.Date(2024, 6, 7, 11, 45, 0, 0, wib), MarketBreak}, // Friday
		{time.Date(2024, 6, 7, 14, 30, 0, 0, wib), MarketOpen},
		{time.Date(2024, 6, 3, 16, 0, 0, 0, wib), MarketClosed},
		{time.Date(2024, 6, 8, 10, 0, 0, 0, wib), MarketClosed}, // Saturday
	}
	for _, tt := range tests {
		if got := GetMarketStatus(tt.at); got != tt.want {
			t.Errorf("GetMarketStatus(%s) = %s, want %s", tt.at, got, tt.want)
		}
	}
}

func TestTradingDays(t *testing.T) {
	sunday := time.Date(2024, 6, 9, 15, 0, 0, 0, JakartaLocation)
	if got := LastTradingDay(sunday); got.Weekday() != time.Friday || got.Day() != 7 {
		t.Errorf("LastTradingDay = %s", got)
	}

	days := PreviousTradingDays(time.Date(2024, 6, 10, 0, 0, 0, 0, JakartaLocation), 3)
	want := []int{7, 6, 5}
	for i, d := range days {
		if d.Day() != want[i] {
			t.Errorf("day %d = %d, want %d", i, d.Day(), want[i])
		}
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Retry(context.Background(), RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, fatal) },
	}, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) || calls != 1 {
		t.Errorf("err = %v calls = %d", err, calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 3 {
		t.Errorf("got %q err %v calls %d", got, err, calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}, func() error {
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("backoff never exceeds max delay", prop.ForAll(
		func(attempt int) bool {
			d := CalculateBackoff(attempt, 100*time.Millisecond, 5*time.Second, 2)
			return d > 0 && d <= 5*time.Second
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
