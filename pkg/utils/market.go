package utils

import (
	"time"
)

// JakartaLocation is the timezone of the Indonesia Stock Exchange.
var JakartaLocation *time.Location

func init() {
	var err error
	JakartaLocation, err = time.LoadLocation("Asia/Jakarta")
	if err != nil {
		// Fallback to UTC+7
		JakartaLocation = time.FixedZone("WIB", 7*60*60)
	}
}

// MarketStatus is the IDX trading session state.
type MarketStatus string

const (
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketOpen    MarketStatus = "OPEN"
	MarketBreak   MarketStatus = "BREAK"
	MarketClosed  MarketStatus = "CLOSED"
)

// GetMarketStatus returns the IDX session state at t.
func GetMarketStatus(t time.Time) MarketStatus {
	now := t.In(JakartaLocation)

	if IsWeekend(now) {
		return MarketClosed
	}

	minutes := now.Hour()*60 + now.Minute()

	// Pre-opening: 08:45 - 09:00
	if minutes >= 525 && minutes < 540 {
		return MarketPreOpen
	}

	// Session 1 closes at 12:00 Mon-Thu and 11:30 on Friday;
	// session 2 runs 13:30 (14:00 Friday) until 15:50.
	breakStart, breakEnd := 720, 810
	if now.Weekday() == time.Friday {
		breakStart, breakEnd = 690, 840
	}

	switch {
	case minutes >= 540 && minutes < breakStart:
		return MarketOpen
	case minutes >= breakStart && minutes < breakEnd:
		return MarketBreak
	case minutes >= breakEnd && minutes < 950:
		return MarketOpen
	}
	return MarketClosed
}

// IsWeekend reports whether t falls on Saturday or Sunday in Jakarta.
func IsWeekend(t time.Time) bool {
	wd := t.In(JakartaLocation).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// LastTradingDay returns the most recent weekday on or before t, in Jakarta.
func LastTradingDay(t time.Time) time.Time {
	d := t.In(JakartaLocation)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, JakartaLocation)
}

// PreviousTradingDays returns n weekdays strictly before day, newest first.
func PreviousTradingDays(day time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := day
	for len(out) < n {
		d = d.AddDate(0, 0, -1)
		if IsWeekend(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
