// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatRupiah formats an amount as "Rp 1.234.567".
func FormatRupiah(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	result := "Rp " + groupThousands(fmt.Sprintf("%.0f", amount))
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts "." between groups of three digits.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var sb strings.Builder
	head := n % 3
	if head > 0 {
		sb.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats a profit or loss with an explicit sign.
func FormatPnL(pnl float64) string {
	formatted := FormatRupiah(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatVolume formats a share count with thousand separators.
func FormatVolume(qty int64) string {
	if qty < 0 {
		return "-" + groupThousands(fmt.Sprintf("%d", -qty))
	}
	return groupThousands(fmt.Sprintf("%d", qty))
}

// FormatCompact formats a number using Indonesian magnitude suffixes
// (Rb, Jt, M, T).
func FormatCompact(amount float64) string {
	abs := amount
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2f T", amount/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2f M", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2f Jt", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1f Rb", amount/1e3)
	}
	return fmt.Sprintf("%.0f", amount)
}
