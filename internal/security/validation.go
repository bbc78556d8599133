// Package security validates operator input and masks credentials in output.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "stocksignal/internal/errors"
)

var (
	// Exchange code with an optional market suffix, e.g. BBCA, BBCA.JK, BRK-B.
	tickerPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,10}(\.[A-Z]{1,3})?$`)

	// International number without '+', or a WhatsApp group id.
	phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)
	groupPattern = regexp.MustCompile(`^[0-9]{8,20}(-[0-9]{6,12})?@g\.us$`)

	apiKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer)[=:\s]+["']?([A-Za-z0-9_\-\.]{16,})["']?`),
		regexp.MustCompile(`AIza[0-9A-Za-z_\-]{30,}`), // Google keys
		regexp.MustCompile(`(?i)(sk-[A-Za-z0-9]{20,})`),
	}
)

// ValidateTicker normalizes and validates a ticker symbol.
func ValidateTicker(ticker string) (string, error) {
	t := SanitizeTicker(ticker)
	if t == "" {
		return "", apperrors.NewValidationError("ticker", ticker, "ticker cannot be empty")
	}
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %s", apperrors.ErrInvalidTicker, ticker)
	}
	return t, nil
}

// SanitizeTicker upper-cases a ticker and drops characters that cannot
// appear in one.
func SanitizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	var b strings.Builder
	for _, r := range ticker {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone checks a WhatsApp recipient. An empty value is allowed and
// means the report is printed instead of sent.
func ValidatePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	if p == "" {
		return "", nil
	}
	p = strings.TrimPrefix(p, "+")
	p = strings.NewReplacer(" ", "", "-", "").Replace(p)
	if strings.HasSuffix(strings.TrimSpace(phone), "@g.us") {
		p = strings.TrimSpace(phone)
		if !groupPattern.MatchString(p) {
			return "", apperrors.NewValidationError("phone", phone, "invalid group id")
		}
		return p, nil
	}
	if !phonePattern.MatchString(p) {
		return "", apperrors.NewValidationError("phone", phone, "expected digits with country code, e.g. 628123456789")
	}
	return p, nil
}

// MaskSensitive masks API keys and tokens embedded in free text.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if len(match) > 8 {
				return match[:4] + strings.Repeat("*", len(match)-8) + match[len(match)-4:]
			}
			return strings.Repeat("*", len(match))
		})
	}
	return result
}

// MaskCredential masks a credential value for display.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// ContainsSensitiveData reports whether input holds something key-like.
func ContainsSensitiveData(input string) bool {
	for _, pattern := range apiKeyPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}
