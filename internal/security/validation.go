// Package security validates user-supplied identifiers and masks secrets
// before they reach logs or the terminal.
package security

import (
	"net/url"
	"regexp"
	"strings"

	apperrors "portfolio-monitor/internal/errors"
)

var (
	// NSE symbols: uppercase letters, digits, '&' and '-' (M&M, BAJAJ-AUTO).
	tickerPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,20}$`)

	exchangeSuffixes = []string{".NS", ".BO"}
)

// NormalizeTicker trims, uppercases and strips a Yahoo exchange suffix, so
// "tcs.ns" and "TCS" name the same position.
func NormalizeTicker(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, suffix := range exchangeSuffixes {
		ticker = strings.TrimSuffix(ticker, suffix)
	}
	return ticker
}

// ValidateTicker checks a normalized ticker.
func ValidateTicker(ticker string) error {
	switch {
	case ticker == "":
		return apperrors.NewValidationError("ticker", ticker, "must not be empty")
	case len(ticker) > 20:
		return apperrors.NewValidationError("ticker", ticker, "too long (max 20 characters)")
	case !tickerPattern.MatchString(ticker):
		return apperrors.NewValidationError("ticker", ticker, "must contain only A-Z, 0-9, '&' or '-'")
	}
	return nil
}

// MaskURL keeps a URL's scheme and host and hides everything that may carry a
// token: credentials, path and query.
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return MaskCredential(raw)
	}
	masked := u.Scheme + "://" + u.Host
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		masked += "/****"
	}
	return masked
}

// MaskCredential shows the first and last four characters of a secret.
func MaskCredential(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
