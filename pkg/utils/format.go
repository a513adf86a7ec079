// Package utils provides price rounding and number formatting helpers shared
// by the engine and the CLI.
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	lakh  = decimal.NewFromInt(100_000)
	crore = decimal.NewFromInt(10_000_000)
)

// FormatIndianCurrency formats amount as rupees with Indian digit grouping,
// e.g. ₹12,34,567.89.
func FormatIndianCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	dot := strings.IndexByte(fixed, '.')
	return sign + "₹" + groupIndian(fixed[:dot]) + fixed[dot:]
}

// groupIndian inserts commas into a digit string: the last three digits form
// one group, everything before it is grouped in twos.
func groupIndian(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	head, tail := digits[:n-3], digits[n-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",") + "," + tail
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatPnL formats a profit or loss amount with an explicit sign.
func FormatPnL(pnl float64) string {
	if pnl > 0 {
		return "+" + FormatIndianCurrency(pnl)
	}
	return FormatIndianCurrency(pnl)
}

// FormatCompact abbreviates large amounts in lakhs (L) or crores (Cr).
func FormatCompact(amount float64) string {
	d := decimal.NewFromFloat(amount)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(crore):
		return d.Div(crore).StringFixed(2) + " Cr"
	case abs.GreaterThanOrEqual(lakh):
		return d.Div(lakh).StringFixed(2) + " L"
	default:
		return FormatIndianCurrency(amount)
	}
}

// FormatQuantity formats a share count with thousands separators.
func FormatQuantity(qty float64) string {
	if qty == float64(int64(qty)) {
		return humanize.Comma(int64(qty))
	}
	return humanize.CommafWithDigits(qty, 2)
}

// FormatVolume formats traded volume in compact SI form, e.g. 1.2M.
func FormatVolume(volume int64) string {
	if volume < 1000 {
		return fmt.Sprintf("%d", volume)
	}
	value, prefix := humanize.ComputeSI(float64(volume))
	return fmt.Sprintf("%.1f%s", value, prefix)
}

// FormatHeld describes how long ago since was relative to now, e.g. "3 days".
func FormatHeld(since, now time.Time) string {
	if since.IsZero() {
		return "-"
	}
	return strings.TrimSpace(humanize.RelTime(since, now, "", ""))
}

// FormatAge describes t relative to now, e.g. "5 minutes ago".
func FormatAge(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
