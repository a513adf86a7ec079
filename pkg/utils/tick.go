package utils

import "github.com/shopspring/decimal"

var (
	tickSmall = decimal.RequireFromString("0.01")
	tickNSE   = decimal.RequireFromString("0.05")
)

// TickSize returns the NSE price increment for price: 0.01 below one rupee,
// 0.05 otherwise.
func TickSize(price float64) float64 {
	return tickFor(decimal.NewFromFloat(price)).InexactFloat64()
}

func tickFor(price decimal.Decimal) decimal.Decimal {
	if price.LessThan(decimal.NewFromInt(1)) {
		return tickSmall
	}
	return tickNSE
}

// RoundToTick rounds price to the nearest valid tick. Non-positive prices round to 0.
func RoundToTick(price float64) float64 {
	if price <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(price)
	tick := tickFor(p)
	return p.Div(tick).Round(0).Mul(tick).InexactFloat64()
}

// RoundPrice rounds a computed price to two decimals for display and storage.
func RoundPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}
