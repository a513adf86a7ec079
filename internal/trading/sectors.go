package trading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/security"
)

// SectorOther is the sector of any ticker missing from the lookup.
const SectorOther = "OTHER"

var defaultSectors = map[string]string{
	"TCS":       "IT",
	"INFY":      "IT",
	"WIPRO":     "IT",
	"HCL":       "IT",
	"RELIANCE":  "ENERGY",
	"ONGC":      "ENERGY",
	"HDFC":      "FINANCE",
	"ICICI":     "FINANCE",
	"AXIS":      "FINANCE",
	"BAJAJ":     "AUTO",
	"MARUTI":    "AUTO",
	"ITC":       "CONSUMER",
	"BRITANNIA": "CONSUMER",
}

// ConcentrationLevel grades a sector warning.
type ConcentrationLevel string

const (
	ConcentrationOver ConcentrationLevel = "OVER-CONCENTRATED"
	ConcentrationHigh ConcentrationLevel = "HIGH"
)

const (
	overConcentratedPct = 40.0
	highConcentratedPct = 30.0
)

// SectorExposure is one sector's share of the portfolio.
type SectorExposure struct {
	Sector  string
	Value   float64
	Percent float64
}

// SectorWarning flags a concentrated sector.
type SectorWarning struct {
	Sector  string
	Percent float64
	Level   ConcentrationLevel
}

func (w SectorWarning) String() string {
	return fmt.Sprintf("%s: %.1f%% - %s", w.Sector, w.Percent, w.Level)
}

// SectorExposureReport lists sectors by descending value.
type SectorExposureReport struct {
	Total    float64
	Sectors  []SectorExposure
	Warnings []SectorWarning
}

// SectorMap resolves tickers to sectors.
type SectorMap struct {
	sectors map[string]string
}

// NewSectorMap creates the built-in lookup extended by overrides.
func NewSectorMap(overrides map[string]string) *SectorMap {
	m := &SectorMap{sectors: make(map[string]string, len(defaultSectors)+len(overrides))}
	for k, v := range defaultSectors {
		m.sectors[k] = v
	}
	for k, v := range overrides {
		m.sectors[security.NormalizeTicker(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	return m
}

// Sector returns the sector for ticker, or OTHER.
func (m *SectorMap) Sector(ticker string) string {
	if s, ok := m.sectors[security.NormalizeTicker(ticker)]; ok {
		return s
	}
	return SectorOther
}

// Exposure groups position entry value by sector. A sector at or above 40%
// of the total is OVER-CONCENTRATED, at or above 30% HIGH.
func (m *SectorMap) Exposure(positions []models.Position) SectorExposureReport {
	values := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, p := range positions {
		v := decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromFloat(p.Quantity))
		sector := m.Sector(p.Ticker)
		values[sector] = values[sector].Add(v)
		total = total.Add(v)
	}

	report := SectorExposureReport{Total: total.InexactFloat64()}
	if !total.IsPositive() {
		return report
	}

	hundred := decimal.NewFromInt(100)
	for sector, v := range values {
		report.Sectors = append(report.Sectors, SectorExposure{
			Sector:  sector,
			Value:   v.InexactFloat64(),
			Percent: v.Div(total).Mul(hundred).InexactFloat64(),
		})
	}
	sort.Slice(report.Sectors, func(i, j int) bool {
		if report.Sectors[i].Value != report.Sectors[j].Value {
			return report.Sectors[i].Value > report.Sectors[j].Value
		}
		return report.Sectors[i].Sector < report.Sectors[j].Sector
	})

	for _, s := range report.Sectors {
		switch {
		case s.Percent >= overConcentratedPct:
			report.Warnings = append(report.Warnings, SectorWarning{Sector: s.Sector, Percent: s.Percent, Level: ConcentrationOver})
		case s.Percent >= highConcentratedPct:
			report.Warnings = append(report.Warnings, SectorWarning{Sector: s.Sector, Percent: s.Percent, Level: ConcentrationHigh})
		}
	}
	return report
}
