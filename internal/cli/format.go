package cli

import (
	"fmt"
	"strings"

	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/trading"
)

// Status renders an overall status with its colour.
func (o *Output) Status(s trading.OverallStatus) string {
	switch s {
	case trading.StatusCritical:
		return o.Red("● " + string(s))
	case trading.StatusWarning:
		return o.Yellow("▲ " + string(s))
	case trading.StatusSuccess, trading.StatusOpportunity:
		return o.Green("★ " + string(s))
	case trading.StatusGood:
		return o.Green("✓ " + string(s))
	default:
		return string(s)
	}
}

// Priority renders an alert priority.
func (o *Output) Priority(p trading.Priority) string {
	switch p {
	case trading.PriorityCritical:
		return o.Red(string(p))
	case trading.PriorityHigh:
		return o.Yellow(string(p))
	case trading.PriorityMedium:
		return o.Cyan(string(p))
	default:
		return o.DimText(string(p))
	}
}

// Health renders a market health status.
func (o *Output) Health(s resilience.HealthStatus) string {
	switch s {
	case resilience.HealthBullish:
		return o.Green(string(s))
	case resilience.HealthNeutral:
		return o.Cyan(string(s))
	case resilience.HealthWeak:
		return o.Yellow(string(s))
	default:
		return o.Red(string(s))
	}
}

// MarketStatus renders an exchange session status.
func (o *Output) MarketStatus(s models.MarketStatus) string {
	switch s {
	case models.MarketOpen:
		return o.Green("● OPEN")
	case models.MarketPreMarket:
		return o.Yellow("● PRE-MARKET")
	default:
		return o.Red("● " + string(s))
	}
}

// Direction renders LONG/SHORT.
func (o *Output) Direction(d models.Direction) string {
	if d == models.Short {
		return o.Red(string(d))
	}
	return o.Green(string(d))
}

// Volume renders a volume signal.
func (o *Output) Volume(v analysis.VolumeAnalysis) string {
	switch v.Signal {
	case analysis.VolumeStrongBuying, analysis.VolumeBuying:
		return o.Green(v.Description)
	case analysis.VolumeStrongSelling, analysis.VolumeSelling:
		return o.Red(v.Description)
	default:
		return v.Description
	}
}

// describePatterns lists pattern names, or "-".
func describePatterns(patterns []analysis.Pattern) string {
	if len(patterns) == 0 {
		return "-"
	}
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = fmt.Sprintf("%s @ %.2f", p.Name, p.Level)
	}
	return strings.Join(names, ", ")
}

// riskBar draws a ten-cell gauge of a 0-100 score.
func riskBar(score float64) string {
	filled := int(score / 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
