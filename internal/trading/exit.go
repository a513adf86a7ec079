package trading

import (
	"fmt"

	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/pkg/utils"
)

// Urgency of an emergency exit signal.
type Urgency string

const (
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyCritical Urgency = "CRITICAL"
)

const (
	// bearishLossPct is the loss beyond which a BEARISH market forces an exit.
	bearishLossPct = -2.0
	// gapFactor is how far past the stop the day's extreme must trade.
	gapFactor = 0.02
	// vixSpike and vixRiskScore together flag a volatility spike on a risky position.
	vixSpike     = 25.0
	vixRiskScore = 60.0
)

// ExitState is the per-position input to emergency exit detection.
type ExitState struct {
	PnLPercent float64
	DayLow     float64
	DayHigh    float64
	SLRisk     float64
}

// EmergencyExit is raised when any emergency rule matches.
type EmergencyExit struct {
	Ticker    string
	Emergency bool
	Urgency   Urgency
	Reasons   []string
}

// DetectEmergencyExit evaluates every emergency rule independently and
// accumulates the reasons of those that match. A nil health skips the
// market-dependent rules.
func DetectEmergencyExit(pos models.Position, state ExitState, health *resilience.MarketHealth) EmergencyExit {
	out := EmergencyExit{Ticker: pos.Ticker, Urgency: UrgencyNormal}
	trigger := func(reason string) {
		out.Emergency = true
		out.Urgency = UrgencyCritical
		out.Reasons = append(out.Reasons, reason)
	}

	if health != nil && health.Status == resilience.HealthBearish && state.PnLPercent < bearishLossPct {
		trigger(fmt.Sprintf("Bearish market and position down %.1f%%", state.PnLPercent))
	}

	switch pos.Direction {
	case models.Long:
		if state.DayLow > 0 && state.DayLow < pos.StopLoss*(1-gapFactor) {
			trigger(fmt.Sprintf("Gap-through: day low %.2f below SL %.2f", state.DayLow, pos.StopLoss))
		}
	case models.Short:
		if state.DayHigh > pos.StopLoss*(1+gapFactor) {
			trigger(fmt.Sprintf("Gap-through: day high %.2f above SL %.2f", state.DayHigh, pos.StopLoss))
		}
	}

	if health != nil && health.VolatilityIndex > vixSpike && state.SLRisk > vixRiskScore {
		trigger(fmt.Sprintf("VIX spike (%.1f) with high SL risk (%.0f)", health.VolatilityIndex, state.SLRisk))
	}

	return out
}

// SuggestTrailingStop proposes a tighter stop once the position is at least
// triggerPct in profit. The stop trails current by triggerPct, is rounded to
// the exchange tick, and is only returned when it strictly improves on the
// existing stop.
func SuggestTrailingStop(pos models.Position, current, pnlPct, triggerPct float64) (float64, bool) {
	if triggerPct <= 0 || pnlPct < triggerPct || current <= 0 {
		return 0, false
	}

	switch pos.Direction {
	case models.Long:
		proposed := utils.RoundToTick(current * (1 - triggerPct/100))
		if proposed > pos.StopLoss && proposed < current {
			return proposed, true
		}
	case models.Short:
		proposed := utils.RoundToTick(current * (1 + triggerPct/100))
		if proposed < pos.StopLoss && proposed > current {
			return proposed, true
		}
	}
	return 0, false
}
