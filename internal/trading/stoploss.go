package trading

import (
	"fmt"

	"portfolio-monitor/internal/models"
)

// RiskAssessment scores how close a position is to its stop loss.
type RiskAssessment struct {
	Score          float64 // 0-100
	Priority       Priority
	Recommendation string
	DistancePct    float64 // distance to stop as % of current price; <= 0 once hit
	Reasons        []string
}

// Recommendation labels.
const (
	RecommendExitNow      = "EXIT NOW"
	RecommendConsiderExit = "CONSIDER EXIT"
	RecommendWatchClosely = "WATCH CLOSELY"
	RecommendSafe         = "SAFE"
)

// StopDistancePct returns the direction-aware distance from current to the
// stop as a percentage of current. It is zero or negative once the stop is hit.
func StopDistancePct(direction models.Direction, current, stop float64) float64 {
	if current <= 0 {
		return 0
	}
	if direction == models.Short {
		return (stop - current) / current * 100
	}
	return (current - stop) / current * 100
}

// PredictStopLossRisk scores the risk of pos hitting its stop at current.
func PredictStopLossRisk(pos models.Position, current float64) RiskAssessment {
	distance := StopDistancePct(pos.Direction, current, pos.StopLoss)

	var score float64
	var reasons []string
	switch {
	case distance <= 0:
		score = 100
		reasons = append(reasons, "SL breached")
	case distance < 1:
		score += 40
		reasons = append(reasons, fmt.Sprintf("Very close to SL (%.1f%%)", distance))
	case distance < 2:
		score += 30
		reasons = append(reasons, fmt.Sprintf("Close to SL (%.1f%%)", distance))
	case distance < 3:
		score += 15
		reasons = append(reasons, fmt.Sprintf("Approaching SL (%.1f%%)", distance))
	}
	if score > 100 {
		score = 100
	}

	priority, recommendation := classifyRisk(score)
	return RiskAssessment{
		Score:          score,
		Priority:       priority,
		Recommendation: recommendation,
		DistancePct:    distance,
		Reasons:        reasons,
	}
}

func classifyRisk(score float64) (Priority, string) {
	switch {
	case score >= 80:
		return PriorityCritical, RecommendExitNow
	case score >= 60:
		return PriorityHigh, RecommendConsiderExit
	case score >= 40:
		return PriorityMedium, RecommendWatchClosely
	default:
		return PriorityLow, RecommendSafe
	}
}
