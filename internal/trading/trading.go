// Package trading turns a position and its price history into risk signals:
// stop-loss risk, emergency exits, an overall status with alerts, and the
// portfolio rollups computed across every analysed position.
//
// Everything here except Monitor is pure. Positions and price series are
// read-only inputs and results are recomputed on every call.
package trading

// FeatureFlags switch optional analyses on or off. A disabled feature leaves
// its result fields zero-valued.
type FeatureFlags struct {
	Patterns          bool
	Volume            bool
	SupportResistance bool
	EmergencyExit     bool
	TrailingStop      bool
	Correlation       bool
}

// Settings are the caller's thresholds for one analysis run.
type Settings struct {
	// TrailTriggerPct is the profit, in percent, after which a trailing
	// stop is proposed. It is also the trailing distance.
	TrailTriggerPct float64
	// SLAlertThreshold is the stop-loss risk score at which a position is
	// put on WARNING.
	SLAlertThreshold float64
	// CorrelationBars is how many recent bars feed the correlation matrix.
	CorrelationBars int
	Features        FeatureFlags
}

// DefaultSettings returns the standard thresholds with every feature enabled.
func DefaultSettings() Settings {
	return Settings{
		TrailTriggerPct:  2.0,
		SLAlertThreshold: 50,
		CorrelationBars:  63,
		Features: FeatureFlags{
			Patterns:          true,
			Volume:            true,
			SupportResistance: true,
			EmergencyExit:     true,
			TrailingStop:      true,
			Correlation:       true,
		},
	}
}

// Priority ranks risk assessments and alerts.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Rank orders priorities from LOW (1) to CRITICAL (4); unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

// OverallStatus is the single headline state of an analysed position.
type OverallStatus string

const (
	StatusOK          OverallStatus = "OK"
	StatusGood        OverallStatus = "GOOD"
	StatusWarning     OverallStatus = "WARNING"
	StatusCritical    OverallStatus = "CRITICAL"
	StatusOpportunity OverallStatus = "OPPORTUNITY"
	StatusSuccess     OverallStatus = "SUCCESS"
)

// Action is what the trader is advised to do next.
type Action string

const (
	ActionHold        Action = "HOLD"
	ActionWatch       Action = "WATCH"
	ActionHoldExtend  Action = "HOLD_EXTEND"
	ActionBookProfits Action = "BOOK_PROFITS"
	ActionExit        Action = "EXIT"
	ActionTrailStop   Action = "TRAIL_SL"
)

// AlertKind identifies the condition that raised an alert.
type AlertKind string

const (
	AlertStopLossHit   AlertKind = "STOP_LOSS_HIT"
	AlertTarget2Hit    AlertKind = "TARGET_2_HIT"
	AlertTarget1Hit    AlertKind = "TARGET_1_HIT"
	AlertSLRisk        AlertKind = "SL_RISK"
	AlertTrailSL       AlertKind = "TRAIL_SL"
	AlertEmergencyExit AlertKind = "EMERGENCY_EXIT"
)

// Alert is a notification-worthy finding for one position.
type Alert struct {
	Priority Priority
	Kind     AlertKind
	Message  string
	Action   Action
}
