package trading

import (
	"fmt"

	"portfolio-monitor/internal/models"
)

// ruleInput is what the status rules see for one position.
type ruleInput struct {
	pos       models.Position
	price     float64
	pnlPct    float64
	risk      RiskAssessment
	threshold float64
}

// StatusRule maps a condition on a position to its overall status. The
// alert func may be nil for statuses that do not notify.
type StatusRule struct {
	Name   string
	Status OverallStatus
	Action Action
	match  func(in ruleInput) bool
	alert  func(in ruleInput) Alert
}

// goodPnLPct is the unrealised gain at which an otherwise quiet position is GOOD.
const goodPnLPct = 2.0

// StatusRules is the precedence list for the overall status. The first
// matching rule wins.
var StatusRules = []StatusRule{
	{
		Name:   "stop loss hit",
		Status: StatusCritical,
		Action: ActionExit,
		match:  func(in ruleInput) bool { return in.pos.StopBreached(in.price) },
		alert: func(in ruleInput) Alert {
			return Alert{
				Priority: PriorityCritical,
				Kind:     AlertStopLossHit,
				Message:  fmt.Sprintf("Stop loss %.2f hit at %.2f", in.pos.StopLoss, in.price),
				Action:   ActionExit,
			}
		},
	},
	{
		Name:   "target 2 reached",
		Status: StatusSuccess,
		Action: ActionBookProfits,
		match:  func(in ruleInput) bool { return in.pos.TargetReached(in.price, in.pos.Target2) },
		alert: func(in ruleInput) Alert {
			return Alert{
				Priority: PriorityHigh,
				Kind:     AlertTarget2Hit,
				Message:  fmt.Sprintf("Target 2 %.2f reached (%+.2f%%)", in.pos.Target2, in.pnlPct),
				Action:   ActionBookProfits,
			}
		},
	},
	{
		Name:   "target 1 reached",
		Status: StatusOpportunity,
		Action: ActionHoldExtend,
		match:  func(in ruleInput) bool { return in.pos.TargetReached(in.price, in.pos.Target1) },
		alert: func(in ruleInput) Alert {
			return Alert{
				Priority: PriorityMedium,
				Kind:     AlertTarget1Hit,
				Message:  fmt.Sprintf("Target 1 %.2f reached (%+.2f%%)", in.pos.Target1, in.pnlPct),
				Action:   ActionHoldExtend,
			}
		},
	},
	{
		Name:   "stop loss risk",
		Status: StatusWarning,
		Action: ActionWatch,
		match:  func(in ruleInput) bool { return in.risk.Score >= in.threshold },
		alert: func(in ruleInput) Alert {
			return Alert{
				Priority: in.risk.Priority,
				Kind:     AlertSLRisk,
				Message:  fmt.Sprintf("SL risk %.0f (%.1f%% from stop)", in.risk.Score, in.risk.DistancePct),
				Action:   ActionWatch,
			}
		},
	},
	{
		Name:   "in profit",
		Status: StatusGood,
		Action: ActionHold,
		match:  func(in ruleInput) bool { return in.pnlPct >= goodPnLPct },
	},
}

// evaluateStatus returns the status, action and optional alert of the first
// matching rule, or OK/HOLD when none match.
func evaluateStatus(in ruleInput) (OverallStatus, Action, *Alert) {
	for _, rule := range StatusRules {
		if !rule.match(in) {
			continue
		}
		if rule.alert == nil {
			return rule.Status, rule.Action, nil
		}
		a := rule.alert(in)
		return rule.Status, rule.Action, &a
	}
	return StatusOK, ActionHold, nil
}
