package trading

import (
	"fmt"
	"strings"

	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/analysis/indicators"
	"portfolio-monitor/internal/analysis/patterns"
	"portfolio-monitor/internal/analysis/scoring"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

// AnalysisResult is the full technical and risk picture of one position.
type AnalysisResult struct {
	Position     models.Position
	CurrentPrice float64
	PrevClose    float64
	DayChangePct float64
	DayHigh      float64
	DayLow       float64
	PnLAmount    float64
	PnLPercent   float64

	Indicators indicators.Snapshot
	Momentum   analysis.Momentum
	Risk       RiskAssessment
	Volume     analysis.VolumeAnalysis
	Patterns   []analysis.Pattern
	Levels     analysis.Levels
	Emergency  EmergencyExit

	Status OverallStatus
	Action Action
	// SuggestedStop is a tighter trailing stop, zero when none is proposed.
	SuggestedStop float64
	Alerts        []Alert
}

// Ticker returns the analysed position's ticker.
func (r AnalysisResult) Ticker() string {
	return r.Position.Ticker
}

// Analyzer combines the indicator, scoring and pattern components for one
// position. It holds only configuration and is safe for concurrent use.
type Analyzer struct {
	engine   *indicators.Engine
	momentum *scoring.MomentumScorer
	levels   *patterns.LevelAnalyzer
	charts   *patterns.ChartPatternDetector
	volume   *patterns.VolumeAnalyzer
}

// NewAnalyzer creates an analyzer with the standard indicator periods.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithParams(indicators.DefaultParams())
}

// NewAnalyzerWithParams creates an analyzer with custom indicator periods.
func NewAnalyzerWithParams(p indicators.Params) *Analyzer {
	return &Analyzer{
		engine:   indicators.NewEngine(p),
		momentum: scoring.NewMomentumScorer(),
		levels:   patterns.NewLevelAnalyzer(),
		charts:   patterns.NewChartPatternDetector(),
		volume:   patterns.NewVolumeAnalyzer(),
	}
}

// Analyze evaluates pos against series. It returns nil when series is empty;
// callers skip that position without failing the batch. A nil health skips
// the market-dependent emergency rules.
func (a *Analyzer) Analyze(pos models.Position, series models.PriceSeries, settings Settings, health *resilience.MarketHealth) *AnalysisResult {
	if series.Empty() {
		return nil
	}

	last := series.Last()
	current := last.Close
	prevClose := current
	if len(series) > 1 {
		prevClose = series[len(series)-2].Close
	}
	pnlAmount, pnlPct := pos.PnL(current)

	res := &AnalysisResult{
		Position:     pos,
		CurrentPrice: current,
		PrevClose:    prevClose,
		DayChangePct: indicators.PercentChange(prevClose, current),
		DayHigh:      last.High,
		DayLow:       last.Low,
		PnLAmount:    pnlAmount,
		PnLPercent:   pnlPct,
	}

	res.Indicators = a.engine.Snapshot(series)
	res.Momentum = a.momentum.Score(series, res.Indicators)
	res.Risk = PredictStopLossRisk(pos, current)

	if settings.Features.Volume {
		res.Volume = a.volume.Analyze(series)
	}
	if settings.Features.Patterns {
		res.Patterns = a.charts.Detect(series)
	}
	if settings.Features.SupportResistance {
		res.Levels = a.levels.Analyze(series)
	}

	status, action, alert := evaluateStatus(ruleInput{
		pos:       pos,
		price:     current,
		pnlPct:    pnlPct,
		risk:      res.Risk,
		threshold: settings.SLAlertThreshold,
	})
	res.Status, res.Action = status, action
	if alert != nil {
		res.Alerts = append(res.Alerts, *alert)
	}

	if settings.Features.TrailingStop && status != StatusCritical {
		if stop, ok := SuggestTrailingStop(pos, current, pnlPct, settings.TrailTriggerPct); ok {
			res.SuggestedStop = stop
			res.Alerts = append(res.Alerts, Alert{
				Priority: PriorityMedium,
				Kind:     AlertTrailSL,
				Message:  fmt.Sprintf("Trail SL %.2f -> %.2f", pos.StopLoss, stop),
				Action:   ActionTrailStop,
			})
		}
	}

	if settings.Features.EmergencyExit {
		res.Emergency = DetectEmergencyExit(pos, ExitState{
			PnLPercent: pnlPct,
			DayLow:     last.Low,
			DayHigh:    last.High,
			SLRisk:     res.Risk.Score,
		}, health)
		if res.Emergency.Emergency {
			res.Alerts = append(res.Alerts, Alert{
				Priority: PriorityCritical,
				Kind:     AlertEmergencyExit,
				Message:  "Emergency exit: " + strings.Join(res.Emergency.Reasons, "; "),
				Action:   ActionExit,
			})
		}
	}

	return res
}
