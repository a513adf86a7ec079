package trading

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

func TestAnalyze_OverallStatusPrecedence(t *testing.T) {
	pos := mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 120)
	settings := DefaultSettings()
	settings.SLAlertThreshold = 30

	tests := []struct {
		name   string
		price  float64
		status OverallStatus
		action Action
		alert  AlertKind
	}{
		{"stop hit", 94, StatusCritical, ActionExit, AlertStopLossHit},
		{"target 2", 121, StatusSuccess, ActionBookProfits, AlertTarget2Hit},
		{"target 1", 112, StatusOpportunity, ActionHoldExtend, AlertTarget1Hit},
		{"sl risk", 96, StatusWarning, ActionWatch, AlertSLRisk},
		{"in profit", 103, StatusGood, ActionHold, ""},
		{"quiet", 101, StatusOK, ActionHold, ""},
	}

	analyzer := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyzer.Analyze(pos, endingAt(100, tt.price), settings, nil)
			if res == nil {
				t.Fatal("nil result")
			}
			if res.Status != tt.status || res.Action != tt.action {
				t.Errorf("status = %s/%s, want %s/%s", res.Status, res.Action, tt.status, tt.action)
			}
			if tt.alert == "" {
				for _, a := range res.Alerts {
					if a.Kind != AlertTrailSL {
						t.Errorf("unexpected alert %+v", a)
					}
				}
				return
			}
			if len(res.Alerts) == 0 || res.Alerts[0].Kind != tt.alert {
				t.Errorf("alerts = %+v, want first %s", res.Alerts, tt.alert)
			}
		})
	}
}

func TestAnalyze_ShortPnL(t *testing.T) {
	pos := mustPosition(t, "INFY", models.Short, 100, 5, 105, 90, 0)
	res := NewAnalyzer().Analyze(pos, endingAt(100, 98), DefaultSettings(), nil)
	if res.PnLAmount != 10 || res.PnLPercent != 2 {
		t.Errorf("pnl = %v/%v%%, want 10/2%%", res.PnLAmount, res.PnLPercent)
	}
	if res.Status != StatusGood {
		t.Errorf("status = %s, want GOOD", res.Status)
	}
}

func TestAnalyze_EmptySeries(t *testing.T) {
	pos := mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 120)
	if res := NewAnalyzer().Analyze(pos, nil, DefaultSettings(), nil); res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestAnalyze_DisabledFeatures(t *testing.T) {
	pos := mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 120)
	settings := Settings{TrailTriggerPct: 2, SLAlertThreshold: 50}

	res := NewAnalyzer().Analyze(pos, endingAt(100, 90), settings, nil)
	if res.Volume.Signal != "" || res.Patterns != nil || res.Levels.NearestSupport != 0 {
		t.Errorf("disabled analyses should be zero: %+v %+v %+v", res.Volume, res.Patterns, res.Levels)
	}
	if res.Emergency.Emergency || res.SuggestedStop != 0 {
		t.Errorf("disabled emergency/trailing should be zero: %+v %v", res.Emergency, res.SuggestedStop)
	}
	if res.Status != StatusCritical {
		t.Errorf("status rules always run: got %s", res.Status)
	}
}

func TestAnalyze_TrailingAndEmergencyAlerts(t *testing.T) {
	pos := mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 120)
	res := NewAnalyzer().Analyze(pos, endingAt(100, 103), DefaultSettings(), nil)
	if res.SuggestedStop == 0 {
		t.Fatal("expected a trailing stop suggestion")
	}
	if res.Alerts[len(res.Alerts)-1].Kind != AlertTrailSL {
		t.Errorf("alerts = %+v, want TRAIL_SL", res.Alerts)
	}

	series := endingAt(100, 96)
	series[len(series)-1].Low = 92
	res = NewAnalyzer().Analyze(pos, series, DefaultSettings(), nil)
	if !res.Emergency.Emergency {
		t.Fatal("expected a gap-through emergency")
	}
	if res.Alerts[len(res.Alerts)-1].Kind != AlertEmergencyExit {
		t.Errorf("alerts = %+v, want EMERGENCY_EXIT last", res.Alerts)
	}
}

func TestProperty_AnalyzeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	analyzer := NewAnalyzer()
	pos := mustPosition(t, "TCS", models.Long, 100, 10, 90, 115, 0)
	health := &resilience.MarketHealth{Status: resilience.HealthBearish, VolatilityIndex: 26}

	properties.Property("same inputs give identical results", prop.ForAll(
		func(closes []float64) bool {
			series := seriesOf(closes...)
			a := analyzer.Analyze(pos, series, DefaultSettings(), health)
			b := analyzer.Analyze(pos, series, DefaultSettings(), health)
			return reflect.DeepEqual(a, b)
		},
		gen.SliceOfN(60, gen.Float64Range(80, 130)),
	))

	properties.Property("scores stay within [0,100]", prop.ForAll(
		func(closes []float64) bool {
			res := analyzer.Analyze(pos, seriesOf(closes...), DefaultSettings(), health)
			in := func(v float64) bool { return v >= 0 && v <= 100 }
			return in(res.Indicators.RSI) && in(res.Momentum.Score) && in(res.Risk.Score)
		},
		gen.SliceOfN(60, gen.Float64Range(80, 130)),
	))

	properties.TestingRun(t)
}
