package trading

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"portfolio-monitor/internal/models"
)

func TestPredictStopLossRisk_Tiers(t *testing.T) {
	long := models.Position{Ticker: "TCS", Direction: models.Long, EntryPrice: 110, StopLoss: 100}
	short := models.Position{Ticker: "TCS", Direction: models.Short, EntryPrice: 90, StopLoss: 100}

	tests := []struct {
		name     string
		pos      models.Position
		price    float64
		score    float64
		priority Priority
	}{
		{"long safe", long, 110, 0, PriorityLow},
		{"long approaching", long, 102.5, 15, PriorityLow},
		{"long close", long, 101.5, 30, PriorityLow},
		{"long very close", long, 100.5, 40, PriorityMedium},
		{"long at stop", long, 100, 100, PriorityCritical},
		{"long through stop", long, 98, 100, PriorityCritical},
		{"short safe", short, 90, 0, PriorityLow},
		{"short very close", short, 99.5, 40, PriorityMedium},
		{"short through stop", short, 101, 100, PriorityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictStopLossRisk(tt.pos, tt.price)
			if got.Score != tt.score || got.Priority != tt.priority {
				t.Errorf("risk = %v/%s, want %v/%s", got.Score, got.Priority, tt.score, tt.priority)
			}
		})
	}
}

func TestPredictStopLossRisk_BreachReason(t *testing.T) {
	pos := models.Position{Ticker: "INFY", Direction: models.Long, EntryPrice: 110, StopLoss: 100}
	got := PredictStopLossRisk(pos, 100)
	if got.Recommendation != RecommendExitNow {
		t.Errorf("recommendation = %q, want %q", got.Recommendation, RecommendExitNow)
	}
	if len(got.Reasons) == 0 || !strings.Contains(got.Reasons[0], "breached") {
		t.Errorf("reasons = %v, want a breach reason", got.Reasons)
	}
}

func TestProperty_StopLossRisk(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("risk stays within [0,100]", prop.ForAll(
		func(stop, price float64, short bool) bool {
			dir := models.Long
			if short {
				dir = models.Short
			}
			r := PredictStopLossRisk(models.Position{Direction: dir, StopLoss: stop}, price)
			return r.Score >= 0 && r.Score <= 100
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Bool(),
	))

	properties.Property("LONG at or below stop scores 100", prop.ForAll(
		func(stop, below float64) bool {
			price := stop - below
			if price <= 0 {
				return true
			}
			r := PredictStopLossRisk(models.Position{Direction: models.Long, StopLoss: stop}, price)
			return r.Score == 100 && len(r.Reasons) > 0
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(0, 9),
	))

	properties.Property("LONG risk does not fall as price nears the stop", prop.ForAll(
		func(stop, a, b float64) bool {
			far, near := a, b
			if near > far {
				far, near = near, far
			}
			pos := models.Position{Direction: models.Long, StopLoss: stop}
			return PredictStopLossRisk(pos, near).Score >= PredictStopLossRisk(pos, far).Score
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(1, 200),
		gen.Float64Range(1, 200),
	))

	properties.TestingRun(t)
}
