package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"portfolio-monitor/internal/resilience"
)

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show market health and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			h := app.Fetcher.MarketHealth(cmd.Context())
			status := app.Hours.GetMarketStatus()

			source := sourceState(app.Fetcher)

			if output.IsJSON() {
				return output.JSON(struct {
					Market  string                   `json:"market"`
					Message string                   `json:"message"`
					Source  string                   `json:"source,omitempty"`
					Health  *resilience.MarketHealth `json:"health"`
				}{string(status), app.Hours.StatusMessage(), source, h})
			}

			output.Printf("Session: %s  %s\n", output.MarketStatus(status), output.DimText(app.Hours.StatusMessage()))
			if source != "" && source != string(resilience.CircuitClosed) {
				output.Warning("Price source %s", source)
			}
			if h == nil {
				output.Warning("Market health unavailable")
				return nil
			}

			output.Println()
			output.Printf("Health:      %s  score %.0f/100\n", output.Health(h.Status), h.Score)
			output.Printf("Benchmark:   %.2f (%s)  RSI %.1f\n", h.BenchmarkPrice, output.FormatPercent(h.BenchmarkChangePct), h.BenchmarkRSI)
			output.Printf("Volatility:  %.2f (%s)\n", h.VolatilityIndex, h.VIXLevel)
			base := app.Config.Analysis.SLAlertThreshold
			output.Printf("SL policy:   %s (alert threshold %.0f -> %.0f)\n",
				h.SLAdjustment, base, resilience.AdjustAlertThreshold(base, h.SLAdjustment))
			output.Info("%s", h.Action)
			return nil
		},
	}
}

type breakerReporter interface {
	Breaker() *resilience.CircuitBreaker
}

// sourceState describes the price source breaker, or "" when the fetcher has none.
func sourceState(f any) string {
	br, ok := f.(breakerReporter)
	if !ok || br.Breaker() == nil {
		return ""
	}
	st := br.Breaker().Stats()
	if st.State == resilience.CircuitOpen {
		return fmt.Sprintf("%s, retry at %s", st.State, st.RetryAt.In(resilience.IndiaLocation).Format("15:04:05"))
	}
	return string(st.State)
}
