package patterns

import (
	"fmt"

	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/analysis/indicators"
	"portfolio-monitor/internal/models"
)

// VolumeAnalyzer classifies buying or selling pressure from the volume ratio
// and the direction of the last close.
type VolumeAnalyzer struct {
	ratio           *indicators.VolumeRatio
	period          int
	strongThreshold float64
	activeThreshold float64
	weakThreshold   float64
}

// NewVolumeAnalyzer creates a new volume analyzer.
func NewVolumeAnalyzer() *VolumeAnalyzer {
	return &VolumeAnalyzer{
		ratio:           indicators.NewVolumeRatio(20),
		period:          20,
		strongThreshold: 1.5,
		activeThreshold: 1.0,
		weakThreshold:   0.7,
	}
}

func (v *VolumeAnalyzer) Name() string {
	return "VolumeAnalyzer"
}

// Analyze classifies the latest bar. Short or volume-less series are NEUTRAL
// with a ratio of 1.
func (v *VolumeAnalyzer) Analyze(series models.PriceSeries) analysis.VolumeAnalysis {
	if len(series) < v.period {
		return analysis.VolumeAnalysis{
			Signal:      analysis.VolumeNeutral,
			Ratio:       1.0,
			Description: "Volume data not available",
		}
	}
	if series.Last().Volume == 0 {
		return analysis.VolumeAnalysis{
			Signal:      analysis.VolumeNeutral,
			Ratio:       1.0,
			Description: "No volume data",
		}
	}

	ratios, _ := v.ratio.Calculate(series)
	ratio := indicators.Last(ratios, 1.0)

	n := len(series)
	change := series[n-1].Close - series[n-2].Close

	signal := v.classify(change, ratio)
	return analysis.VolumeAnalysis{
		Signal:      signal,
		Ratio:       ratio,
		Description: describeVolume(signal, ratio),
	}
}

func (v *VolumeAnalyzer) classify(change, ratio float64) analysis.VolumeSignal {
	if change == 0 {
		return analysis.VolumeNeutral
	}
	up := change > 0

	switch {
	case ratio > v.strongThreshold:
		return pick(up, analysis.VolumeStrongBuying, analysis.VolumeStrongSelling)
	case ratio > v.activeThreshold:
		return pick(up, analysis.VolumeBuying, analysis.VolumeSelling)
	case ratio < v.weakThreshold:
		return pick(up, analysis.VolumeWeakBuying, analysis.VolumeWeakSelling)
	default:
		return analysis.VolumeNeutral
	}
}

func pick(up bool, buying, selling analysis.VolumeSignal) analysis.VolumeSignal {
	if up {
		return buying
	}
	return selling
}

func describeVolume(signal analysis.VolumeSignal, ratio float64) string {
	switch signal {
	case analysis.VolumeStrongBuying:
		return fmt.Sprintf("Strong buying (%.1fx)", ratio)
	case analysis.VolumeBuying:
		return fmt.Sprintf("Buying with volume (%.1fx)", ratio)
	case analysis.VolumeWeakBuying:
		return fmt.Sprintf("Rising on light volume (%.1fx)", ratio)
	case analysis.VolumeStrongSelling:
		return fmt.Sprintf("Strong selling (%.1fx)", ratio)
	case analysis.VolumeSelling:
		return fmt.Sprintf("Selling with volume (%.1fx)", ratio)
	case analysis.VolumeWeakSelling:
		return fmt.Sprintf("Falling on light volume (%.1fx)", ratio)
	default:
		return fmt.Sprintf("Normal volume (%.1fx)", ratio)
	}
}
