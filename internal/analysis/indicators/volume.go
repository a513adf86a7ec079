package indicators

import (
	"fmt"

	"portfolio-monitor/internal/models"
)

// VolumeRatio compares the latest volume with its rolling average.
type VolumeRatio struct {
	period int
}

// NewVolumeRatio creates a new volume ratio indicator.
func NewVolumeRatio(period int) *VolumeRatio {
	return &VolumeRatio{period: period}
}

func (v *VolumeRatio) Name() string {
	return fmt.Sprintf("VolumeRatio_%d", v.period)
}

func (v *VolumeRatio) Period() int {
	return v.period
}

// Calculate returns volume / rolling average volume for each bar. The average
// window includes the bar itself. Bars without a full window, or with a zero
// average, read 1.0.
func (v *VolumeRatio) Calculate(series models.PriceSeries) ([]float64, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	volumes := series.Volumes()
	result := make([]float64, len(volumes))
	for i := range result {
		result[i] = 1.0
	}
	for i := v.period - 1; i < len(volumes); i++ {
		avg := mean(volumes[i-v.period+1 : i+1])
		result[i] = SafeDivide(volumes[i], avg, 1.0)
	}
	return result, nil
}
