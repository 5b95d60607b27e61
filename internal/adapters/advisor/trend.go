// Package advisor provides the in-process predictive advisor chain: a linear
// trend extrapolator, a memoizing cache, and a deadline guard that keeps slow
// forecasts off the safety-critical path. Forecasts are advisory hints only;
// the control system never bases a safety decision on them.
package advisor

import (
	"context"
	"math"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

const (
	defaultWindow  = 50
	defaultHorizon = 10
	minTrendPoints = 8
)

// TrendAdvisor extrapolates each metric with a least-squares line over the
// history window. Confidence reflects how well the line fits: a noisy or
// short window degrades toward zero and the result is discarded upstream.
type TrendAdvisor struct {
	Window  int
	Horizon int
}

func NewTrendAdvisor(window, horizon int) *TrendAdvisor {
	if window <= 0 {
		window = defaultWindow
	}
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	return &TrendAdvisor{Window: window, Horizon: horizon}
}

func (a *TrendAdvisor) Forecast(ctx context.Context, window []domain.Reading) (domain.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ForecastResult{}, err
	}
	if len(window) > a.Window {
		window = window[len(window)-a.Window:]
	}
	result := domain.ForecastResult{
		GeneratedAt:  time.Now(),
		Horizon:      a.Horizon,
		Trajectories: make(map[domain.Metric][]float64, len(domain.Metrics)),
	}
	if len(window) < minTrendPoints {
		// Not enough signal; confidence 0 reads as "no advisory available".
		return result, nil
	}

	confidence := 1.0
	for _, metric := range domain.Metrics {
		series := make([]float64, len(window))
		for i, r := range window {
			series[i] = r.Value(metric)
		}
		slope, intercept, fit := fitLine(series)
		traj := make([]float64, a.Horizon)
		for step := 0; step < a.Horizon; step++ {
			traj[step] = intercept + slope*float64(len(series)+step)
		}
		result.Trajectories[metric] = traj
		if fit < confidence {
			confidence = fit
		}
	}
	result.Confidence = confidence
	return result, nil
}

// fitLine returns the least-squares slope, intercept, and a fit quality in
// [0,1] derived from the residual spread relative to the series mean.
func fitLine(series []float64) (slope, intercept, fit float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	var residual float64
	for i, y := range series {
		d := y - (intercept + slope*float64(i))
		residual += d * d
	}
	rmse := math.Sqrt(residual / n)
	mean := math.Abs(sumY / n)
	if mean == 0 {
		mean = 1
	}
	fit = 1 - rmse/mean
	if fit < 0 {
		fit = 0
	}
	return slope, intercept, fit
}

var _ ports.Advisor = (*TrendAdvisor)(nil)
