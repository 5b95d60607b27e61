package domain

import "time"

// ForecastResult is the advisory output consumed from a predictive model.
// It is an untrusted hint: safety decisions never depend on it.
type ForecastResult struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Horizon      int                  `json:"horizon"`
	Trajectories map[Metric][]float64 `json:"trajectories"`
	Confidence   float64              `json:"confidence"`
}

// Usable reports whether the forecast carries enough signal to act on.
// A missing trajectory or sub-threshold confidence means "no advisory".
func (f ForecastResult) Usable(minConfidence float64) bool {
	if f.Confidence < minConfidence || len(f.Trajectories) == 0 {
		return false
	}
	for _, traj := range f.Trajectories {
		if len(traj) > 0 {
			return true
		}
	}
	return false
}
