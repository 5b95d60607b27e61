package ports

import (
	"context"

	"github.com/emrig/pulsegate/internal/domain"
)

// Advisor supplies a forecast of the near-future sensor trajectory. The
// control system treats any error or low-confidence result as "no advisory
// available" and proceeds on raw sensor data alone.
type Advisor interface {
	Forecast(ctx context.Context, window []domain.Reading) (domain.ForecastResult, error)
}
