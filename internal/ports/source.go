package ports

import (
	"context"

	"github.com/emrig/pulsegate/internal/domain"
)

// SensorSource produces timestamped rig readings. Sample must return promptly;
// hardware implementations enforce this with a read timeout and surface a
// timeout as an error wrapping domain.ErrInvalidReading. Timestamps are
// monotonic, never decreasing.
type SensorSource interface {
	Sample(ctx context.Context) (domain.Reading, error)
	Close() error
}
