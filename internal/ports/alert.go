package ports

import "github.com/emrig/pulsegate/internal/domain"

// AlertSink receives user-visible notifications. Notify must not block the
// control loop; sink failures are logged, never propagated.
type AlertSink interface {
	Notify(alert domain.Alert)
}
