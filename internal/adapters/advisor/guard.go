package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

const defaultGuardTimeout = 50 * time.Millisecond

// GuardedAdvisor enforces a hard deadline on the inner advisor so a hung
// forecast can never delay an escalation decision. The inner call keeps
// running on its own goroutine after a timeout; its result is discarded.
type GuardedAdvisor struct {
	inner   ports.Advisor
	timeout time.Duration
}

func NewGuardedAdvisor(inner ports.Advisor, timeout time.Duration) *GuardedAdvisor {
	if timeout <= 0 {
		timeout = defaultGuardTimeout
	}
	return &GuardedAdvisor{inner: inner, timeout: timeout}
}

func (g *GuardedAdvisor) Forecast(ctx context.Context, window []domain.Reading) (domain.ForecastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		result domain.ForecastResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		r, err := g.inner.Forecast(ctx, window)
		ch <- outcome{result: r, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return domain.ForecastResult{}, fmt.Errorf("advisor forecast: %w", out.err)
		}
		return out.result, nil
	case <-ctx.Done():
		return domain.ForecastResult{}, fmt.Errorf("advisor forecast deadline exceeded: %w", ctx.Err())
	}
}

var _ ports.Advisor = (*GuardedAdvisor)(nil)
