package lifecycle

import (
	"context"
	"time"

	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// RunPeriodic chequea una vez al arrancar y luego cada interval hasta que ctx termine.
// interval <= 0 deshabilita los chequeos periódicos.
func (o *Orchestrator) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		o.log.Info("periodic update check disabled")
		return
	}
	o.log.Info("periodic update check started", logger.Duration(interval))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := o.CheckForUpdate(ctx); err != nil && ctx.Err() == nil {
			o.log.Warn("periodic update check failed", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
