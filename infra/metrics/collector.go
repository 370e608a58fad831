package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/fleetsched/core/metrics"
	"github.com/kilianp07/fleetsched/infra/logger"
	"github.com/kilianp07/fleetsched/internal/eventbus"
)

// StartStageCollector subscribes to the stage bus and forwards every event
// to sink when it records stages. The returned channel is closed once the
// collector has drained and stopped, either because ctx was canceled or
// the bus was closed.
func StartStageCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.StageEvent], sink coremetrics.RunSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StageRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	log := logger.New("stage-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordStage(ev); err != nil {
					log.Warnf("record stage %s: %v", ev.Stage, err)
				}
			}
		}
	}()
	return done
}
