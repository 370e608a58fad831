package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/fleetsched/config"
	coremetrics "github.com/kilianp07/fleetsched/core/metrics"
	coremon "github.com/kilianp07/fleetsched/core/monitoring"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/logger"
	"github.com/kilianp07/fleetsched/infra/metrics"
	"github.com/kilianp07/fleetsched/infra/monitoring"
	"github.com/kilianp07/fleetsched/infra/mqtt"
	_ "github.com/kilianp07/fleetsched/infra/solver"
	"github.com/kilianp07/fleetsched/infra/store"
	"github.com/kilianp07/fleetsched/internal/eventbus"
)

// ReportPublisher ships finished runs to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, rep scheduler.Report) error
	Close()
}

// Service wires the scheduler to its sinks, run history and publisher.
type Service struct {
	Scheduler *scheduler.Scheduler
	Store     store.RunStore
	// Publisher is nil when no broker is configured.
	Publisher ReportPublisher

	log       logger.Logger
	bus       *eventbus.TypedBus[coremetrics.StageEvent]
	stop      context.CancelFunc
	collected <-chan struct{}
	logs      io.Closer
	monitor   coremon.Monitor
}

// New builds a Service from the configuration. The caller must Close it.
func New(cfg *config.Config) (*Service, error) {
	logs := logger.Setup(cfg.Logging.Options())
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("sentry: %w", err)
	}
	prev := coremon.Init(mon)

	sink, err := coremetrics.NewRunSink(cfg.Metrics.Sinks)
	if err != nil {
		coremon.Init(prev)
		_ = logs.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		coremon.Init(prev)
		_ = logs.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	svc := &Service{Store: st, log: log, logs: logs, monitor: prev}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = st.Close()
			coremon.Init(prev)
			_ = logs.Close()
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		svc.Publisher = pub
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.stop = cancel
	svc.bus = eventbus.NewTyped[coremetrics.StageEvent]()
	svc.collected = metrics.StartStageCollector(ctx, svc.bus, sink)
	svc.Scheduler = &scheduler.Scheduler{
		Config: cfg.Scheduling,
		Log:    logger.New("scheduler"),
		Bus:    svc.bus,
		Sink:   sink,
	}
	log.Infof("service ready: setting %s, coverage %s, %d metric sinks",
		cfg.Scheduling.Setting, cfg.Scheduling.Coverage, len(cfg.Metrics.Sinks))
	return svc, nil
}

// Solve runs the scheduler on inst, appends the run to the history and
// publishes the result. History and publish failures are logged and
// returned after the report so the caller still gets the solution.
func (s *Service) Solve(ctx context.Context, inst scheduler.Instance) (scheduler.Report, error) {
	defer coremon.Recover()
	rep, runErr := s.Scheduler.Run(ctx, inst)

	rec := store.FromReport(rep)
	if runErr != nil {
		rec.Status = "failed"
	}
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := s.Store.Append(ctx, rec); err != nil {
		s.log.Errorf("store run %s: %v", rep.RunID, err)
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if runErr == nil && s.Publisher != nil {
		if err := s.Publisher.PublishReport(ctx, rep); err != nil {
			s.log.Errorf("publish run %s: %v", rep.RunID, err)
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	return rep, errors.Join(errs...)
}

// History returns past runs matching q.
func (s *Service) History(ctx context.Context, q store.RunQuery) ([]store.RunRecord, error) {
	return s.Store.Query(ctx, q)
}

// Close drains pending stage events and releases every resource.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.collected != nil {
		select {
		case <-s.collected:
		case <-time.After(2 * time.Second):
			s.log.Warnf("stage collector did not drain in time")
		}
	}
	if s.stop != nil {
		s.stop()
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	var err error
	if s.Store != nil {
		err = s.Store.Close()
	}
	coremon.Flush(2 * time.Second)
	coremon.Init(s.monitor)
	if s.logs != nil {
		err = errors.Join(err, s.logs.Close())
	}
	return err
}
