package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/fleetsched/core/metrics"
	"github.com/kilianp07/fleetsched/infra/logger"
)

// PromSink records scheduling runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	fleet      *prometheus.GaugeVec
	unservable *prometheus.GaugeVec
	objective  *prometheus.GaugeVec
	solve      *prometheus.HistogramVec
	stages     *prometheus.HistogramVec
	waiting    *prometheus.HistogramVec

	pusher *push.Pusher
	log    logger.Logger
}

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	// PushgatewayURL enables pushing after every run. Batch runs exit before
	// a scrape would happen.
	PushgatewayURL string `json:"pushgateway_url"`
	Job            string `json:"job"`
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, nil)
}

// NewPromSinkWithRegistry registers metrics on the provided registry.
// A nil registry defaults to the global Prometheus registry.
func NewPromSinkWithRegistry(cfg PromConfig, reg *prometheus.Registry) (*PromSink, error) {
	registerer, gatherer := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_runs_total",
			Help: "Total number of scheduling runs by outcome",
		}, []string{"depot", "setting", "status"}),
		fleet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduling_fleet_size",
			Help: "Number of vehicles dispatched by the last run",
		}, []string{"depot", "setting"}),
		unservable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduling_unservable_demands",
			Help: "Demands no vehicle shift could serve in the last run",
		}, []string{"depot"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduling_objective",
			Help: "Objective value of the last run",
		}, []string{"depot", "setting"}),
		solve: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduling_solve_duration_seconds",
			Help:    "Wall-clock time spent in the solver",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"setting"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduling_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "failed"}),
		waiting: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduling_vehicle_waiting_minutes",
			Help:    "Idle minutes per dispatched vehicle",
			Buckets: []float64{0, 15, 30, 60, 120, 240, 480},
		}, []string{"depot"}),
		log: logger.New("prom-sink"),
	}
	if err := register(registerer, &s.runs); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.fleet); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.unservable); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.objective); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.solve); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.stages); err != nil {
		return nil, err
	}
	if err := register(registerer, &s.waiting); err != nil {
		return nil, err
	}
	if cfg.PushgatewayURL != "" {
		job := cfg.Job
		if job == "" {
			job = "fleetsched"
		}
		s.pusher = push.New(cfg.PushgatewayURL, job).Gatherer(gatherer)
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector of the
// same shape.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return err
	}
	return nil
}

// RecordRun updates the run metrics and pushes them when a Pushgateway is
// configured.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Depot, ev.Setting, ev.Status).Inc()
	s.fleet.WithLabelValues(ev.Depot, ev.Setting).Set(float64(ev.FleetSize))
	s.unservable.WithLabelValues(ev.Depot).Set(float64(ev.Unservable))
	s.objective.WithLabelValues(ev.Depot, ev.Setting).Set(ev.Objective)
	s.solve.WithLabelValues(ev.Setting).Observe(ev.SolveDuration.Seconds())
	return s.Push()
}

// RecordStage observes the duration of a pipeline stage.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	failed := "false"
	if ev.Failed {
		failed = "true"
	}
	s.stages.WithLabelValues(ev.Stage, failed).Observe(ev.Duration.Seconds())
	return nil
}

// RecordItinerary observes the waiting time of a vehicle.
func (s *PromSink) RecordItinerary(ev coremetrics.ItineraryEvent) error {
	s.waiting.WithLabelValues(ev.Depot).Observe(ev.WaitingTime.Minutes())
	return nil
}

// Push sends the gathered metrics to the Pushgateway, if any.
func (s *PromSink) Push() error {
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.Push(); err != nil {
		s.log.Errorf("pushgateway: %v", err)
		return err
	}
	return nil
}
