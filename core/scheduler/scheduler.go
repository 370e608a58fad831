package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetsched/core/breaks"
	"github.com/kilianp07/fleetsched/core/decoder"
	"github.com/kilianp07/fleetsched/core/formulation"
	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/metrics"
	"github.com/kilianp07/fleetsched/core/milp"
	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/monitoring"
	"github.com/kilianp07/fleetsched/core/network"
	"github.com/kilianp07/fleetsched/internal/eventbus"
)

// Pipeline stage names as they appear in stage events and reports.
const (
	StageBuild     = "build"
	StageClassify  = "classify"
	StageFormulate = "formulate"
	StageSolve     = "solve"
	StageDecode    = "decode"
)

// Instance is one (depot, service day) scheduling problem.
type Instance struct {
	Date  string
	Input network.Input
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of one run.
type Report struct {
	RunID       string          `json:"run_id"`
	Depot       string          `json:"depot"`
	Date        string          `json:"date,omitempty"`
	Config      SchedulerConfig `json:"config"`
	Network     map[string]int  `json:"network"`
	LongShift   []string        `json:"long_shift,omitempty"`
	BreakArcs   int             `json:"break_arcs"`
	Variables   int             `json:"variables"`
	Constraints int             `json:"constraints"`
	Nodes       int             `json:"nodes"`
	Solution    model.Solution  `json:"solution"`
	Stages      []StageTiming   `json:"stages"`
	Started     time.Time       `json:"started"`
	Total       time.Duration   `json:"total"`
}

// Scheduler wires the pipeline stages together. Solver, Log, Bus and Sink
// are optional.
type Scheduler struct {
	Config SchedulerConfig
	Solver milp.Solver
	Log    logger.Logger
	Bus    *eventbus.TypedBus[metrics.StageEvent]
	Sink   metrics.RunSink
}

// StageError reports the pipeline stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type run struct {
	s      *Scheduler
	log    logger.Logger
	report *Report
}

// Run schedules inst. A non-optimal solver status is not an error: the
// report carries the status and no itineraries.
func (s *Scheduler) Run(ctx context.Context, inst Instance) (Report, error) {
	cfg := s.Config
	cfg.SetDefaults()
	rep := Report{
		RunID:   uuid.NewString(),
		Depot:   inst.Input.Depot.ID,
		Date:    inst.Date,
		Config:  cfg,
		Started: time.Now(),
	}
	r := &run{s: s, log: logger.OrNop(s.Log), report: &rep}

	netOpts, formOpts, err := cfg.Options()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return rep, r.fail(StageBuild, err)
	}

	var net *model.Network
	if err := r.stage(StageBuild, func() (err error) {
		net, err = network.Build(inst.Input, netOpts, r.log)
		return err
	}); err != nil {
		return rep, err
	}
	rep.Network = net.Stats()

	var sets breaks.Sets
	_ = r.stage(StageClassify, func() error {
		sets = breaks.Classify(net, r.log)
		return nil
	})
	rep.LongShift = sets.LongShift
	rep.BreakArcs = sets.Total()

	var m *formulation.Model
	if err := r.stage(StageFormulate, func() (err error) {
		m, err = formulation.Build(net, sets, formOpts, r.log)
		return err
	}); err != nil {
		return rep, err
	}
	rep.Variables = len(m.Problem.Vars)
	rep.Constraints = len(m.Problem.Constraints)

	solver := s.Solver
	if solver == nil {
		if solver, err = milp.New(cfg.Solver); err != nil {
			return rep, r.fail(StageSolve, err)
		}
	}
	var asn formulation.Assignment
	if err := r.stage(StageSolve, func() (err error) {
		asn, err = m.Solve(ctx, solver, cfg.Solver)
		return err
	}); err != nil {
		return rep, err
	}
	rep.Nodes = asn.Nodes

	_ = r.stage(StageDecode, func() error {
		rep.Solution = decoder.Decode(net, asn, sets, r.log)
		return nil
	})
	rep.Total = time.Since(rep.Started)
	r.log.Infof("run %s: %s, fleet %d, %d unservable demands in %s",
		rep.RunID, rep.Solution.Status, rep.Solution.FleetSize, len(rep.Solution.Unservable), rep.Total)
	r.record(rep.Solution.Status.String(), asn.Elapsed)
	return rep, nil
}

// stage times fn and publishes the result. A failing stage is captured
// and wrapped in a StageError.
func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.report.Stages = append(r.report.Stages, StageTiming{Stage: name, Duration: d})
	r.publish(metrics.StageEvent{RunID: r.report.RunID, Stage: name, Duration: d, Failed: err != nil, Time: time.Now()})
	r.log.Debugw("stage done", map[string]any{"run_id": r.report.RunID, "stage": name, "duration": d.String()})
	if err != nil {
		return r.fail(name, err)
	}
	return nil
}

func (r *run) publish(ev metrics.StageEvent) {
	if r.s.Bus != nil {
		r.s.Bus.Publish(ev)
		return
	}
	if rec, ok := r.s.Sink.(metrics.StageRecorder); ok {
		if err := rec.RecordStage(ev); err != nil {
			r.log.Warnf("record stage: %v", err)
		}
	}
}

func (r *run) fail(stage string, err error) error {
	var se *StageError
	if !errors.As(err, &se) {
		err = &StageError{Stage: stage, Err: err}
	}
	r.report.Total = time.Since(r.report.Started)
	r.log.Errorf("run %s failed: %v", r.report.RunID, err)
	monitoring.CaptureException(err, monitoring.RunTags(r.report.RunID, r.report.Depot, r.report.Config.Setting, stage))
	r.record("failed", 0)
	return err
}

func (r *run) record(status string, solve time.Duration) {
	if r.s.Sink == nil {
		return
	}
	rep := r.report
	ev := metrics.RunEvent{
		RunID:         rep.RunID,
		Depot:         rep.Depot,
		Date:          rep.Date,
		Setting:       rep.Config.Setting,
		Coverage:      rep.Config.Coverage,
		Mode:          rep.Config.ProblemMode,
		Status:        status,
		Objective:     rep.Solution.Objective,
		FleetSize:     rep.Solution.FleetSize,
		Unservable:    rep.Network["unservable"],
		Arcs:          rep.Network["arcs"],
		Variables:     rep.Variables,
		Constraints:   rep.Constraints,
		Nodes:         rep.Nodes,
		SolveDuration: solve,
		TotalDuration: rep.Total,
		Time:          time.Now(),
	}
	if err := r.s.Sink.RecordRun(ev); err != nil {
		r.log.Warnf("record run: %v", err)
	}
	rec, ok := r.s.Sink.(metrics.ItineraryRecorder)
	if !ok {
		return
	}
	for _, id := range rep.Solution.VehicleIDs() {
		it := rep.Solution.Itineraries[id]
		if err := rec.RecordItinerary(metrics.ItineraryEvent{
			RunID:               rep.RunID,
			Depot:               rep.Depot,
			VehicleID:           id,
			OperationalDuration: time.Duration(it.OperationalDuration) * time.Minute,
			WaitingTime:         time.Duration(it.WaitingTime) * time.Minute,
			BreakMinutes:        it.BreakMinutes,
			Hops:                len(it.Arcs),
			Time:                ev.Time,
		}); err != nil {
			r.log.Warnf("record itinerary %s: %v", id, err)
		}
	}
}
