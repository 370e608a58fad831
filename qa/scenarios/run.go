package scenarios

import (
	"context"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/metrics"
	"github.com/kilianp07/fleetsched/infra/solver"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(metrics.PromConfig{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	inst, err := sc.Instance.Instance(logger.NopLogger{})
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	s := &scheduler.Scheduler{
		Config: sc.Config,
		Solver: solver.NewGonum(nil),
		Sink:   sink,
	}
	rep, err := s.Run(context.Background(), inst)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	sol := rep.Solution
	if got := sol.Status.String(); got != sc.Expected.Status {
		t.Errorf("scenario %s expected status %s, got %s", sc.Name, sc.Expected.Status, got)
	}
	if sol.FleetSize != sc.Expected.FleetSize {
		t.Errorf("scenario %s expected fleet %d, got %d", sc.Name, sc.Expected.FleetSize, sol.FleetSize)
	}
	if sc.Expected.Vehicles != nil && !slices.Equal(sol.VehicleIDs(), sc.Expected.Vehicles) {
		t.Errorf("scenario %s expected vehicles %v, got %v", sc.Name, sc.Expected.Vehicles, sol.VehicleIDs())
	}
	var unservable []string
	for _, u := range sol.Unservable {
		unservable = append(unservable, u.Demand.ID)
	}
	if !slices.Equal(unservable, sc.Expected.Unservable) {
		t.Errorf("scenario %s expected unservable %v, got %v", sc.Name, sc.Expected.Unservable, unservable)
	}
	for id, it := range sol.Itineraries {
		if !it.Complete {
			t.Errorf("scenario %s: itinerary %s does not return to the depot", sc.Name, id)
		}
		if it.BreakMinutes < sc.Expected.MinBreakMinutes {
			t.Errorf("scenario %s: %s takes %d break minutes, want at least %d", sc.Name, id, it.BreakMinutes, sc.Expected.MinBreakMinutes)
		}
	}

	if n, err := testutil.GatherAndCount(reg, "scheduling_runs_total"); err != nil || n != 1 {
		t.Errorf("scenario %s: expected one run series, got %d (%v)", sc.Name, n, err)
	}
}
