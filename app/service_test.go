package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/config"
	"github.com/kilianp07/fleetsched/core/factory"
	"github.com/kilianp07/fleetsched/core/network"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/store"
	"github.com/kilianp07/fleetsched/test/util"
)

type fakePublisher struct {
	reports []scheduler.Report
	err     error
	closed  bool
}

func (f *fakePublisher) PublishReport(_ context.Context, rep scheduler.Report) error {
	f.reports = append(f.reports, rep)
	return f.err
}

func (f *fakePublisher) Close() { f.closed = true }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Store: store.Config{Type: "jsonl", Path: filepath.Join(t.TempDir(), "runs.jsonl")},
	}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestService_SolveStoresAndPublishes(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	pub := &fakePublisher{}
	svc.Publisher = pub

	rep, err := svc.Solve(context.Background(), scheduler.Instance{Date: "2024-03-04", Input: util.TwoTrips()})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Solution.FleetSize)
	require.Len(t, pub.reports, 1)
	assert.Equal(t, rep.RunID, pub.reports[0].RunID)

	runs, err := svc.History(context.Background(), store.RunQuery{Depot: util.DepotID})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "optimal", runs[0].Status)
	assert.Equal(t, "2024-03-04", runs[0].Date)

	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}

func TestService_FailedRunIsRecordedNotPublished(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()
	pub := &fakePublisher{}
	svc.Publisher = pub

	in := util.TwoTrips()
	in.Vehicles = nil
	_, err = svc.Solve(context.Background(), scheduler.Instance{Input: in})
	assert.ErrorIs(t, err, network.ErrNoVehicles)
	assert.Empty(t, pub.reports)

	runs, err := svc.History(context.Background(), store.RunQuery{Status: "failed"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestService_PublishErrorKeepsReport(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()
	svc.Publisher = &fakePublisher{err: errors.New("broker down")}

	rep, err := svc.Solve(context.Background(), scheduler.Instance{Input: util.TwoTrips()})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, rep.Solution.FleetSize)
}

func TestNew_UnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := New(cfg)
	assert.ErrorContains(t, err, "metrics")
}
