package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/solver"
	"github.com/kilianp07/fleetsched/test/util"
)

func records(base time.Time) []RunRecord {
	return []RunRecord{
		{RunID: "a", Timestamp: base, Depot: "D1", Status: "optimal", FleetSize: 2,
			Vehicles: []VehicleSummary{{VehicleID: "v1"}, {VehicleID: "v2"}}},
		{RunID: "b", Timestamp: base.Add(time.Hour), Depot: "D1", Status: "infeasible"},
		{RunID: "c", Timestamp: base.Add(2 * time.Hour), Depot: "D2", Status: "optimal", FleetSize: 1,
			Vehicles: []VehicleSummary{{VehicleID: "v1"}}},
	}
}

func ids(recs []RunRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RunID
	}
	return out
}

func exerciseStore(t *testing.T, s RunStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC)
	for _, r := range records(base) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, RunQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	got, err := s.Query(ctx, RunQuery{Depot: "D1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	got, err = s.Query(ctx, RunQuery{Status: "optimal", VehicleID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	got, err = s.Query(ctx, RunQuery{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))
	assert.Equal(t, base.Add(time.Hour).UnixNano(), got[0].Timestamp.UnixNano())
}

func TestSQLiteStore_AppendQuery(t *testing.T) {
	s, err := NewSQLiteStore("file:runs.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_AppendQuery(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs", "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := RunRecord{RunID: "big", Timestamp: time.Now(), Unservable: []string{strings.Repeat("x", 300*1024)}}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*.jsonl"))
	assert.Greater(t, len(files), 1)

	got, err := s.Query(context.Background(), RunQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFromReport(t *testing.T) {
	started := time.Date(2024, 3, 4, 4, 0, 0, 0, time.UTC)
	rep := scheduler.Report{
		RunID:   "r1",
		Depot:   "D",
		Date:    "2024-03-04",
		Config:  scheduler.SchedulerConfig{Setting: "capacitated", Coverage: "trips-with-demand", ProblemMode: "minimize-fleet"},
		Started: started,
		Total:   1500 * time.Millisecond,
		Solution: model.Solution{
			Status:    model.StatusOptimal,
			Objective: 2,
			FleetSize: 2,
			Itineraries: map[string]model.Itinerary{
				"v2": {VehicleID: "v2", DepotDeparture: 80, DepotArrival: 200, OperationalDuration: 120, Complete: true},
				"v1": {VehicleID: "v1", DepotDeparture: 10, DepotArrival: 90, OperationalDuration: 80, WaitingTime: 5},
			},
			Unservable: []model.UnservableDemand{{Demand: model.PassengerDemand{ID: "late"}}},
		},
	}
	rec := FromReport(rep)
	assert.Equal(t, "optimal", rec.Status)
	assert.Equal(t, int64(1500), rec.DurationMS)
	assert.Equal(t, []string{"late"}, rec.Unservable)
	require.Len(t, rec.Vehicles, 2)
	assert.Equal(t, "v1", rec.Vehicles[0].VehicleID)
	assert.Equal(t, 5, rec.Vehicles[0].WaitingTime)
	assert.True(t, rec.HasVehicle("v2"))
	assert.False(t, rec.HasVehicle("v3"))
}

func TestRotatingJSONLStore_KeepsInfeasibleRun(t *testing.T) {
	sched := &scheduler.Scheduler{
		Config: scheduler.SchedulerConfig{Setting: "capacitated", FleetAvailability: map[string]int{"": 0}},
		Solver: solver.NewGonum(nil),
	}
	rep, err := sched.Run(context.Background(), scheduler.Instance{Input: util.TwoTrips()})
	require.NoError(t, err)
	require.Equal(t, model.StatusInfeasible, rep.Solution.Status)

	st, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"), 1, 1, 1)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Append(context.Background(), FromReport(rep)))

	got, err := st.Query(context.Background(), RunQuery{Status: "infeasible"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rep.RunID, got[0].RunID)
	assert.Zero(t, got[0].Objective)
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	_, err = New(Config{Type: "sqlite"})
	assert.ErrorContains(t, err, "path is required")
	_, err = New(Config{Type: "postgres", Path: "x"})
	assert.ErrorContains(t, err, "unknown type")

	s, err = New(Config{Type: "jsonl", Path: filepath.Join(t.TempDir(), "runs.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	assert.NoError(t, s.Close())
}
