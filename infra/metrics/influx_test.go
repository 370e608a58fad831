package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetsched/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordRun(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:         "run-1",
		Depot:         "D",
		Setting:       "capacitated",
		Coverage:      "trips-with-demand",
		Mode:          "minimize-fleet",
		Status:        "optimal",
		Objective:     2,
		FleetSize:     2,
		Arcs:          14,
		Variables:     14,
		Constraints:   9,
		Nodes:         3,
		SolveDuration: 1500 * time.Microsecond,
		TotalDuration: 4 * time.Millisecond,
		Time:          now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("scheduling_run").
		AddTag("run_id", "run-1").
		AddTag("depot", "D").
		AddTag("setting", "capacitated").
		AddTag("coverage", "trips-with-demand").
		AddTag("mode", "minimize-fleet").
		AddTag("status", "optimal").
		AddField("objective", 2.0).
		AddField("fleet_size", 2).
		AddField("unservable", 0).
		AddField("arcs", 14).
		AddField("variables", 14).
		AddField("constraints", 9).
		AddField("nodes", 3).
		AddField("solve_ms", 1.5).
		AddField("total_ms", 4.0).
		SetTime(now)
	if len(rec.bodies) != 1 || rec.bodies[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordStageAndItinerary(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordStage(coremetrics.StageEvent{RunID: "r", Stage: "solve", Duration: 250 * time.Millisecond, Time: now}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := sink.RecordItinerary(coremetrics.ItineraryEvent{
		RunID:               "r",
		Depot:               "D",
		VehicleID:           "v1",
		OperationalDuration: 70 * time.Minute,
		WaitingTime:         10 * time.Minute,
		BreakMinutes:        45,
		Hops:                5,
		Time:                now,
	}); err != nil {
		t.Fatalf("itinerary: %v", err)
	}

	stage := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", "r").
		AddTag("stage", "solve").
		AddTag("failed", "false").
		AddField("duration_ms", 250.0).
		SetTime(now)
	it := write.NewPointWithMeasurement("vehicle_itinerary").
		AddTag("run_id", "r").
		AddTag("depot", "D").
		AddTag("vehicle_id", "v1").
		AddField("duration_min", 70.0).
		AddField("waiting_min", 10.0).
		AddField("break_min", 45).
		AddField("hops", 5).
		SetTime(now)
	if len(rec.bodies) != 2 || rec.bodies[0] != line(stage) || rec.bodies[1] != line(it) {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
