package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetsched/core/metrics"
	"github.com/kilianp07/fleetsched/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes run, stage and itinerary points to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write on the URL is tolerated.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.RunSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordRun writes a scheduling_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduling_run").
		AddTag("run_id", ev.RunID).
		AddTag("depot", ev.Depot).
		AddTag("setting", ev.Setting).
		AddTag("coverage", ev.Coverage).
		AddTag("mode", ev.Mode).
		AddTag("status", ev.Status).
		AddField("objective", round3(ev.Objective)).
		AddField("fleet_size", ev.FleetSize).
		AddField("unservable", ev.Unservable).
		AddField("arcs", ev.Arcs).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("nodes", ev.Nodes).
		AddField("solve_ms", round3(ev.SolveDuration.Seconds()*1000)).
		AddField("total_ms", round3(ev.TotalDuration.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.Date != "" {
		p.AddTag("service_date", ev.Date)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStage writes a pipeline_stage point.
func (s *InfluxSink) RecordStage(ev coremetrics.StageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", ev.RunID).
		AddTag("stage", ev.Stage).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordItinerary writes a vehicle_itinerary point.
func (s *InfluxSink) RecordItinerary(ev coremetrics.ItineraryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("vehicle_itinerary").
		AddTag("run_id", ev.RunID).
		AddTag("depot", ev.Depot).
		AddTag("vehicle_id", ev.VehicleID).
		AddField("duration_min", round3(ev.OperationalDuration.Minutes())).
		AddField("waiting_min", round3(ev.WaitingTime.Minutes())).
		AddField("break_min", ev.BreakMinutes).
		AddField("hops", ev.Hops).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
