package metrics

import (
	"time"
)

// RunEvent summarises one scheduling run.
type RunEvent struct {
	RunID       string
	Depot       string
	Date        string
	Setting     string
	Coverage    string
	Mode        string
	Status      string
	Objective   float64
	FleetSize   int
	Unservable  int
	Arcs        int
	Variables   int
	Constraints int
	// Nodes is the number of branch-and-bound nodes explored.
	Nodes         int
	SolveDuration time.Duration
	TotalDuration time.Duration
	Time          time.Time
}

// RunSink records scheduling runs for observability purposes.
type RunSink interface {
	RecordRun(ev RunEvent) error
}

// StageEvent captures the duration of one pipeline stage.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// StageRecorder records pipeline stage timings.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// ItineraryEvent describes the duty of one dispatched vehicle.
type ItineraryEvent struct {
	RunID               string
	Depot               string
	VehicleID           string
	OperationalDuration time.Duration
	WaitingTime         time.Duration
	BreakMinutes        int
	Hops                int
	Time                time.Time
}

// ItineraryRecorder records per-vehicle itinerary summaries.
type ItineraryRecorder interface {
	RecordItinerary(ev ItineraryEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error             { return nil }
func (NopSink) RecordStage(StageEvent) error         { return nil }
func (NopSink) RecordItinerary(ItineraryEvent) error { return nil }
