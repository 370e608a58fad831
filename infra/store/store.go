// Package store persists summaries of scheduling runs.
package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/fleetsched/core/scheduler"
)

// VehicleSummary is the per-vehicle part of a run record.
type VehicleSummary struct {
	VehicleID           string `json:"vehicle_id"`
	DepotDeparture      int    `json:"depot_departure"`
	DepotArrival        int    `json:"depot_arrival"`
	OperationalDuration int    `json:"operational_duration"`
	WaitingTime         int    `json:"waiting_time"`
	BreakMinutes        int    `json:"break_minutes"`
	Complete            bool   `json:"complete"`
}

// RunRecord captures the outcome of one scheduling run.
type RunRecord struct {
	RunID      string           `json:"run_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Depot      string           `json:"depot"`
	Date       string           `json:"date,omitempty"`
	Setting    string           `json:"setting"`
	Coverage   string           `json:"coverage"`
	Mode       string           `json:"mode"`
	Status     string           `json:"status"`
	Objective  float64          `json:"objective"`
	FleetSize  int              `json:"fleet_size"`
	Unservable []string         `json:"unservable,omitempty"`
	Vehicles   []VehicleSummary `json:"vehicles,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// HasVehicle reports whether the vehicle was dispatched in the run.
func (r RunRecord) HasVehicle(id string) bool {
	return slices.ContainsFunc(r.Vehicles, func(v VehicleSummary) bool { return v.VehicleID == id })
}

// FromReport summarises a pipeline report.
func FromReport(rep scheduler.Report) RunRecord {
	rec := RunRecord{
		RunID:      rep.RunID,
		Timestamp:  rep.Started,
		Depot:      rep.Depot,
		Date:       rep.Date,
		Setting:    rep.Config.Setting,
		Coverage:   rep.Config.Coverage,
		Mode:       rep.Config.ProblemMode,
		Status:     rep.Solution.Status.String(),
		Objective:  rep.Solution.Objective,
		FleetSize:  rep.Solution.FleetSize,
		DurationMS: rep.Total.Milliseconds(),
	}
	for _, u := range rep.Solution.Unservable {
		rec.Unservable = append(rec.Unservable, u.Demand.ID)
	}
	for _, id := range rep.Solution.VehicleIDs() {
		it := rep.Solution.Itineraries[id]
		rec.Vehicles = append(rec.Vehicles, VehicleSummary{
			VehicleID:           id,
			DepotDeparture:      it.DepotDeparture,
			DepotArrival:        it.DepotArrival,
			OperationalDuration: it.OperationalDuration,
			WaitingTime:         it.WaitingTime,
			BreakMinutes:        it.BreakMinutes,
			Complete:            it.Complete,
		})
	}
	return rec
}

// RunQuery defines filters for retrieving records. Zero fields match all.
type RunQuery struct {
	Start     time.Time
	End       time.Time
	Depot     string
	Status    string
	VehicleID string
}

// Match reports whether rec satisfies every filter of q.
func (q RunQuery) Match(rec RunRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.Depot != "" && rec.Depot != q.Depot {
		return false
	}
	if q.Status != "" && rec.Status != q.Status {
		return false
	}
	if q.VehicleID != "" && !rec.HasVehicle(q.VehicleID) {
		return false
	}
	return true
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Config selects a store backend.
type Config struct {
	// Type is sqlite, jsonl or empty to disable persistence.
	Type       string `json:"type" yaml:"type"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults applies rotation defaults for the JSONL backend.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend selection.
func (c Config) Validate() error {
	switch c.Type {
	case "":
		return nil
	case "sqlite", "jsonl":
		if c.Path == "" {
			return fmt.Errorf("store: path is required for %s", c.Type)
		}
		return nil
	}
	return fmt.Errorf("store: unknown type %q", c.Type)
}

// New opens the configured store. An empty type yields a NopStore.
func New(c Config) (RunStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Type {
	case "sqlite":
		return NewSQLiteStore(c.Path)
	case "jsonl":
		c.SetDefaults()
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	}
	return NopStore{}, nil
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error                { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                           { return nil }
