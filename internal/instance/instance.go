// Package instance reads scheduling instances from JSON or YAML files.
package instance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/network"
	"github.com/kilianp07/fleetsched/core/scheduler"
)

// File is the on-disk layout of one (depot, day) instance.
type File struct {
	Date     string                  `json:"date" yaml:"date"`
	Depot    model.Depot             `json:"depot" yaml:"depot"`
	Stops    []model.Stop            `json:"stops" yaml:"stops"`
	Routes   []model.Route           `json:"routes" yaml:"routes"`
	Vehicles []model.Vehicle         `json:"vehicles" yaml:"vehicles"`
	Demands  []model.PassengerDemand `json:"demands" yaml:"demands"`
	Travel   []model.TravelTime      `json:"travel" yaml:"travel"`
}

// Load reads an instance file. The format follows the file extension.
func Load(path string, log logger.Logger) (scheduler.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return scheduler.Instance{}, err
	}
	defer f.Close()
	return Decode(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."), log)
}

// Decode reads an instance from r in the given format.
func Decode(r io.Reader, format string, log logger.Logger) (scheduler.Instance, error) {
	var file File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return scheduler.Instance{}, fmt.Errorf("decode instance: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return scheduler.Instance{}, fmt.Errorf("decode instance: %w", err)
		}
	default:
		return scheduler.Instance{}, fmt.Errorf("unsupported instance format: %s", format)
	}
	return file.Instance(log)
}

// Instance converts the file into a pipeline instance. Demands recorded for
// another depot or day are dropped with a warning. Stop names and
// locations missing on routes are filled from the stop table.
func (f File) Instance(log logger.Logger) (scheduler.Instance, error) {
	log = logger.OrNop(log)
	if f.Depot.ID == "" {
		return scheduler.Instance{}, fmt.Errorf("instance: depot id is required")
	}
	stops := make(map[string]model.Stop, len(f.Stops))
	for _, s := range f.Stops {
		stops[s.ID] = s
	}
	routes := make([]model.Route, len(f.Routes))
	for i, r := range f.Routes {
		routes[i] = enrich(r, stops)
	}

	demands := make([]model.PassengerDemand, 0, len(f.Demands))
	dropped := 0
	for _, d := range f.Demands {
		if (d.DepotID != "" && d.DepotID != f.Depot.ID) || (f.Date != "" && d.Date != "" && d.Date != f.Date) {
			dropped++
			continue
		}
		demands = append(demands, d)
	}
	if dropped > 0 {
		log.Warnf("instance: dropped %d demands for another depot or date", dropped)
	}

	return scheduler.Instance{
		Date: f.Date,
		Input: network.Input{
			Depot:    f.Depot,
			Routes:   routes,
			Vehicles: f.Vehicles,
			Demands:  demands,
			Travel:   model.NewTravelTimes(f.Travel),
		},
	}, nil
}

func enrich(r model.Route, stops map[string]model.Stop) model.Route {
	if len(stops) == 0 {
		return r
	}
	if len(r.StopNames) == 0 {
		r.StopNames = make([]string, len(r.StopIDs))
		for i, id := range r.StopIDs {
			r.StopNames[i] = stops[id].Name
		}
	}
	if len(r.Locations) == 0 {
		r.Locations = make([]model.Location, len(r.StopIDs))
		for i, id := range r.StopIDs {
			r.Locations[i] = stops[id].Location
		}
	}
	return r
}
