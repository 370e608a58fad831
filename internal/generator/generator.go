// Package generator produces synthetic scheduling instances for load
// tests and demos. Output is fully determined by the seed.
package generator

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/internal/instance"
)

// Config shapes the generated network. Times are minutes after midnight.
type Config struct {
	Seed           int64  `json:"seed"`
	Depot          string `json:"depot"`
	Date           string `json:"date"`
	Lines          int    `json:"lines"`
	StopsPerLine   int    `json:"stops_per_line"`
	TripsPerLine   int    `json:"trips_per_line"`
	FirstDeparture int    `json:"first_departure"`
	Headway        int    `json:"headway"`
	HopMinutes     int    `json:"hop_minutes"`
	Vehicles       int    `json:"vehicles"`
	Capacity       int    `json:"capacity"`
	ShiftMinutes   int    `json:"shift_minutes"`
	DemandsPerTrip int    `json:"demands_per_trip"`
	MaxGroup       int    `json:"max_group"`
}

// SetDefaults fills unset fields with a small two-line depot.
func (c *Config) SetDefaults() {
	def := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	if c.Depot == "" {
		c.Depot = "depot"
	}
	def(&c.Lines, 2)
	def(&c.StopsPerLine, 6)
	def(&c.TripsPerLine, 8)
	def(&c.FirstDeparture, 360)
	def(&c.Headway, 60)
	def(&c.HopMinutes, 4)
	def(&c.Vehicles, 6)
	def(&c.Capacity, 40)
	def(&c.ShiftMinutes, 480)
	def(&c.DemandsPerTrip, 3)
	def(&c.MaxGroup, 6)
}

// Validate rejects shapes that cannot form a route.
func (c Config) Validate() error {
	switch {
	case c.Lines < 1 || c.TripsPerLine < 1 || c.Vehicles < 1:
		return fmt.Errorf("generator: lines, trips_per_line and vehicles must be positive")
	case c.StopsPerLine < 2:
		return fmt.Errorf("generator: a line needs at least two stops")
	case c.HopMinutes < 1 || c.Headway < 1 || c.ShiftMinutes < 1:
		return fmt.Errorf("generator: hop_minutes, headway and shift_minutes must be positive")
	case c.Capacity < 1 || c.MaxGroup < 1 || c.DemandsPerTrip < 0:
		return fmt.Errorf("generator: invalid capacity or demand shape")
	}
	return nil
}

type point struct{ x, y int }

// Generate builds one instance. Lines are laid out as parallel rows of a
// grid with the depot below the first stop; trips alternate direction.
func Generate(cfg Config) (instance.File, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return instance.File{}, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	f := instance.File{
		Date:  cfg.Date,
		Depot: model.Depot{ID: cfg.Depot, Name: "Depot"},
	}

	pos := map[string]point{cfg.Depot: {0, -1}}
	for l := 0; l < cfg.Lines; l++ {
		for s := 0; s < cfg.StopsPerLine; s++ {
			id := stopID(l, s)
			pos[id] = point{s, 2 * l}
			f.Stops = append(f.Stops, model.Stop{
				ID:       id,
				Name:     fmt.Sprintf("Line %d stop %d", l+1, s+1),
				Location: model.Location{Lat: 48.0 + 0.01*float64(2*l), Lon: -1.7 + 0.01*float64(s)},
			})
		}
	}

	demand := 0
	for l := 0; l < cfg.Lines; l++ {
		for k := 0; k < cfg.TripsPerLine; k++ {
			r := model.Route{
				RouteID:      fmt.Sprintf("L%d", l+1),
				TripID:       fmt.Sprintf("L%d-%03d", l+1, k+1),
				TripSequence: k + 1,
			}
			// Lines start a few minutes apart so trips do not all align.
			start := cfg.FirstDeparture + k*cfg.Headway + l*cfg.HopMinutes
			for s := 0; s < cfg.StopsPerLine; s++ {
				idx := s
				if k%2 == 1 {
					idx = cfg.StopsPerLine - 1 - s
				}
				r.StopIDs = append(r.StopIDs, stopID(l, idx))
				r.StopSequence = append(r.StopSequence, s+1)
				r.StopTimes = append(r.StopTimes, start+s*cfg.HopMinutes)
			}
			f.Routes = append(f.Routes, r)

			for d := 0; d < cfg.DemandsPerTrip; d++ {
				from := 1 + rng.Intn(cfg.StopsPerLine-1)
				to := from + 1 + rng.Intn(cfg.StopsPerLine-from)
				demand++
				f.Demands = append(f.Demands, model.PassengerDemand{
					ID:          fmt.Sprintf("d%05d", demand),
					Origin:      visit(r, from),
					Destination: visit(r, to),
					Passengers:  1 + rng.Intn(cfg.MaxGroup),
					DepotID:     cfg.Depot,
					Date:        cfg.Date,
				})
			}
		}
	}

	span := (cfg.TripsPerLine-1)*cfg.Headway + cfg.StopsPerLine*cfg.HopMinutes
	for i := 0; i < cfg.Vehicles; i++ {
		// Alternate early and late shifts over the service span.
		start := cfg.FirstDeparture - 30 + (i%2)*span/2
		f.Vehicles = append(f.Vehicles, model.Vehicle{
			ID:         fmt.Sprintf("veh%04d", i+1),
			Capacity:   cfg.Capacity,
			ShiftStart: start,
			ShiftEnd:   start + cfg.ShiftMinutes,
		})
	}

	for a, pa := range pos {
		for b, pb := range pos {
			if a == b {
				continue
			}
			f.Travel = append(f.Travel, model.TravelTime{
				Origin:        a,
				Destination:   b,
				Minutes:       cfg.HopMinutes * (abs(pa.x-pb.x) + abs(pa.y-pb.y)),
				IsDepotTravel: a == cfg.Depot || b == cfg.Depot,
			})
		}
	}
	sortTravel(f.Travel)
	return f, nil
}

func stopID(line, stop int) string { return fmt.Sprintf("L%dS%02d", line+1, stop+1) }

func visit(r model.Route, position int) model.Visit {
	return model.Visit{
		RouteID:      r.RouteID,
		TripID:       r.TripID,
		TripSequence: r.TripSequence,
		StopSequence: position,
		StopID:       r.StopIDs[position-1],
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
