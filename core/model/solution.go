package model

import "sort"

// Status is the terminal state of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	// StatusTimeLimit covers both wall-clock and node/iteration limits.
	StatusTimeLimit
	StatusOther
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeLimit:
		return "time-limit"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ArcTiming holds the absolute departure and arrival minutes of one hop.
type ArcTiming struct {
	Depart int `json:"depart"`
	Arrive int `json:"arrive"`
}

// Itinerary is the decoded, time-stamped duty of one vehicle.
type Itinerary struct {
	VehicleID string      `json:"vehicle_id"`
	Arcs      []Arc       `json:"arcs"`
	Times     []ArcTiming `json:"times"`
	Loads     []int       `json:"loads"`
	// DepotDeparture and DepotArrival bound the operational duration.
	DepotDeparture      int `json:"depot_departure"`
	DepotArrival        int `json:"depot_arrival"`
	OperationalDuration int `json:"operational_duration"`
	WaitingTime         int `json:"waiting_time"`
	BreakMinutes        int `json:"break_minutes"`
	// Complete is false when the walk did not end at the depot.
	Complete bool `json:"complete"`
}

// Solution is the terminal artifact of one solve. Itineraries is empty
// unless Status is StatusOptimal.
type Solution struct {
	Status      Status               `json:"status"`
	Objective   float64              `json:"objective"`
	FleetSize   int                  `json:"fleet_size"`
	Itineraries map[string]Itinerary `json:"itineraries"`
	Unservable  []UnservableDemand   `json:"unservable,omitempty"`
}

// VehicleIDs returns the dispatched vehicle ids in sorted order.
func (s Solution) VehicleIDs() []string {
	ids := make([]string, 0, len(s.Itineraries))
	for id := range s.Itineraries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
