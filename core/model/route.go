package model

import "fmt"

// TripKey identifies a scheduled trip instance.
type TripKey struct {
	RouteID      string
	TripID       string
	TripSequence int
}

func (k TripKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.RouteID, k.TripID, k.TripSequence)
}

// Route is one scheduled trip instance. All slices are parallel. StopTimes
// are absolute minutes and may fall outside [0,1440) to represent the
// previous and next service days.
type Route struct {
	RouteID      string     `json:"route_id" yaml:"route_id"`
	TripID       string     `json:"trip_id" yaml:"trip_id"`
	TripSequence int        `json:"trip_sequence" yaml:"trip_sequence"`
	StopIDs      []string   `json:"stop_ids" yaml:"stop_ids"`
	StopSequence []int      `json:"stop_sequence" yaml:"stop_sequence"`
	StopTimes    []int      `json:"stop_times" yaml:"stop_times"`
	StopNames    []string   `json:"stop_names,omitempty" yaml:"stop_names,omitempty"`
	Locations    []Location `json:"locations,omitempty" yaml:"locations,omitempty"`
}

// Key returns the trip key of the route.
func (r Route) Key() TripKey {
	return TripKey{RouteID: r.RouteID, TripID: r.TripID, TripSequence: r.TripSequence}
}

// Validate checks the parallel-slice and ordering invariants. Positions are
// 1-based and strictly increasing. Names and locations are optional but
// must match in length when present.
func (r Route) Validate() error {
	n := len(r.StopIDs)
	if n == 0 {
		return fmt.Errorf("route %s: no stops", r.Key())
	}
	if len(r.StopSequence) != n || len(r.StopTimes) != n {
		return fmt.Errorf("route %s: stop slices have different lengths", r.Key())
	}
	if len(r.StopNames) != 0 && len(r.StopNames) != n {
		return fmt.Errorf("route %s: %d names for %d stops", r.Key(), len(r.StopNames), n)
	}
	if len(r.Locations) != 0 && len(r.Locations) != n {
		return fmt.Errorf("route %s: %d locations for %d stops", r.Key(), len(r.Locations), n)
	}
	// Position 0 is reserved for the depot placeholder node.
	if r.StopSequence[0] <= 0 {
		return fmt.Errorf("route %s: stop positions must start at 1 or above, got %d", r.Key(), r.StopSequence[0])
	}
	for i := 1; i < n; i++ {
		if r.StopSequence[i] <= r.StopSequence[i-1] {
			return fmt.Errorf("route %s: stop positions not strictly increasing at index %d", r.Key(), i)
		}
		if r.StopTimes[i] < r.StopTimes[i-1] {
			return fmt.Errorf("route %s: stop times decrease at index %d", r.Key(), i)
		}
	}
	return nil
}

// IndexOf maps a 1-based stop_sequence position to its slice index.
func (r Route) IndexOf(position int) (int, bool) {
	for i, p := range r.StopSequence {
		if p == position {
			return i, true
		}
	}
	return -1, false
}

// TimeAt returns the scheduled time at the given position.
func (r Route) TimeAt(position int) (int, bool) {
	i, ok := r.IndexOf(position)
	if !ok {
		return 0, false
	}
	return r.StopTimes[i], true
}

// NodeAt returns the visit node at the given position.
func (r Route) NodeAt(position int) (Node, bool) {
	i, ok := r.IndexOf(position)
	if !ok {
		return Node{}, false
	}
	return Node{
		StopID:       r.StopIDs[i],
		RouteID:      r.RouteID,
		TripID:       r.TripID,
		TripSequence: r.TripSequence,
		StopSequence: r.StopSequence[i],
	}, true
}

// FirstPosition returns the position of the first stop.
func (r Route) FirstPosition() int { return r.StopSequence[0] }

// LastPosition returns the position of the last stop.
func (r Route) LastPosition() int { return r.StopSequence[len(r.StopSequence)-1] }

// DepotNode returns the depot placeholder node attached to this trip.
func (r Route) DepotNode(depotID string) Node {
	return Node{StopID: depotID, RouteID: r.RouteID, TripID: r.TripID, TripSequence: r.TripSequence}
}

// RouteIndex resolves trips by key.
type RouteIndex map[TripKey]Route

// NewRouteIndex indexes routes by trip key.
func NewRouteIndex(routes []Route) RouteIndex {
	idx := make(RouteIndex, len(routes))
	for _, r := range routes {
		idx[r.Key()] = r
	}
	return idx
}

// Of returns the route a node belongs to.
func (idx RouteIndex) Of(n Node) (Route, bool) {
	r, ok := idx[n.Trip()]
	return r, ok
}

// TimeOf returns the scheduled time of a non-depot node.
func (idx RouteIndex) TimeOf(n Node) (int, bool) {
	r, ok := idx.Of(n)
	if !ok {
		return 0, false
	}
	return r.TimeAt(n.StopSequence)
}
