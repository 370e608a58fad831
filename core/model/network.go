package model

import "fmt"

// Unassigned is the vehicle id of arcs in the vehicle-agnostic flow model.
const Unassigned = ""

// Node is a visit event: a stop at a given position of a given trip.
// StopSequence 0 is the depot placeholder of that trip. Nodes compare by
// value and are used directly as map keys.
type Node struct {
	StopID       string `json:"stop_id"`
	RouteID      string `json:"route_id"`
	TripID       string `json:"trip_id"`
	TripSequence int    `json:"trip_sequence"`
	StopSequence int    `json:"stop_sequence"`
}

// IsDepot reports whether the node is a depot placeholder.
func (n Node) IsDepot() bool { return n.StopSequence == 0 }

// Trip returns the key of the trip the node belongs to.
func (n Node) Trip() TripKey {
	return TripKey{RouteID: n.RouteID, TripID: n.TripID, TripSequence: n.TripSequence}
}

func (n Node) String() string {
	return fmt.Sprintf("%s@%s#%d", n.StopID, n.Trip(), n.StopSequence)
}

// ArcKind tags the role of an arc. The set is closed.
type ArcKind int

const (
	ArcService ArcKind = iota
	ArcDepotStart
	ArcDepotEnd
	ArcIntraTrip
	ArcInterTrip
)

// ArcKinds lists every kind in declaration order.
var ArcKinds = []ArcKind{ArcService, ArcDepotStart, ArcDepotEnd, ArcIntraTrip, ArcInterTrip}

func (k ArcKind) String() string {
	switch k {
	case ArcService:
		return "service"
	case ArcDepotStart:
		return "depot-start"
	case ArcDepotEnd:
		return "depot-end"
	case ArcIntraTrip:
		return "intra-trip"
	case ArcInterTrip:
		return "inter-trip"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ArcKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnknownKind builds the error raised when a switch meets an undeclared kind.
func UnknownKind(k ArcKind) error { return fmt.Errorf("unhandled arc kind %d", int(k)) }

// SegmentPair holds the demand-segment identifiers at both ends of an arc.
// Consecutive arcs of one vehicle path share the segment id at their
// junction.
type SegmentPair struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Arc is an immutable directed edge of the time-expanded network. Arcs
// compare by value and are used directly as map keys.
type Arc struct {
	Start     Node        `json:"start"`
	End       Node        `json:"end"`
	VehicleID string      `json:"vehicle_id,omitempty"`
	Segments  SegmentPair `json:"segments"`
	Load      int         `json:"load"`
	Kind      ArcKind     `json:"kind"`
}

func (a Arc) String() string {
	v := a.VehicleID
	if v == Unassigned {
		v = "*"
	}
	return fmt.Sprintf("%s[%s] %s -> %s", a.Kind, v, a.Start, a.End)
}

// Segment is a stretch of one trip that requires service.
type Segment struct {
	ID         string  `json:"id"`
	Trip       TripKey `json:"trip"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Passengers int     `json:"passengers"`
}

// Network is the time-expanded graph of one (depot, day, setting) instance.
// It is read-only once built; subsets are derived from Arcs on demand.
type Network struct {
	Setting  Setting
	Coverage CoverageMode
	Depot    Depot
	Nodes    []Node
	Arcs     []Arc
	Routes   RouteIndex
	Vehicles []Vehicle
	Travel   TravelTimes
	// Demands holds the validated demand records the network was built from.
	Demands []PassengerDemand
	// Segments maps a segment id to the stretch it covers.
	Segments map[string]Segment
	// DepotBreaks holds the break allowance in minutes granted on depot arcs.
	DepotBreaks map[Arc]int
	// Unservable lists demands with no feasible vehicle.
	Unservable []UnservableDemand
}

// ArcsOf returns the arcs of the given kind, in network order.
func (n *Network) ArcsOf(kind ArcKind) []Arc {
	var out []Arc
	for _, a := range n.Arcs {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func (n *Network) ServiceArcs() []Arc    { return n.ArcsOf(ArcService) }
func (n *Network) DepotStartArcs() []Arc { return n.ArcsOf(ArcDepotStart) }
func (n *Network) DepotEndArcs() []Arc   { return n.ArcsOf(ArcDepotEnd) }
func (n *Network) IntraTripArcs() []Arc  { return n.ArcsOf(ArcIntraTrip) }
func (n *Network) InterTripArcs() []Arc  { return n.ArcsOf(ArcInterTrip) }

// Vehicle returns the vehicle with the given id.
func (n *Network) Vehicle(id string) (Vehicle, bool) {
	for _, v := range n.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// Stats summarises the arc counts per kind.
func (n *Network) Stats() map[string]int {
	st := map[string]int{"nodes": len(n.Nodes), "arcs": len(n.Arcs), "unservable": len(n.Unservable)}
	for _, a := range n.Arcs {
		st[a.Kind.String()]++
	}
	return st
}
