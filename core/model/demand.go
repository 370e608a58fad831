package model

import "fmt"

// Visit locates one stop event inside a scheduled trip.
type Visit struct {
	RouteID      string `json:"route_id" yaml:"route_id"`
	TripID       string `json:"trip_id" yaml:"trip_id"`
	TripSequence int    `json:"trip_sequence" yaml:"trip_sequence"`
	StopSequence int    `json:"stop_sequence" yaml:"stop_sequence"`
	StopID       string `json:"stop_id" yaml:"stop_id"`
}

// Trip returns the key of the trip the visit belongs to.
func (v Visit) Trip() TripKey {
	return TripKey{RouteID: v.RouteID, TripID: v.TripID, TripSequence: v.TripSequence}
}

// PassengerDemand is a group of passengers travelling between two visits of
// the same trip.
type PassengerDemand struct {
	ID          string `json:"id" yaml:"id"`
	Origin      Visit  `json:"origin" yaml:"origin"`
	Destination Visit  `json:"destination" yaml:"destination"`
	Passengers  int    `json:"passengers" yaml:"passengers"`
	DepotID     string `json:"depot_id" yaml:"depot_id"`
	Date        string `json:"date" yaml:"date"`
}

// Validate enforces that origin precedes destination on the same trip.
func (d PassengerDemand) Validate() error {
	if d.Origin.Trip() != d.Destination.Trip() {
		return fmt.Errorf("demand %s: origin and destination on different trips", d.ID)
	}
	if d.Origin.StopSequence >= d.Destination.StopSequence {
		return fmt.Errorf("demand %s: origin position %d not before destination %d",
			d.ID, d.Origin.StopSequence, d.Destination.StopSequence)
	}
	return nil
}

// UnservableDemand records a demand no vehicle shift can accommodate.
type UnservableDemand struct {
	Demand          PassengerDemand `json:"demand"`
	OriginTime      int             `json:"origin_time"`
	DestinationTime int             `json:"destination_time"`
}
