package util

import (
	"fmt"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/network"
)

// DepotID is the depot every fixture instance is attached to.
const DepotID = "D"

// Trip builds a route with consecutive positions starting at 1.
func Trip(routeID, tripID string, stops []string, times []int) model.Route {
	seq := make([]int, len(stops))
	for i := range stops {
		seq[i] = i + 1
	}
	return model.Route{
		RouteID:      routeID,
		TripID:       tripID,
		TripSequence: 1,
		StopIDs:      stops,
		StopSequence: seq,
		StopTimes:    times,
	}
}

// Bus returns a vehicle with the given shift.
func Bus(id string, capacity, shiftStart, shiftEnd int) model.Vehicle {
	return model.Vehicle{ID: id, Capacity: capacity, ShiftStart: shiftStart, ShiftEnd: shiftEnd}
}

// Ride returns a demand of pax passengers between two positions of r.
func Ride(id string, r model.Route, from, to, pax int) model.PassengerDemand {
	visit := func(pos int) model.Visit {
		v := model.Visit{RouteID: r.RouteID, TripID: r.TripID, TripSequence: r.TripSequence, StopSequence: pos}
		if i, ok := r.IndexOf(pos); ok {
			v.StopID = r.StopIDs[i]
		}
		return v
	}
	return model.PassengerDemand{
		ID:          id,
		Origin:      visit(from),
		Destination: visit(to),
		Passengers:  pax,
		DepotID:     DepotID,
		Date:        "2024-03-04",
	}
}

// UniformTravel returns a complete travel table over the stops and the
// depot where every distinct pair takes the given minutes.
func UniformTravel(minutes int, stops ...string) model.TravelTimes {
	all := append([]string{DepotID}, stops...)
	var records []model.TravelTime
	for _, a := range all {
		for _, b := range all {
			if a == b {
				continue
			}
			records = append(records, model.TravelTime{
				Origin:        a,
				Destination:   b,
				Minutes:       minutes,
				IsDepotTravel: a == DepotID || b == DepotID,
			})
		}
	}
	return model.NewTravelTimes(records)
}

// Input assembles a network input around the fixture depot.
func Input(routes []model.Route, vehicles []model.Vehicle, demands []model.PassengerDemand, travel model.TravelTimes) network.Input {
	return network.Input{
		Depot:    model.Depot{ID: DepotID, Name: "Depot"},
		Routes:   routes,
		Vehicles: vehicles,
		Demands:  demands,
		Travel:   travel,
	}
}

// TwoTrips is a small instance with two chained trips: r1 runs A-B-C from
// 100 to 120 and r2 runs C-E from 150 to 160. Every deadhead takes 10
// minutes.
func TwoTrips(vehicles ...model.Vehicle) network.Input {
	r1 := Trip("r1", "t1", []string{"A", "B", "C"}, []int{100, 110, 120})
	r2 := Trip("r2", "t2", []string{"C", "E"}, []int{150, 160})
	if len(vehicles) == 0 {
		vehicles = []model.Vehicle{Bus("v1", 10, 0, 400), Bus("v2", 10, 0, 400)}
	}
	demands := []model.PassengerDemand{
		Ride("d1", r1, 1, 3, 5),
		Ride("d2", r2, 1, 2, 3),
	}
	return Input([]model.Route{r1, r2}, vehicles, demands, UniformTravel(10, "A", "B", "C", "E"))
}

// Fleet returns n identical vehicles named v1..vn.
func Fleet(n, capacity, shiftStart, shiftEnd int) []model.Vehicle {
	out := make([]model.Vehicle, n)
	for i := range out {
		out[i] = Bus(fmt.Sprintf("v%d", i+1), capacity, shiftStart, shiftEnd)
	}
	return out
}
