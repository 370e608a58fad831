package decoder

import (
	"github.com/kilianp07/fleetsched/core/model"
)

// propagate stamps every hop of it with departure and arrival times and
// accumulates waiting time. The clock starts at the first stop's scheduled
// time; the depot departure is derived backwards from it.
func (d *decoder) propagate(it *model.Itinerary) {
	it.Times = make([]model.ArcTiming, len(it.Arcs))
	clock := 0
	for i, a := range it.Arcs {
		var t model.ArcTiming
		switch a.Kind {
		case model.ArcDepotStart:
			sched := d.scheduled(a.End)
			tt := d.travel(a.Start.StopID, a.End.StopID)
			t = model.ArcTiming{Depart: sched - tt, Arrive: sched}
			clock = sched
		case model.ArcDepotEnd:
			t.Depart = clock
			clock += d.travel(a.Start.StopID, a.End.StopID)
			t.Arrive = clock
		case model.ArcInterTrip:
			t.Depart = clock
			clock += d.travel(a.Start.StopID, a.End.StopID)
			t.Arrive = clock
			if sched := d.scheduled(a.End); clock < sched {
				it.WaitingTime += sched - clock
				clock = sched
			}
		case model.ArcService, model.ArcIntraTrip:
			from, to := d.scheduled(a.Start), d.scheduled(a.End)
			switch {
			case a.End.StopSequence < a.Start.StopSequence:
				// Backtracking inside a trip: jump to the schedule.
				t.Depart = clock
				clock = to
			case a.End.StopSequence == a.Start.StopSequence:
				t.Depart = clock
			default:
				if clock < from {
					it.WaitingTime += from - clock
					clock = from
				}
				t.Depart = clock
				clock += to - from
			}
			t.Arrive = clock
		default:
			panic(model.UnknownKind(a.Kind))
		}
		if i == 0 {
			it.DepotDeparture = t.Depart
		}
		it.Times[i] = t
	}
	if len(it.Arcs) > 0 {
		it.DepotArrival = it.Times[len(it.Times)-1].Arrive
	}
	it.OperationalDuration = it.DepotArrival - it.DepotDeparture
}

func (d *decoder) scheduled(n model.Node) int {
	t, ok := d.net.Routes.TimeOf(n)
	if !ok {
		d.log.Warnf("decoder: no scheduled time for %s", n)
	}
	return t
}

func (d *decoder) travel(from, to string) int {
	tt, ok := d.net.Travel.Lookup(from, to)
	if !ok {
		d.log.Warnf("decoder: no travel time %s -> %s, assuming 0", from, to)
	}
	return tt
}
