package decoder

import (
	"github.com/kilianp07/fleetsched/core/model"
)

// Expand splits an arc that runs forward along one trip into consecutive
// stop-to-stop hops. Other arcs are returned unchanged.
func Expand(routes model.RouteIndex, a model.Arc) ([]model.Arc, bool) {
	switch a.Kind {
	case model.ArcService, model.ArcIntraTrip:
		if a.End.StopSequence <= a.Start.StopSequence || a.Start.Trip() != a.End.Trip() {
			return []model.Arc{a}, true
		}
		r, ok := routes.Of(a.Start)
		if !ok {
			return []model.Arc{a}, false
		}
		from, ok1 := r.IndexOf(a.Start.StopSequence)
		to, ok2 := r.IndexOf(a.End.StopSequence)
		if !ok1 || !ok2 {
			return []model.Arc{a}, false
		}
		hops := make([]model.Arc, 0, to-from)
		for i := from; i < to; i++ {
			start, _ := r.NodeAt(r.StopSequence[i])
			end, _ := r.NodeAt(r.StopSequence[i+1])
			hop := a
			hop.Start, hop.End, hop.Load = start, end, 0
			hops = append(hops, hop)
		}
		return hops, true
	case model.ArcDepotStart, model.ArcDepotEnd, model.ArcInterTrip:
		return []model.Arc{a}, true
	default:
		panic(model.UnknownKind(a.Kind))
	}
}

func (d *decoder) expand(path []model.Arc) []model.Arc {
	var out []model.Arc
	for _, a := range path {
		hops, ok := Expand(d.net.Routes, a)
		if !ok {
			d.log.Warnf("decoder: cannot expand %s, kept as a single hop", a)
		}
		out = append(out, hops...)
	}
	return out
}

// loads counts the passengers on board during each hop. Only demand the
// vehicle actually serves is counted.
func (d *decoder) loads(hops, path []model.Arc) []int {
	served := d.servedDemand(path)
	loads := make([]int, len(hops))
	for i, h := range hops {
		if h.Start.IsDepot() || h.End.IsDepot() || h.Start.Trip() != h.End.Trip() {
			continue
		}
		if h.End.StopSequence <= h.Start.StopSequence {
			continue
		}
		for _, dm := range served[h.Start.Trip()] {
			if dm.Origin.StopSequence <= h.Start.StopSequence && dm.Destination.StopSequence >= h.End.StopSequence {
				loads[i] += dm.Passengers
			}
		}
	}
	return loads
}

// servedDemand returns, per trip, the demands covered by the service arcs
// of path. Capacity models name segments after demands; flow models serve
// every demand inside a covered segment.
func (d *decoder) servedDemand(path []model.Arc) map[model.TripKey][]model.PassengerDemand {
	ids := make(map[string]bool)
	var segs []model.Segment
	for _, a := range path {
		if a.Kind != model.ArcService {
			continue
		}
		ids[a.Segments.Start] = true
		if s, ok := d.net.Segments[a.Segments.Start]; ok {
			segs = append(segs, s)
		}
	}
	out := make(map[model.TripKey][]model.PassengerDemand)
	for _, dm := range d.net.Demands {
		trip := dm.Origin.Trip()
		if d.net.Setting.Capacitated() {
			if ids[dm.ID] {
				out[trip] = append(out[trip], dm)
			}
			continue
		}
		for _, s := range segs {
			if s.Trip == trip && dm.Origin.StopSequence >= s.From && dm.Destination.StopSequence <= s.To {
				out[trip] = append(out[trip], dm)
				break
			}
		}
	}
	return out
}
