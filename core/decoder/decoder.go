// Package decoder rebuilds vehicle itineraries from a solved arc
// selection.
package decoder

import (
	"fmt"
	"math"

	"github.com/kilianp07/fleetsched/core/breaks"
	"github.com/kilianp07/fleetsched/core/formulation"
	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/model"
)

type stitchKey struct {
	vehicle string
	node    model.Node
	segment string
}

type decoder struct {
	net  *model.Network
	asn  formulation.Assignment
	sets breaks.Sets
	log  logger.Logger

	remaining map[model.Arc]int
	next      map[stitchKey][]model.Arc
}

// Decode turns an assignment into one itinerary per dispatched vehicle. In
// the uncapacitated setting the integral flow is split into synthetic
// buses named bus-1, bus-2 and so on. Non-optimal assignments produce a
// solution without itineraries.
func Decode(net *model.Network, asn formulation.Assignment, sets breaks.Sets, log logger.Logger) model.Solution {
	sol := model.Solution{
		Status:      asn.Status,
		Objective:   asn.Objective,
		Itineraries: map[string]model.Itinerary{},
		Unservable:  net.Unservable,
	}
	if asn.Status != model.StatusOptimal {
		return sol
	}
	d := &decoder{
		net:       net,
		asn:       asn,
		sets:      sets,
		log:       logger.OrNop(log),
		remaining: make(map[model.Arc]int),
		next:      make(map[stitchKey][]model.Arc),
	}
	for _, a := range net.Arcs {
		if n := int(math.Round(asn.Values[a])); n > 0 {
			d.remaining[a] = n
		}
		if a.Kind != model.ArcDepotStart {
			k := stitchKey{a.VehicleID, a.Start, a.Segments.Start}
			d.next[k] = append(d.next[k], a)
		}
	}

	bus := 0
	for _, start := range net.DepotStartArcs() {
		for d.remaining[start] > 0 {
			id := start.VehicleID
			if net.Setting.Capacitated() {
				if _, dup := sol.Itineraries[id]; dup {
					d.log.Warnf("decoder: vehicle %s leaves the depot more than once, extra departure ignored", id)
					d.remaining[start] = 0
					break
				}
			} else {
				bus++
				id = fmt.Sprintf("bus-%d", bus)
			}
			path, complete := d.walk(id, start)
			sol.Itineraries[id] = d.itinerary(id, path, complete)
		}
	}
	sol.FleetSize = len(sol.Itineraries)
	return sol
}

// walk follows selected arcs from a depot departure until the depot is
// reached, no successor remains or a cycle is found. Each arc taken
// consumes one unit of its remaining flow.
func (d *decoder) walk(id string, start model.Arc) ([]model.Arc, bool) {
	visited := map[model.Arc]bool{start: true}
	path := []model.Arc{start}
	d.remaining[start]--
	cur := start
	for steps := 0; steps < len(d.net.Arcs); steps++ {
		if cur.Kind == model.ArcDepotEnd {
			return path, true
		}
		next, cycle, ok := d.successor(cur, visited)
		if !ok {
			if cycle {
				d.log.Warnf("decoder: %s: cycle detected after %s, path truncated", id, cur)
			} else {
				d.log.Warnf("decoder: %s: path ends at %s without returning to the depot", id, cur.End)
			}
			return path, false
		}
		visited[next] = true
		d.remaining[next]--
		path = append(path, next)
		cur = next
	}
	if cur.Kind == model.ArcDepotEnd {
		return path, true
	}
	d.log.Warnf("decoder: %s: walk stopped after %d arcs", id, len(d.net.Arcs))
	return path, false
}

// successor returns the first unvisited selected arc continuing cur. cycle
// is true when the walk would have to revisit an arc.
func (d *decoder) successor(cur model.Arc, visited map[model.Arc]bool) (next model.Arc, cycle, ok bool) {
	for _, a := range d.next[stitchKey{cur.VehicleID, cur.End, cur.Segments.End}] {
		if visited[a] {
			cycle = true
			continue
		}
		if d.remaining[a] <= 0 {
			continue
		}
		return a, false, true
	}
	return model.Arc{}, cycle, false
}

func (d *decoder) itinerary(id string, path []model.Arc, complete bool) model.Itinerary {
	it := model.Itinerary{VehicleID: id, Complete: complete}
	it.Arcs = d.expand(path)
	d.propagate(&it)
	it.Loads = d.loads(it.Arcs, path)
	for i := range it.Arcs {
		it.Arcs[i].Load = it.Loads[i]
	}
	it.BreakMinutes = d.breakMinutes(path)
	return it
}

// breakMinutes adds the depot break allowances used by the path to the
// breaks taken on its inter-trip connections under the chosen pattern.
func (d *decoder) breakMinutes(path []model.Arc) int {
	total := 0
	for _, a := range path {
		total += d.net.DepotBreaks[a]
	}
	if d.net.Setting != model.SettingCapacitatedBreaks || len(path) == 0 {
		return total
	}
	vehicle := path[0].VehicleID
	single, ok := d.asn.SinglePattern[vehicle]
	if !ok {
		return total
	}
	kinds := []breaks.Kind{breaks.KindSplit15, breaks.KindSplit30}
	if single {
		kinds = []breaks.Kind{breaks.KindLong45}
	}
	used := make(map[model.Arc]bool)
	for _, k := range kinds {
		for _, a := range path {
			if a.Kind == model.ArcInterTrip && !used[a] && d.sets.Contains(k, a) {
				used[a] = true
				total += k.Minutes()
				break
			}
		}
	}
	return total
}
