// Package formulation turns a time-expanded network into a mixed-integer
// program and maps solver values back onto arcs.
package formulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/fleetsched/core/breaks"
	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/milp"
	"github.com/kilianp07/fleetsched/core/model"
)

// ErrInvalidServiceLevel is returned when MaximizeCoverage is requested
// without a service level in (0,1].
var ErrInvalidServiceLevel = errors.New("formulation: service level must be in (0,1]")

// Options configures the objective and optional constraint families.
type Options struct {
	Mode model.ProblemMode
	// ServiceLevel is the share of passengers to cover in MaximizeCoverage.
	ServiceLevel float64
	// FleetAvailability caps dispatched vehicles per capacity class.
	FleetAvailability map[string]int
}

// Model is a built program together with the arc ↔ variable mapping.
type Model struct {
	Problem *milp.Problem
	Network *model.Network
	Options Options

	arcs    []model.Arc
	arcVar  map[model.Arc]int
	pattern map[string]int
}

// Var returns the variable index of an arc.
func (m *Model) Var(a model.Arc) (int, bool) {
	i, ok := m.arcVar[a]
	return i, ok
}

// PatternVar returns the break-pattern selector of a vehicle.
func (m *Model) PatternVar(vehicleID string) (int, bool) {
	i, ok := m.pattern[vehicleID]
	return i, ok
}

// Assignment is the solved value of every arc.
type Assignment struct {
	Status    model.Status
	Objective float64
	Values    map[model.Arc]float64
	// SinglePattern is true for vehicles that take one 45 minute break and
	// false for those that split it into 15 and 30 minutes.
	SinglePattern map[string]bool
	Nodes         int
	Elapsed       time.Duration
}

// Selected reports whether an arc carries flow in the assignment.
func (a Assignment) Selected(arc model.Arc) bool { return a.Values[arc] > 0.5 }

// Build creates the program for net. Break sets are only used in the
// capacitated-with-breaks setting.
func Build(net *model.Network, sets breaks.Sets, opts Options, log logger.Logger) (*Model, error) {
	if opts.Mode == model.MaximizeCoverage && (opts.ServiceLevel <= 0 || opts.ServiceLevel > 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidServiceLevel, opts.ServiceLevel)
	}
	m := &Model{
		Problem: &milp.Problem{},
		Network: net,
		Options: opts,
		arcVar:  make(map[model.Arc]int, len(net.Arcs)),
		pattern: make(map[string]int),
	}
	kind := milp.Continuous
	if net.Setting.Capacitated() {
		kind = milp.Binary
	}
	for _, a := range net.Arcs {
		upper := math.Inf(1)
		m.arcVar[a] = m.Problem.AddVar(a.String(), kind, 0, upper)
		m.arcs = append(m.arcs, a)
	}
	for _, a := range net.DepotStartArcs() {
		m.Problem.Minimize(m.arcVar[a], 1)
	}

	b := &formBuilder{m: m, log: logger.OrNop(log)}
	if net.Setting.Capacitated() {
		b.vehicleConservation()
		b.coverage()
		b.oneDepartureEach()
		b.mutualExclusion()
		b.capacity()
		b.classCaps()
		if net.Setting == model.SettingCapacitatedBreaks {
			b.breakPatterns(sets)
		}
	} else {
		b.flowConservation()
		b.coverage()
	}
	b.log.Debugw("formulation built", map[string]any{
		"setting":     net.Setting.String(),
		"variables":   len(m.Problem.Vars),
		"constraints": len(m.Problem.Constraints),
	})
	return m, nil
}

type formBuilder struct {
	m   *Model
	log logger.Logger
}

func (b *formBuilder) v(a model.Arc) int { return b.m.arcVar[a] }

// flowConservation balances inflow and outflow at every non-depot node.
func (b *formBuilder) flowConservation() {
	in := make(map[model.Node][]milp.Term)
	out := make(map[model.Node][]milp.Term)
	for _, a := range b.m.Network.Arcs {
		if !a.End.IsDepot() {
			in[a.End] = append(in[a.End], milp.Term{Var: b.v(a), Coef: 1})
		}
		if !a.Start.IsDepot() {
			out[a.Start] = append(out[a.Start], milp.Term{Var: b.v(a), Coef: -1})
		}
	}
	for _, n := range b.m.Network.Nodes {
		if n.IsDepot() {
			continue
		}
		terms := append(append([]milp.Term(nil), in[n]...), out[n]...)
		b.m.Problem.AddConstraint("flow "+n.String(), terms, milp.EQ, 0)
	}
}

type flowKey struct {
	vehicle string
	node    model.Node
	segment string
}

// vehicleConservation balances each vehicle's flow per (node, segment) so
// overlapping demand segments through one stop chain correctly.
func (b *formBuilder) vehicleConservation() {
	terms := make(map[flowKey][]milp.Term)
	var keys []flowKey
	add := func(k flowKey, t milp.Term) {
		if _, ok := terms[k]; !ok {
			keys = append(keys, k)
		}
		terms[k] = append(terms[k], t)
	}
	for _, a := range b.m.Network.Arcs {
		if !a.End.IsDepot() {
			add(flowKey{a.VehicleID, a.End, a.Segments.End}, milp.Term{Var: b.v(a), Coef: 1})
		}
		if !a.Start.IsDepot() {
			add(flowKey{a.VehicleID, a.Start, a.Segments.Start}, milp.Term{Var: b.v(a), Coef: -1})
		}
	}
	for _, k := range keys {
		name := fmt.Sprintf("flow %s %s %s", k.vehicle, k.node, k.segment)
		b.m.Problem.AddConstraint(name, terms[k], milp.EQ, 0)
	}
}

type coverKey struct {
	start, end model.Node
	segment    string
}

// coverage requires each service group to be operated once, or at most
// once with a passenger service level in MaximizeCoverage.
func (b *formBuilder) coverage() {
	net := b.m.Network
	groups := make(map[coverKey][]milp.Term)
	var keys []coverKey
	for _, a := range net.ServiceArcs() {
		k := coverKey{a.Start, a.End, a.Segments.Start}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], milp.Term{Var: b.v(a), Coef: 1})
	}
	op, rhs := milp.EQ, 1.0
	if b.m.Options.Mode == model.MaximizeCoverage {
		op = milp.LE
	}
	for _, k := range keys {
		b.m.Problem.AddConstraint("cover "+k.segment, groups[k], op, rhs)
	}
	if b.m.Options.Mode != model.MaximizeCoverage {
		return
	}
	total := 0
	for _, d := range net.Demands {
		total += d.Passengers
	}
	if total == 0 {
		b.log.Warnf("formulation: no passengers to cover, service level ignored")
		return
	}
	// The reward per passenger is small enough that covering every
	// passenger is still worth less than one vehicle.
	reward := 1.0 / float64(total+1)
	var level []milp.Term
	for _, a := range net.ServiceArcs() {
		if a.Load == 0 {
			continue
		}
		level = append(level, milp.Term{Var: b.v(a), Coef: float64(a.Load)})
		b.m.Problem.Minimize(b.v(a), -reward*float64(a.Load))
	}
	target := math.Ceil(b.m.Options.ServiceLevel*float64(total) - 1e-9)
	if len(level) == 0 {
		// Kept as an empty row so the solver reports infeasibility.
		b.log.Warnf("formulation: no service arc carries passengers")
		b.m.Problem.Constraints = append(b.m.Problem.Constraints,
			milp.Constraint{Name: "service level", Op: milp.GE, RHS: target})
		return
	}
	b.m.Problem.AddConstraint("service level", level, milp.GE, target)
}

// oneDepartureEach dispatches every vehicle at most once.
func (b *formBuilder) oneDepartureEach() {
	for _, v := range b.m.Network.Vehicles {
		b.m.Problem.AddConstraint("dispatch "+v.ID, b.departures(v.ID), milp.LE, 1)
	}
}

func (b *formBuilder) departures(vehicleID string) []milp.Term {
	var terms []milp.Term
	for _, a := range b.m.Network.DepotStartArcs() {
		if a.VehicleID == vehicleID {
			terms = append(terms, milp.Term{Var: b.v(a), Coef: 1})
		}
	}
	return terms
}

// mutualExclusion forbids pairing an inter-trip arc with a service arc of
// the same vehicle whose timing makes the implied schedule impossible:
// a segment on the departure trip that ends after the vehicle must leave,
// or a segment on the arrival trip that starts before it can arrive.
func (b *formBuilder) mutualExclusion() {
	net := b.m.Network
	type tripKey struct {
		vehicle string
		trip    model.TripKey
	}
	service := make(map[tripKey][]model.Arc)
	for _, a := range net.ServiceArcs() {
		k := tripKey{a.VehicleID, a.Start.Trip()}
		service[k] = append(service[k], a)
	}
	exclude := func(s, i model.Arc) {
		b.m.Problem.AddConstraint(fmt.Sprintf("exclusive %s with %s", s.Segments.Start, i),
			[]milp.Term{{Var: b.v(s), Coef: 1}, {Var: b.v(i), Coef: 1}}, milp.LE, 1)
	}
	for _, inter := range net.InterTripArcs() {
		deadline, ok1 := net.Routes.TimeOf(inter.End)
		leave, ok2 := net.Routes.TimeOf(inter.Start)
		if !ok1 || !ok2 {
			b.log.Warnf("formulation: cannot time %s", inter)
			continue
		}
		for _, s := range service[tripKey{inter.VehicleID, inter.Start.Trip()}] {
			if s.End.StopSequence <= inter.Start.StopSequence {
				continue
			}
			end, ok := net.Routes.TimeOf(s.End)
			tt, ok2 := net.Travel.Lookup(s.End.StopID, inter.End.StopID)
			if !ok || !ok2 {
				continue
			}
			if end+tt > deadline {
				exclude(s, inter)
			}
		}
		for _, s := range service[tripKey{inter.VehicleID, inter.End.Trip()}] {
			if s.Start.StopSequence >= inter.End.StopSequence {
				continue
			}
			start, ok := net.Routes.TimeOf(s.Start)
			tt, ok2 := net.Travel.Lookup(inter.Start.StopID, s.Start.StopID)
			if !ok || !ok2 {
				continue
			}
			if leave+tt > start {
				exclude(s, inter)
			}
		}
	}
}

// capacity bounds the on-board load of every vehicle on every stop-to-stop
// leg of a trip.
func (b *formBuilder) capacity() {
	net := b.m.Network
	type key struct {
		vehicle string
		trip    model.TripKey
	}
	byTrip := make(map[key][]model.Arc)
	var keys []key
	for _, a := range net.ServiceArcs() {
		k := key{a.VehicleID, a.Start.Trip()}
		if _, ok := byTrip[k]; !ok {
			keys = append(keys, k)
		}
		byTrip[k] = append(byTrip[k], a)
	}
	for _, k := range keys {
		veh, ok := net.Vehicle(k.vehicle)
		r, ok2 := net.Routes[k.trip]
		if !ok || !ok2 {
			continue
		}
		for i := 0; i+1 < len(r.StopSequence); i++ {
			from, to := r.StopSequence[i], r.StopSequence[i+1]
			var terms []milp.Term
			load := 0
			for _, a := range byTrip[k] {
				if a.Load > 0 && a.Start.StopSequence <= from && a.End.StopSequence >= to {
					terms = append(terms, milp.Term{Var: b.v(a), Coef: float64(a.Load)})
					load += a.Load
				}
			}
			if load <= veh.Capacity {
				continue
			}
			name := fmt.Sprintf("capacity %s %s %d-%d", veh.ID, k.trip, from, to)
			b.m.Problem.AddConstraint(name, terms, milp.LE, float64(veh.Capacity))
		}
	}
}

// classCaps limits dispatched vehicles per capacity class.
func (b *formBuilder) classCaps() {
	classes := make([]string, 0, len(b.m.Options.FleetAvailability))
	for c := range b.m.Options.FleetAvailability {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		var terms []milp.Term
		for _, v := range b.m.Network.Vehicles {
			if v.CapacityClass == c {
				terms = append(terms, b.departures(v.ID)...)
			}
		}
		b.m.Problem.AddConstraint("fleet "+c, terms, milp.LE, float64(b.m.Options.FleetAvailability[c]))
	}
}

// breakPatterns makes every dispatched long-shift vehicle take either one
// 45 minute break (pattern=1) or a 15 then a 30 minute break (pattern=0).
// Vehicles that stay at the depot are unconstrained.
func (b *formBuilder) breakPatterns(sets breaks.Sets) {
	sum := func(arcs []model.Arc) []milp.Term {
		var terms []milp.Term
		for _, a := range arcs {
			if i, ok := b.m.arcVar[a]; ok {
				terms = append(terms, milp.Term{Var: i, Coef: 1})
			}
		}
		return terms
	}
	neg := func(terms []milp.Term) []milp.Term {
		out := make([]milp.Term, len(terms))
		for i, t := range terms {
			out[i] = milp.Term{Var: t.Var, Coef: -t.Coef}
		}
		return out
	}
	for _, id := range sets.LongShift {
		dispatch := b.departures(id)
		if len(dispatch) == 0 {
			continue
		}
		y := b.m.Problem.AddVar("pattern "+id, milp.Binary, 0, 1)
		b.m.pattern[id] = y

		// sum(long45) >= dispatched + pattern - 1
		long := append(sum(sets.Long45[id]), neg(dispatch)...)
		long = append(long, milp.Term{Var: y, Coef: -1})
		b.m.Problem.AddConstraint("break45 "+id, long, milp.GE, -1)

		// sum(split15) >= dispatched - pattern, likewise for split30
		for _, kind := range []breaks.Kind{breaks.KindSplit15, breaks.KindSplit30} {
			terms := append(sum(sets.Of(kind)[id]), neg(dispatch)...)
			terms = append(terms, milp.Term{Var: y, Coef: 1})
			b.m.Problem.AddConstraint(fmt.Sprintf("split%d %s", kind.Minutes(), id), terms, milp.GE, 0)
		}
	}
}

// Solve runs the solver and maps the values back onto arcs. Non-optimal
// statuses yield an assignment without values.
func (m *Model) Solve(ctx context.Context, s milp.Solver, cfg milp.SolverConfig) (Assignment, error) {
	res, err := s.Solve(ctx, m.Problem, cfg)
	asn := Assignment{Status: res.Status, Objective: res.Objective, Nodes: res.Nodes, Elapsed: res.Elapsed}
	// Reports are JSON encoded, which rejects NaN and infinities.
	if math.IsNaN(asn.Objective) || math.IsInf(asn.Objective, 0) {
		asn.Objective = 0
	}
	if err != nil {
		asn.Status = model.StatusOther
		return asn, err
	}
	if res.Status != model.StatusOptimal || res.Values == nil {
		return asn, nil
	}
	asn.Values = make(map[model.Arc]float64, len(m.arcs))
	for i, a := range m.arcs {
		asn.Values[a] = res.Values[i]
	}
	asn.SinglePattern = make(map[string]bool, len(m.pattern))
	for id, i := range m.pattern {
		asn.SinglePattern[id] = res.Values[i] > 0.5
	}
	return asn, nil
}
