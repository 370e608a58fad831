package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/model"
)

var (
	// ErrNoRoutes is returned when the instance has no valid route.
	ErrNoRoutes = errors.New("network: no routes")
	// ErrNoVehicles is returned when the instance has no valid vehicle.
	ErrNoVehicles = errors.New("network: no vehicles")
	// ErrUnsupportedCombination is returned for coverage/setting pairs the
	// builder does not implement.
	ErrUnsupportedCombination = errors.New("network: unsupported coverage mode for setting")
)

// breakAllowances are the rest breaks a driver may take while deadheading
// to or from the depot, largest first.
var breakAllowances = []int{45, 30, 15, 0}

// Input is the raw data of one (depot, day) instance.
type Input struct {
	Depot    model.Depot
	Routes   []model.Route
	Vehicles []model.Vehicle
	Demands  []model.PassengerDemand
	Travel   model.TravelTimes
}

// Options selects the network variant.
type Options struct {
	Setting  model.Setting
	Coverage model.CoverageMode
}

// Validate rejects configuration errors before any build work starts.
func Validate(in Input, opts Options) error {
	switch opts.Setting {
	case model.SettingUncapacitated, model.SettingCapacitated, model.SettingCapacitatedBreaks:
	default:
		return fmt.Errorf("network: unknown setting %d", int(opts.Setting))
	}
	switch opts.Coverage {
	case model.CoverAllTrips, model.CoverTripsWithDemand, model.CoverDemandSegments:
	default:
		return fmt.Errorf("network: unknown coverage mode %d", int(opts.Coverage))
	}
	if opts.Setting.Capacitated() && opts.Coverage == model.CoverDemandSegments {
		return fmt.Errorf("%w: %s with %s", ErrUnsupportedCombination, opts.Coverage, opts.Setting)
	}
	if len(in.Routes) == 0 {
		return ErrNoRoutes
	}
	if len(in.Vehicles) == 0 {
		return ErrNoVehicles
	}
	if in.Depot.ID == "" {
		return fmt.Errorf("network: depot id is required")
	}
	return nil
}

type builder struct {
	in   Input
	opts Options
	log  logger.Logger

	routes   model.RouteIndex
	order    []model.TripKey
	vehicles []model.Vehicle
	demands  []model.PassengerDemand
	byTrip   map[model.TripKey][]model.PassengerDemand

	service     []model.Arc
	arcs        map[model.Arc]struct{}
	segments    map[string]model.Segment
	depotBreaks map[model.Arc]int
	unservable  []model.UnservableDemand
	missing     int
}

// Build constructs the time-expanded network for the given variant. It is a
// pure function of its inputs: identical inputs yield identical networks.
// Data inconsistencies are logged and the affected arc is skipped; only
// configuration errors are returned.
func Build(in Input, opts Options, log logger.Logger) (*model.Network, error) {
	if err := Validate(in, opts); err != nil {
		return nil, err
	}
	b := &builder{
		in:          in,
		opts:        opts,
		log:         logger.OrNop(log),
		byTrip:      make(map[model.TripKey][]model.PassengerDemand),
		arcs:        make(map[model.Arc]struct{}),
		segments:    make(map[string]model.Segment),
		depotBreaks: make(map[model.Arc]int),
	}
	b.indexRoutes()
	if len(b.routes) == 0 {
		return nil, ErrNoRoutes
	}
	b.indexVehicles()
	if len(b.vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	b.indexDemands()

	if opts.Setting.Capacitated() {
		b.assignedServiceArcs()
	} else {
		b.flowServiceArcs()
	}
	b.depotArcs()
	b.intraTripArcs()
	b.interTripArcs()
	if b.missing > 0 {
		b.log.Warnf("network: skipped %d connections with missing travel times", b.missing)
	}
	b.reportUnservable()
	return b.finish(), nil
}

func (b *builder) indexRoutes() {
	b.routes = make(model.RouteIndex, len(b.in.Routes))
	for _, r := range b.in.Routes {
		if err := r.Validate(); err != nil {
			b.log.Warnf("network: skipping route: %v", err)
			continue
		}
		if _, dup := b.routes[r.Key()]; dup {
			b.log.Warnf("network: duplicate route %s ignored", r.Key())
			continue
		}
		b.routes[r.Key()] = r
		b.order = append(b.order, r.Key())
	}
}

func (b *builder) indexVehicles() {
	seen := make(map[string]bool, len(b.in.Vehicles))
	for _, v := range b.in.Vehicles {
		if err := v.Validate(); err != nil {
			b.log.Warnf("network: skipping vehicle: %v", err)
			continue
		}
		if seen[v.ID] {
			b.log.Warnf("network: duplicate vehicle %s ignored", v.ID)
			continue
		}
		seen[v.ID] = true
		b.vehicles = append(b.vehicles, v)
	}
}

func (b *builder) indexDemands() {
	seen := make(map[string]bool, len(b.in.Demands))
	for i, d := range b.in.Demands {
		if d.ID == "" {
			d.ID = fmt.Sprintf("demand-%d", i)
		}
		if seen[d.ID] {
			b.log.Warnf("network: duplicate demand %s ignored", d.ID)
			continue
		}
		if err := d.Validate(); err != nil {
			b.log.Warnf("network: skipping demand: %v", err)
			continue
		}
		r, ok := b.routes[d.Origin.Trip()]
		if !ok {
			b.log.Warnf("network: demand %s references unknown trip %s", d.ID, d.Origin.Trip())
			continue
		}
		if _, ok := r.IndexOf(d.Origin.StopSequence); !ok {
			b.log.Warnf("network: demand %s origin position %d out of range on %s", d.ID, d.Origin.StopSequence, r.Key())
			continue
		}
		if _, ok := r.IndexOf(d.Destination.StopSequence); !ok {
			b.log.Warnf("network: demand %s destination position %d out of range on %s", d.ID, d.Destination.StopSequence, r.Key())
			continue
		}
		seen[d.ID] = true
		b.demands = append(b.demands, d)
		b.byTrip[r.Key()] = append(b.byTrip[r.Key()], d)
	}
}

// flowServiceArcs creates vehicle-agnostic service arcs according to the
// coverage mode.
func (b *builder) flowServiceArcs() {
	for _, key := range b.order {
		r := b.routes[key]
		demands := b.byTrip[key]
		switch b.opts.Coverage {
		case model.CoverAllTrips:
			b.addFlowSegment(r, r.FirstPosition(), r.LastPosition())
		case model.CoverTripsWithDemand:
			if len(demands) > 0 {
				b.addFlowSegment(r, r.FirstPosition(), r.LastPosition())
			}
		case model.CoverDemandSegments:
			intervals := make([]Interval, len(demands))
			for i, d := range demands {
				intervals[i] = Interval{From: d.Origin.StopSequence, To: d.Destination.StopSequence}
			}
			for _, iv := range MergeSegments(intervals) {
				b.addFlowSegment(r, iv.From, iv.To)
			}
		}
	}
}

func (b *builder) addFlowSegment(r model.Route, from, to int) {
	start, ok1 := r.NodeAt(from)
	end, ok2 := r.NodeAt(to)
	if !ok1 || !ok2 {
		b.log.Warnf("network: segment %d-%d out of range on %s", from, to, r.Key())
		return
	}
	seg := model.Segment{ID: SegmentID(r.Key(), from, to), Trip: r.Key(), From: from, To: to}
	for _, d := range b.byTrip[r.Key()] {
		if d.Origin.StopSequence >= from && d.Destination.StopSequence <= to {
			seg.Passengers += d.Passengers
		}
	}
	b.segments[seg.ID] = seg
	b.addService(model.Arc{
		Start:     start,
		End:       end,
		VehicleID: model.Unassigned,
		Segments:  model.SegmentPair{Start: seg.ID, End: seg.ID},
		Load:      seg.Passengers,
		Kind:      model.ArcService,
	})
}

// assignedServiceArcs creates one service arc per feasible (demand,
// vehicle) pair. Demands no shift can cover are recorded as unservable.
// Trips without demand only get a whole-trip arc under CoverAllTrips.
func (b *builder) assignedServiceArcs() {
	for _, key := range b.order {
		r := b.routes[key]
		demands := b.byTrip[key]
		if len(demands) == 0 && b.opts.Coverage == model.CoverAllTrips {
			b.addAssignedSegment(r, model.Segment{
				ID:   SegmentID(key, r.FirstPosition(), r.LastPosition()),
				Trip: key,
				From: r.FirstPosition(),
				To:   r.LastPosition(),
			}, nil)
			continue
		}
		for i := range demands {
			d := demands[i]
			b.addAssignedSegment(r, model.Segment{
				ID:         d.ID,
				Trip:       key,
				From:       d.Origin.StopSequence,
				To:         d.Destination.StopSequence,
				Passengers: d.Passengers,
			}, &d)
		}
	}
}

func (b *builder) addAssignedSegment(r model.Route, seg model.Segment, d *model.PassengerDemand) {
	start, ok1 := r.NodeAt(seg.From)
	end, ok2 := r.NodeAt(seg.To)
	if !ok1 || !ok2 {
		b.log.Warnf("network: segment %s out of range on %s", seg.ID, r.Key())
		return
	}
	tFrom, _ := r.TimeAt(seg.From)
	tTo, _ := r.TimeAt(seg.To)
	feasible := 0
	for _, v := range b.vehicles {
		if !v.Covers(tFrom, tTo) {
			continue
		}
		feasible++
		b.addService(model.Arc{
			Start:     start,
			End:       end,
			VehicleID: v.ID,
			Segments:  model.SegmentPair{Start: seg.ID, End: seg.ID},
			Load:      seg.Passengers,
			Kind:      model.ArcService,
		})
	}
	if feasible == 0 {
		if d == nil {
			b.log.Warnf("network: no vehicle shift covers trip %s (%d-%d)", r.Key(), tFrom, tTo)
			return
		}
		b.unservable = append(b.unservable, model.UnservableDemand{Demand: *d, OriginTime: tFrom, DestinationTime: tTo})
		return
	}
	b.segments[seg.ID] = seg
}

func (b *builder) addService(a model.Arc) {
	if _, ok := b.arcs[a]; ok {
		return
	}
	b.arcs[a] = struct{}{}
	b.service = append(b.service, a)
}

func (b *builder) add(a model.Arc) {
	b.arcs[a] = struct{}{}
}

// window returns the shift window an arc must respect.
func (b *builder) window(vehicleID string) (int, int) {
	if vehicleID == model.Unassigned {
		start, end, _ := model.ShiftUnion(b.vehicles)
		return start, end
	}
	for _, v := range b.vehicles {
		if v.ID == vehicleID {
			return v.ShiftStart, v.ShiftEnd
		}
	}
	return 0, -1
}

// breakAllowance returns the largest depot break that still fits the
// slack, or ok=false when even a zero break does not.
func breakAllowance(slack int) (int, bool) {
	for _, a := range breakAllowances {
		if slack >= a {
			return a, true
		}
	}
	return 0, false
}

// depotArcs links every service arc to the depot placeholder of its trip.
func (b *builder) depotArcs() {
	depotID := b.in.Depot.ID
	for _, s := range b.service {
		r := b.routes[s.Start.Trip()]
		depot := r.DepotNode(depotID)
		shiftStart, shiftEnd := b.window(s.VehicleID)
		tStart, _ := r.TimeAt(s.Start.StopSequence)
		tEnd, _ := r.TimeAt(s.End.StopSequence)

		if tt, ok := b.in.Travel.Lookup(depotID, s.Start.StopID); !ok {
			b.log.Warnf("network: no travel time from depot %s to %s", depotID, s.Start.StopID)
		} else if allowance, ok := breakAllowance(tStart - shiftStart - tt); ok {
			a := model.Arc{
				Start:     depot,
				End:       s.Start,
				VehicleID: s.VehicleID,
				Segments:  model.SegmentPair{End: s.Segments.Start},
				Kind:      model.ArcDepotStart,
			}
			b.add(a)
			b.depotBreaks[a] = allowance
		}

		if tt, ok := b.in.Travel.Lookup(s.End.StopID, depotID); !ok {
			b.log.Warnf("network: no travel time from %s to depot %s", s.End.StopID, depotID)
		} else if allowance, ok := breakAllowance(shiftEnd - tEnd - tt); ok {
			a := model.Arc{
				Start:     s.End,
				End:       depot,
				VehicleID: s.VehicleID,
				Segments:  model.SegmentPair{Start: s.Segments.End},
				Kind:      model.ArcDepotEnd,
			}
			b.add(a)
			b.depotBreaks[a] = allowance
		}
	}
}

type groupKey struct {
	vehicle string
	trip    model.TripKey
}

// intraTripArcs connects service arcs of the same trip.
func (b *builder) intraTripArcs() {
	groups := make(map[groupKey][]model.Arc)
	var keys []groupKey
	for _, s := range b.service {
		k := groupKey{vehicle: s.VehicleID, trip: s.Start.Trip()}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], s)
	}
	for _, k := range keys {
		arcs := groups[k]
		sort.SliceStable(arcs, func(i, j int) bool { return segmentBefore(arcs[i], arcs[j]) })
		r := b.routes[k.trip]
		for i := range arcs {
			for j := i + 1; j < len(arcs); j++ {
				from, to := arcs[i], arcs[j]
				if !b.opts.Setting.Capacitated() {
					if to.Start.StopSequence <= from.End.StopSequence {
						continue
					}
					tFrom, _ := r.TimeAt(from.End.StopSequence)
					tTo, _ := r.TimeAt(to.Start.StopSequence)
					if tTo < tFrom {
						continue
					}
				}
				b.add(model.Arc{
					Start:     from.End,
					End:       to.Start,
					VehicleID: k.vehicle,
					Segments:  model.SegmentPair{Start: from.Segments.End, End: to.Segments.Start},
					Kind:      model.ArcIntraTrip,
				})
			}
		}
	}
}

// segmentBefore orders service arcs of one trip by origin, destination and
// segment id.
func segmentBefore(a, b model.Arc) bool {
	if a.Start.StopSequence != b.Start.StopSequence {
		return a.Start.StopSequence < b.Start.StopSequence
	}
	if a.End.StopSequence != b.End.StopSequence {
		return a.End.StopSequence < b.End.StopSequence
	}
	return a.Segments.Start < b.Segments.Start
}

// interTripArcs connects the end of a service arc to the start of a service
// arc on another trip when the deadhead arrives in time.
func (b *builder) interTripArcs() {
	byVehicle := make(map[string][]model.Arc)
	var vehicles []string
	for _, s := range b.service {
		if _, ok := byVehicle[s.VehicleID]; !ok {
			vehicles = append(vehicles, s.VehicleID)
		}
		byVehicle[s.VehicleID] = append(byVehicle[s.VehicleID], s)
	}
	for _, v := range vehicles {
		arcs := byVehicle[v]
		for _, from := range arcs {
			tFrom, ok := b.routes.TimeOf(from.End)
			if !ok {
				continue
			}
			for _, to := range arcs {
				if from.Start.Trip() == to.Start.Trip() {
					continue
				}
				tTo, ok := b.routes.TimeOf(to.Start)
				if !ok || tTo < tFrom {
					continue
				}
				tt, ok := b.in.Travel.Lookup(from.End.StopID, to.Start.StopID)
				if !ok {
					b.missing++
					b.log.Debugf("network: no travel time %s -> %s", from.End.StopID, to.Start.StopID)
					continue
				}
				if tFrom+tt > tTo {
					continue
				}
				b.add(model.Arc{
					Start:     from.End,
					End:       to.Start,
					VehicleID: v,
					Segments:  model.SegmentPair{Start: from.Segments.End, End: to.Segments.Start},
					Kind:      model.ArcInterTrip,
				})
			}
		}
	}
}

func (b *builder) reportUnservable() {
	if len(b.unservable) == 0 {
		return
	}
	for _, u := range b.unservable {
		d := u.Demand
		b.log.Warnf("network: demand %s on %s (%s#%d -> %s#%d, %d-%d) has no feasible vehicle",
			d.ID, d.Origin.Trip(), d.Origin.StopID, d.Origin.StopSequence,
			d.Destination.StopID, d.Destination.StopSequence, u.OriginTime, u.DestinationTime)
	}
	b.log.Warnf("network: %d unservable demands", len(b.unservable))
}

func (b *builder) finish() *model.Network {
	arcs := make([]model.Arc, 0, len(b.arcs))
	for a := range b.arcs {
		arcs = append(arcs, a)
	}
	SortArcs(arcs)
	seen := make(map[model.Node]bool)
	var nodes []model.Node
	for _, a := range arcs {
		for _, n := range [2]model.Node{a.Start, a.End} {
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}
	return &model.Network{
		Setting:     b.opts.Setting,
		Coverage:    b.opts.Coverage,
		Depot:       b.in.Depot,
		Nodes:       nodes,
		Arcs:        arcs,
		Routes:      b.routes,
		Vehicles:    b.vehicles,
		Travel:      b.in.Travel,
		Demands:     b.demands,
		Segments:    b.segments,
		DepotBreaks: b.depotBreaks,
		Unservable:  b.unservable,
	}
}

// SegmentID names a stretch of a trip.
func SegmentID(trip model.TripKey, from, to int) string {
	return fmt.Sprintf("%s:%d-%d", trip, from, to)
}
