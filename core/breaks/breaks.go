// Package breaks finds inter-trip connections during which a driver can
// take a regulatory rest break.
//
// A shift longer than 4.5 hours needs either one 45 minute break or a
// 15 minute break followed by a 30 minute break. Each candidate set holds,
// per vehicle, the inter-trip arcs long enough for that break and placed
// inside its time window.
package breaks

import (
	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/model"
)

// Durations and windows in minutes.
const (
	LongShift = 270

	Long45  = 45
	Split15 = 15
	Split30 = 30

	long45Window      = 270
	long45ToShiftEnd  = 270
	split15Window     = 180
	split30Earliest   = 180
	split30Latest     = 285
	split30ToShiftEnd = 270
)

// Kind identifies a break set.
type Kind int

const (
	KindLong45 Kind = iota
	KindSplit15
	KindSplit30
)

func (k Kind) String() string {
	switch k {
	case KindLong45:
		return "long-45"
	case KindSplit15:
		return "split-15"
	case KindSplit30:
		return "split-30"
	default:
		return "unknown"
	}
}

// Minutes returns the break length of the set.
func (k Kind) Minutes() int {
	switch k {
	case KindLong45:
		return Long45
	case KindSplit15:
		return Split15
	case KindSplit30:
		return Split30
	default:
		return 0
	}
}

// Sets holds the candidate break arcs keyed by vehicle id.
type Sets struct {
	Long45  map[string][]model.Arc `json:"long_45"`
	Split15 map[string][]model.Arc `json:"split_15"`
	Split30 map[string][]model.Arc `json:"split_30"`
	// LongShift lists the vehicles whose shift requires a break.
	LongShift []string `json:"long_shift"`
}

// NewSets returns empty sets.
func NewSets() Sets {
	return Sets{
		Long45:  make(map[string][]model.Arc),
		Split15: make(map[string][]model.Arc),
		Split30: make(map[string][]model.Arc),
	}
}

// Of returns the set of the given kind.
func (s Sets) Of(k Kind) map[string][]model.Arc {
	switch k {
	case KindLong45:
		return s.Long45
	case KindSplit15:
		return s.Split15
	case KindSplit30:
		return s.Split30
	default:
		return nil
	}
}

// Contains reports whether arc is a break candidate of kind k.
func (s Sets) Contains(k Kind, a model.Arc) bool {
	for _, c := range s.Of(k)[a.VehicleID] {
		if c == a {
			return true
		}
	}
	return false
}

// Total returns the number of candidate arcs across all sets.
func (s Sets) Total() int {
	n := 0
	for _, m := range []map[string][]model.Arc{s.Long45, s.Split15, s.Split30} {
		for _, arcs := range m {
			n += len(arcs)
		}
	}
	return n
}

// Classify scans the inter-trip arcs of every long-shift vehicle. Arcs
// whose endpoints or travel time cannot be resolved are skipped.
func Classify(net *model.Network, log logger.Logger) Sets {
	log = logger.OrNop(log)
	sets := NewSets()
	if !net.Setting.Capacitated() {
		return sets
	}
	inter := make(map[string][]model.Arc)
	for _, a := range net.InterTripArcs() {
		inter[a.VehicleID] = append(inter[a.VehicleID], a)
	}
	for _, v := range net.Vehicles {
		if v.ShiftDuration() <= LongShift {
			continue
		}
		sets.LongShift = append(sets.LongShift, v.ID)
		for _, a := range inter[v.ID] {
			leave, ok1 := net.Routes.TimeOf(a.Start)
			arrive, ok2 := net.Routes.TimeOf(a.End)
			tt, ok3 := net.Travel.Lookup(a.Start.StopID, a.End.StopID)
			if !ok1 || !ok2 || !ok3 {
				log.Warnf("breaks: cannot resolve timing of %s", a)
				continue
			}
			for _, k := range classify(v, leave, arrive, tt) {
				m := sets.Of(k)
				m[v.ID] = append(m[v.ID], a)
			}
		}
	}
	return sets
}

// classify returns the break kinds an idle period [leave,arrive] with the
// given deadhead supports for vehicle v.
func classify(v model.Vehicle, leave, arrive, tt int) []Kind {
	slack := arrive - leave
	sinceStart := leave - v.ShiftStart
	toEnd := v.ShiftEnd - arrive
	var kinds []Kind
	if slack >= tt+Long45 && sinceStart <= long45Window && toEnd <= long45ToShiftEnd {
		kinds = append(kinds, KindLong45)
	}
	if slack >= tt+Split15 && sinceStart <= split15Window {
		kinds = append(kinds, KindSplit15)
	}
	if slack >= tt+Split30 && sinceStart >= split30Earliest && sinceStart <= split30Latest && toEnd <= split30ToShiftEnd {
		kinds = append(kinds, KindSplit30)
	}
	return kinds
}
