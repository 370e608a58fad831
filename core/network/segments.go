package network

import (
	"sort"
	"strings"

	"github.com/kilianp07/fleetsched/core/model"
)

// Interval is a [From,To] range of stop positions on one trip.
type Interval struct {
	From int
	To   int
}

// MergeSegments sorts intervals by start and merges those that overlap or
// touch: the next interval joins the current one when its start does not
// exceed the current end.
func MergeSegments(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := append([]Interval(nil), in...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})
	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		cur := &out[len(out)-1]
		if iv.From <= cur.To {
			if iv.To > cur.To {
				cur.To = iv.To
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// SortArcs orders arcs deterministically by kind, vehicle, endpoints and
// segments.
func SortArcs(arcs []model.Arc) {
	sort.Slice(arcs, func(i, j int) bool { return compareArcs(arcs[i], arcs[j]) < 0 })
}

func compareArcs(a, b model.Arc) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	if c := strings.Compare(a.VehicleID, b.VehicleID); c != 0 {
		return c
	}
	if c := compareNodes(a.Start, b.Start); c != 0 {
		return c
	}
	if c := compareNodes(a.End, b.End); c != 0 {
		return c
	}
	if c := strings.Compare(a.Segments.Start, b.Segments.Start); c != 0 {
		return c
	}
	if c := strings.Compare(a.Segments.End, b.Segments.End); c != 0 {
		return c
	}
	return a.Load - b.Load
}

func compareNodes(a, b model.Node) int {
	if c := strings.Compare(a.RouteID, b.RouteID); c != 0 {
		return c
	}
	if c := strings.Compare(a.TripID, b.TripID); c != 0 {
		return c
	}
	if a.TripSequence != b.TripSequence {
		return a.TripSequence - b.TripSequence
	}
	if a.StopSequence != b.StopSequence {
		return a.StopSequence - b.StopSequence
	}
	return strings.Compare(a.StopID, b.StopID)
}
