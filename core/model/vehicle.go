package model

import "fmt"

// Vehicle is a bus available to the depot for the scheduling day. Shift
// bounds are absolute minutes on the three-day axis used by Route.StopTimes.
type Vehicle struct {
	ID            string `json:"id" yaml:"id"`
	Capacity      int    `json:"capacity" yaml:"capacity"`
	ShiftStart    int    `json:"shift_start" yaml:"shift_start"`
	ShiftEnd      int    `json:"shift_end" yaml:"shift_end"`
	CapacityClass string `json:"capacity_class,omitempty" yaml:"capacity_class,omitempty"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.ShiftEnd < v.ShiftStart {
		return fmt.Errorf("vehicle %s: shift ends before it starts", v.ID)
	}
	if v.Capacity < 0 {
		return fmt.Errorf("vehicle %s: negative capacity", v.ID)
	}
	return nil
}

// ShiftDuration returns the shift length in minutes.
func (v Vehicle) ShiftDuration() int { return v.ShiftEnd - v.ShiftStart }

// Covers reports whether the interval [from,to] lies inside the shift.
func (v Vehicle) Covers(from, to int) bool {
	return from >= v.ShiftStart && to <= v.ShiftEnd
}

// ShiftUnion returns the smallest window covering every vehicle shift. It
// returns ok=false for an empty fleet.
func ShiftUnion(vehicles []Vehicle) (start, end int, ok bool) {
	for i, v := range vehicles {
		if i == 0 || v.ShiftStart < start {
			start = v.ShiftStart
		}
		if i == 0 || v.ShiftEnd > end {
			end = v.ShiftEnd
		}
	}
	return start, end, len(vehicles) > 0
}
