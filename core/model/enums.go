package model

import (
	"fmt"
	"strings"
)

// Setting selects how vehicles and capacity are modelled.
type Setting int

const (
	// SettingUncapacitated models vehicle-agnostic continuous flow.
	SettingUncapacitated Setting = iota
	// SettingCapacitated assigns arcs to individual vehicles with capacity limits.
	SettingCapacitated
	// SettingCapacitatedBreaks adds driver-break compliance to SettingCapacitated.
	SettingCapacitatedBreaks
)

// String returns the configuration name of the setting.
func (s Setting) String() string {
	switch s {
	case SettingUncapacitated:
		return "uncapacitated"
	case SettingCapacitated:
		return "capacitated"
	case SettingCapacitatedBreaks:
		return "capacitated-breaks"
	default:
		return "unknown"
	}
}

// Capacitated reports whether arcs are assigned to vehicles.
func (s Setting) Capacitated() bool {
	return s == SettingCapacitated || s == SettingCapacitatedBreaks
}

// ParseSetting parses a configuration name.
func ParseSetting(v string) (Setting, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "uncapacitated", "":
		return SettingUncapacitated, nil
	case "capacitated", "capacity":
		return SettingCapacitated, nil
	case "capacitated-breaks", "capacity-breaks", "breaks":
		return SettingCapacitatedBreaks, nil
	}
	return 0, fmt.Errorf("unknown setting %q", v)
}

// CoverageMode controls which parts of a route need a service arc.
type CoverageMode int

const (
	// CoverAllTrips requires every trip end to end.
	CoverAllTrips CoverageMode = iota
	// CoverTripsWithDemand requires whole trips that carry at least one demand.
	CoverTripsWithDemand
	// CoverDemandSegments requires only the merged demanded stretches.
	CoverDemandSegments
)

func (m CoverageMode) String() string {
	switch m {
	case CoverAllTrips:
		return "all-trips"
	case CoverTripsWithDemand:
		return "trips-with-demand"
	case CoverDemandSegments:
		return "demand-segments"
	default:
		return "unknown"
	}
}

// ParseCoverageMode parses a configuration name.
func ParseCoverageMode(v string) (CoverageMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "all-trips", "all", "":
		return CoverAllTrips, nil
	case "trips-with-demand", "only-demand":
		return CoverTripsWithDemand, nil
	case "demand-segments", "segments":
		return CoverDemandSegments, nil
	}
	return 0, fmt.Errorf("unknown coverage mode %q", v)
}

// ProblemMode selects the optimisation goal.
type ProblemMode int

const (
	// MinimizeFleet covers every service arc with the fewest vehicles.
	MinimizeFleet ProblemMode = iota
	// MaximizeCoverage covers at least a target share of passengers.
	MaximizeCoverage
)

func (m ProblemMode) String() string {
	switch m {
	case MinimizeFleet:
		return "minimize-fleet"
	case MaximizeCoverage:
		return "maximize-coverage"
	default:
		return "unknown"
	}
}

// ParseProblemMode parses a configuration name.
func ParseProblemMode(v string) (ProblemMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "minimize-fleet", "":
		return MinimizeFleet, nil
	case "maximize-coverage", "service-level":
		return MaximizeCoverage, nil
	}
	return 0, fmt.Errorf("unknown problem mode %q", v)
}
