package generator

import (
	"sort"

	"github.com/kilianp07/fleetsched/core/model"
)

// sortTravel orders records by origin then destination so output files
// are stable across runs.
func sortTravel(t []model.TravelTime) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Origin != t[j].Origin {
			return t[i].Origin < t[j].Origin
		}
		return t[i].Destination < t[j].Destination
	})
}
