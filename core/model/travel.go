package model

// StopPair is a directed (origin, destination) stop pair.
type StopPair struct {
	Origin      string
	Destination string
}

// TravelTime is the deadhead duration between two stops.
type TravelTime struct {
	Origin        string `json:"origin" yaml:"origin"`
	Destination   string `json:"destination" yaml:"destination"`
	Minutes       int    `json:"minutes" yaml:"minutes"`
	IsDepotTravel bool   `json:"is_depot_travel" yaml:"is_depot_travel"`
}

// TravelTimes is a directed lookup table. Depot-to-stop and stop-to-depot
// entries are distinct records.
type TravelTimes map[StopPair]TravelTime

// NewTravelTimes indexes the records. Later duplicates win.
func NewTravelTimes(records []TravelTime) TravelTimes {
	t := make(TravelTimes, len(records))
	for _, r := range records {
		t[StopPair{Origin: r.Origin, Destination: r.Destination}] = r
	}
	return t
}

// Lookup returns the travel minutes from one stop to another. Travelling
// from a stop to itself is free even without an explicit record.
func (t TravelTimes) Lookup(from, to string) (int, bool) {
	if r, ok := t[StopPair{Origin: from, Destination: to}]; ok {
		return r.Minutes, true
	}
	if from == to {
		return 0, true
	}
	return 0, false
}
