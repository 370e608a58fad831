package model

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Stop is immutable reference data for a bus stop.
type Stop struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Location Location `json:"location" yaml:"location"`
}

// Depot is the garage vehicles leave from and return to. One per instance.
type Depot struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Location Location `json:"location" yaml:"location"`
}
