package scheduler

// Package scheduler runs the vehicle scheduling pipeline for one depot and
// service day: network construction, break classification, formulation,
// solving and decoding. Each stage is timed and published on an optional
// event bus, and the finished run is reported to a metrics sink.
