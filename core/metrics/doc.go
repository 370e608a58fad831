package metrics

// Package metrics defines the sinks scheduling runs are reported to. A
// RunSink receives one RunEvent per run; sinks may also implement
// StageRecorder and ItineraryRecorder for finer detail. NewRunSink builds
// sinks from configuration and returns a MultiSink when several are
// configured.
