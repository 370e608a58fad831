package metrics

import "errors"

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []RunSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...RunSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordStage forwards stage timings to sinks that support them.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			errs = append(errs, rec.RecordStage(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordItinerary forwards itinerary summaries to sinks that support them.
func (m *MultiSink) RecordItinerary(ev ItineraryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ItineraryRecorder); ok {
			errs = append(errs, rec.RecordItinerary(ev))
		}
	}
	return errors.Join(errs...)
}
