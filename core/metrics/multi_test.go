package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	runs   int
	stages int
	err    error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordStage(StageEvent) error {
	r.stages++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunEvent{RunID: "r"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordStage(StageEvent{Stage: "solve"}); err != nil {
		t.Fatalf("record stage: %v", err)
	}
	if err := m.RecordItinerary(ItineraryEvent{}); err != nil {
		t.Fatalf("record itinerary: %v", err)
	}
	if s1.runs != 1 || s2.runs != 1 || s1.stages != 1 {
		t.Fatalf("events not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSink_ContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &runOnly{}
	err := NewMultiSink(s1, s2).RecordRun(RunEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.runs != 1 {
		t.Fatalf("second sink skipped")
	}
}
