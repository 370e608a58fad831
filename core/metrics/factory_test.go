package metrics_test

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsched/core/factory"
	metrics "github.com/kilianp07/fleetsched/core/metrics"
	_ "github.com/kilianp07/fleetsched/infra/metrics"
)

/*
TestNewRunSink validates NewRunSink with zero, one, and multiple configs.
Cases:
  - no config -> NopSink
  - one nop config -> the sink itself
  - two configs -> MultiSink with two sub-sinks
  - unknown type -> error
*/
func TestNewRunSink(t *testing.T) {
	s, err := metrics.NewRunSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewRunSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil || s == nil {
		t.Fatalf("create nop: %v", err)
	}

	s, err = metrics.NewRunSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}

	if _, err := metrics.NewRunSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestMetricsConfigDecode(t *testing.T) {
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte("sinks:\n  - type: nop\n  - type: nop\n"), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if len(cfg.Sinks) != 2 {
		t.Fatalf("expected 2 sinks got %d", len(cfg.Sinks))
	}

	if err := json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := metrics.NewRunSink(cfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestRegistered(t *testing.T) {
	names := metrics.Registered()
	for _, want := range []string{"nop", "prometheus", "influx"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("sink %q not registered: %v", want, names)
		}
	}
}
