// Package scenarios replays YAML scheduling scenarios end to end and
// checks their outcome.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/internal/instance"
)

// Expected is the outcome a scenario must reproduce.
type Expected struct {
	Status     string   `yaml:"status"`
	FleetSize  int      `yaml:"fleet_size"`
	Vehicles   []string `yaml:"vehicles,omitempty"`
	Unservable []string `yaml:"unservable,omitempty"`
	// MinBreakMinutes is checked per vehicle when set.
	MinBreakMinutes int `yaml:"min_break_minutes,omitempty"`
}

type Scenario struct {
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description,omitempty"`
	Config      scheduler.SchedulerConfig `yaml:"config"`
	Instance    instance.File             `yaml:"instance"`
	Expected    Expected                  `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
