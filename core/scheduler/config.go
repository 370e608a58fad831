package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsched/core/formulation"
	"github.com/kilianp07/fleetsched/core/milp"
	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/network"
)

// SchedulerConfig selects the network variant, the objective and the
// solver limits of a run.
type SchedulerConfig struct {
	Setting     string `json:"setting" yaml:"setting"`
	Coverage    string `json:"coverage" yaml:"coverage"`
	ProblemMode string `json:"problem_mode" yaml:"problem_mode"`
	// ServiceLevel is the passenger share to cover in maximize-coverage mode.
	ServiceLevel float64 `json:"service_level" yaml:"service_level"`
	// FleetAvailability caps dispatched vehicles per capacity class.
	FleetAvailability map[string]int   `json:"fleet_availability" yaml:"fleet_availability"`
	Solver            milp.SolverConfig `json:"solver" yaml:"solver"`
}

// SetDefaults fills unset fields.
func (c *SchedulerConfig) SetDefaults() {
	if c.Setting == "" {
		c.Setting = model.SettingCapacitated.String()
	}
	if c.Coverage == "" {
		c.Coverage = model.CoverTripsWithDemand.String()
	}
	if c.ProblemMode == "" {
		c.ProblemMode = model.MinimizeFleet.String()
	}
	if c.ServiceLevel == 0 && c.ProblemMode == model.MaximizeCoverage.String() {
		c.ServiceLevel = 1
	}
	c.Solver.SetDefaults()
}

// Validate checks that every name parses and the combination is buildable.
func (c SchedulerConfig) Validate() error {
	net, form, err := c.Options()
	if err != nil {
		return err
	}
	if net.Setting.Capacitated() && net.Coverage == model.CoverDemandSegments {
		return fmt.Errorf("%w: %s with %s", network.ErrUnsupportedCombination, net.Coverage, net.Setting)
	}
	if form.Mode == model.MaximizeCoverage && (form.ServiceLevel <= 0 || form.ServiceLevel > 1) {
		return fmt.Errorf("%w: got %v", formulation.ErrInvalidServiceLevel, form.ServiceLevel)
	}
	for class, n := range c.FleetAvailability {
		if n < 0 {
			return fmt.Errorf("fleet_availability[%s] must not be negative", class)
		}
	}
	return c.Solver.Validate()
}

// Options parses the configuration into network and formulation options.
func (c SchedulerConfig) Options() (network.Options, formulation.Options, error) {
	setting, err := model.ParseSetting(c.Setting)
	if err != nil {
		return network.Options{}, formulation.Options{}, err
	}
	coverage, err := model.ParseCoverageMode(c.Coverage)
	if err != nil {
		return network.Options{}, formulation.Options{}, err
	}
	mode, err := model.ParseProblemMode(c.ProblemMode)
	if err != nil {
		return network.Options{}, formulation.Options{}, err
	}
	return network.Options{Setting: setting, Coverage: coverage},
		formulation.Options{Mode: mode, ServiceLevel: c.ServiceLevel, FleetAvailability: c.FleetAvailability},
		nil
}

// LoadConfig loads SchedulerConfig from a JSON or YAML file.
func LoadConfig(path string) (SchedulerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return SchedulerConfig{}, err
	}
	defer f.Close()
	return DecodeConfig(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeConfig reads from r to decode a SchedulerConfig.
func DecodeConfig(r io.Reader, format string) (SchedulerConfig, error) {
	var cfg SchedulerConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", format)
	}
	return cfg, nil
}
