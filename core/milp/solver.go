package milp

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fleetsched/core/factory"
	"github.com/kilianp07/fleetsched/core/model"
)

// Result is the outcome of a solve. Values is indexed like Problem.Vars and
// is nil when no feasible point was found.
type Result struct {
	Status    model.Status
	Objective float64
	Values    []float64
	Nodes     int
	Elapsed   time.Duration
}

// Solver evaluates a Problem. Infeasibility and limits are reported through
// Result.Status; the error is reserved for malformed input or backend
// failures.
type Solver interface {
	Solve(ctx context.Context, p *Problem, cfg SolverConfig) (Result, error)
}

// SolverConfig carries solver limits. It is passed explicitly to the
// backend rather than looked up from global state.
type SolverConfig struct {
	// Backend names a registered solver implementation.
	Backend string `json:"backend" yaml:"backend"`
	// TimeLimitSeconds bounds the wall-clock time of one solve; 0 disables.
	TimeLimitSeconds float64 `json:"time_limit_seconds" yaml:"time_limit_seconds"`
	// MIPGap is the relative optimality gap at which search stops.
	MIPGap float64 `json:"mip_gap" yaml:"mip_gap"`
	// MaxNodes bounds the branch-and-bound tree; 0 disables.
	MaxNodes  int     `json:"max_nodes" yaml:"max_nodes"`
	Threads   int     `json:"threads" yaml:"threads"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	// Options holds backend-specific settings.
	Options map[string]any `json:"options" yaml:"options"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "gonum"
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-7
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
}

// Validate checks the limits.
func (c SolverConfig) Validate() error {
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("time_limit_seconds must not be negative")
	}
	if c.MIPGap < 0 || c.MIPGap >= 1 {
		return fmt.Errorf("mip_gap must be in [0,1)")
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must not be negative")
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative")
	}
	return nil
}

// TimeLimit returns the time limit as a duration.
func (c SolverConfig) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}

var registry = factory.NewRegistry[Solver]()

// Register adds a solver backend identified by name.
func Register(name string, f factory.Factory[Solver]) error {
	return registry.Register(name, f)
}

// New instantiates the backend named by cfg.Backend.
func New(cfg SolverConfig) (Solver, error) {
	cfg.SetDefaults()
	return registry.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: cfg.Options})
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
