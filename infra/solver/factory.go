package solver

import (
	"github.com/kilianp07/fleetsched/core/factory"
	"github.com/kilianp07/fleetsched/core/milp"
	"github.com/kilianp07/fleetsched/infra/logger"
)

// init registers built-in solver backends.
func init() {
	_ = milp.Register("gonum", func(conf map[string]any) (milp.Solver, error) {
		var c struct {
			Component string `json:"component"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Component == "" {
			c.Component = "solver"
		}
		return NewGonum(logger.New(c.Component)), nil
	})
}
