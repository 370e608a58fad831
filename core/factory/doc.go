// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation. Solver backends and run-metrics sinks are both
// created through it.
//
// Example usage:
//
//	reg := factory.NewRegistry[milp.Solver]()
//	reg.Register("gonum", func(conf map[string]any) (milp.Solver, error) {
//	    var c struct{ Verbose bool `json:"verbose"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewGonum(nil), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "gonum"})
package factory
