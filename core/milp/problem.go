// Package milp describes mixed-integer linear programs independently of
// the solver that evaluates them.
package milp

import (
	"errors"
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
	Integer
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	case Integer:
		return "integer"
	default:
		return "unknown"
	}
}

// Variable is a decision variable with finite, non-negative lower bound.
// Upper may be +Inf.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// IsInteger reports whether the variable must take an integral value.
func (v Variable) IsInteger() bool { return v.Kind == Binary || v.Kind == Integer }

// Term is coef * x[Var].
type Term struct {
	Var  int
	Coef float64
}

// Op is the sense of a constraint.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "?"
	}
}

// Constraint is sum(Terms) Op RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Problem minimises Objective subject to Constraints.
type Problem struct {
	Vars        []Variable
	Constraints []Constraint
	Objective   []Term
}

// AddVar appends a variable and returns its index. Binary variables get
// bounds [0,1] regardless of the arguments.
func (p *Problem) AddVar(name string, kind VarKind, lower, upper float64) int {
	if kind == Binary {
		lower, upper = 0, 1
	}
	p.Vars = append(p.Vars, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return len(p.Vars) - 1
}

// AddConstraint appends a constraint. Empty constraints are dropped.
func (p *Problem) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	if len(terms) == 0 {
		return
	}
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

// Minimize adds coef * x[v] to the objective.
func (p *Problem) Minimize(v int, coef float64) {
	p.Objective = append(p.Objective, Term{Var: v, Coef: coef})
}

// ErrInvalidProblem wraps structural problems found by Validate.
var ErrInvalidProblem = errors.New("milp: invalid problem")

// Validate checks indices and bounds.
func (p *Problem) Validate() error {
	for i, v := range p.Vars {
		if v.Lower < 0 || math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return fmt.Errorf("%w: variable %d (%s) lower bound %v", ErrInvalidProblem, i, v.Name, v.Lower)
		}
		if v.Upper < v.Lower {
			return fmt.Errorf("%w: variable %d (%s) has empty domain", ErrInvalidProblem, i, v.Name)
		}
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return fmt.Errorf("%w: %s references variable %d", ErrInvalidProblem, where, t.Var)
			}
		}
		return nil
	}
	if err := check("objective", p.Objective); err != nil {
		return err
	}
	for _, c := range p.Constraints {
		if err := check("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate returns the objective value of x.
func (p *Problem) Evaluate(x []float64) float64 {
	return dot(p.Objective, x)
}

// Check returns the first constraint or bound violated by more than tol.
func (p *Problem) Check(x []float64, tol float64) error {
	if len(x) != len(p.Vars) {
		return fmt.Errorf("milp: %d values for %d variables", len(x), len(p.Vars))
	}
	for i, v := range p.Vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			return fmt.Errorf("milp: %s=%v outside [%v,%v]", v.Name, x[i], v.Lower, v.Upper)
		}
		if v.IsInteger() && math.Abs(x[i]-math.Round(x[i])) > tol {
			return fmt.Errorf("milp: %s=%v not integral", v.Name, x[i])
		}
	}
	for _, c := range p.Constraints {
		lhs := dot(c.Terms, x)
		ok := true
		switch c.Op {
		case LE:
			ok = lhs <= c.RHS+tol
		case GE:
			ok = lhs >= c.RHS-tol
		case EQ:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("milp: constraint %s violated: %v %s %v", c.Name, lhs, c.Op, c.RHS)
		}
	}
	return nil
}

func dot(terms []Term, x []float64) float64 {
	s := 0.0
	for _, t := range terms {
		s += t.Coef * x[t.Var]
	}
	return s
}
