package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/milp"
	"github.com/kilianp07/fleetsched/core/model"
)

const integralityTol = 1e-6

// GonumSolver solves LP relaxations with the gonum simplex and closes the
// integrality gap with depth-first branch-and-bound. It is single-threaded;
// SolverConfig.Threads is ignored.
type GonumSolver struct {
	log logger.Logger
}

// NewGonum returns a solver logging to log.
func NewGonum(log logger.Logger) *GonumSolver {
	return &GonumSolver{log: logger.OrNop(log)}
}

type bnbNode struct {
	lo, hi []float64
	depth  int
}

// Solve implements milp.Solver.
func (s *GonumSolver) Solve(ctx context.Context, p *milp.Problem, cfg milp.SolverConfig) (milp.Result, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return milp.Result{Status: model.StatusOther}, err
	}
	if err := p.Validate(); err != nil {
		return milp.Result{Status: model.StatusOther}, err
	}
	start := time.Now()
	if limit := cfg.TimeLimit(); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	root := bnbNode{lo: make([]float64, len(p.Vars)), hi: make([]float64, len(p.Vars))}
	for i, v := range p.Vars {
		root.lo[i], root.hi[i] = v.Lower, v.Upper
		if v.IsInteger() {
			root.lo[i] = math.Ceil(v.Lower - integralityTol)
			root.hi[i] = math.Floor(v.Upper + integralityTol)
		}
	}
	integralObj := integralObjective(p)

	best := math.Inf(1)
	var bestX []float64
	nodes := 0
	limited := false
	stack := []bnbNode{root}
	for len(stack) > 0 {
		if ctx.Err() != nil || (cfg.MaxNodes > 0 && nodes >= cfg.MaxNodes) {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, err := relax(p, nd.lo, nd.hi, cfg.Tolerance)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			s.log.Errorf("solver: relaxation at depth %d failed: %v", nd.depth, err)
			return milp.Result{Status: model.StatusOther, Nodes: nodes, Elapsed: time.Since(start)}, err
		}
		if prune(obj, best, cfg.MIPGap, integralObj) {
			continue
		}
		j := branchVariable(p, x)
		if j < 0 {
			best, bestX = obj, x
			s.log.Debugf("solver: incumbent %.4f at node %d", best, nodes)
			continue
		}
		down := bnbNode{lo: clone(nd.lo), hi: clone(nd.hi), depth: nd.depth + 1}
		down.hi[j] = math.Floor(x[j])
		up := bnbNode{lo: clone(nd.lo), hi: clone(nd.hi), depth: nd.depth + 1}
		up.lo[j] = math.Ceil(x[j])
		stack = append(stack, down, up)
	}

	// Without an incumbent the objective stays 0; best is +Inf then.
	res := milp.Result{Values: bestX, Nodes: nodes, Elapsed: time.Since(start)}
	if bestX != nil {
		res.Objective = best
	}
	switch {
	case limited:
		res.Status = model.StatusTimeLimit
		s.log.Warnf("solver: limit reached after %d nodes (%s)", nodes, res.Elapsed)
	case bestX == nil:
		res.Status = model.StatusInfeasible
	default:
		res.Status = model.StatusOptimal
	}
	return res, nil
}

// prune reports whether a relaxation bound cannot improve on the incumbent.
func prune(bound, best, gap float64, integralObj bool) bool {
	if math.IsInf(best, 1) {
		return false
	}
	if integralObj && math.Ceil(bound-integralityTol) >= best-integralityTol {
		return true
	}
	tol := math.Max(integralityTol, gap*math.Abs(best))
	return bound >= best-tol
}

// integralObjective reports whether every feasible point has an integral
// objective value.
func integralObjective(p *milp.Problem) bool {
	for _, t := range p.Objective {
		if t.Coef != math.Trunc(t.Coef) || !p.Vars[t.Var].IsInteger() {
			return false
		}
	}
	return true
}

// branchVariable returns the most fractional integer variable, or -1.
func branchVariable(p *milp.Problem, x []float64) int {
	best, bestDist := -1, 1.0
	for i, v := range p.Vars {
		if !v.IsInteger() {
			continue
		}
		f := x[i] - math.Floor(x[i])
		if f < integralityTol || f > 1-integralityTol {
			continue
		}
		if d := math.Abs(f - 0.5); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }

// relax solves the LP relaxation of p within the bounds [lo,hi]. Fixed
// variables are substituted out and the rest are shifted to start at zero.
// Every row gets its own slack column and equalities are split into a
// <= and a >= row, so the standard-form matrix always has full row rank.
func relax(p *milp.Problem, lo, hi []float64, tol float64) (float64, []float64, error) {
	n := len(p.Vars)
	col := make([]int, n)
	free := 0
	for i := 0; i < n; i++ {
		if hi[i] < lo[i]-integralityTol {
			return 0, nil, lp.ErrInfeasible
		}
		if hi[i]-lo[i] <= integralityTol {
			col[i] = -1
			continue
		}
		col[i] = free
		free++
	}

	type row struct {
		coef  map[int]float64
		slack float64
		rhs   float64
	}
	var rows []row
	used := make([]bool, free)
	for _, c := range p.Constraints {
		coef := make(map[int]float64)
		rhs := c.RHS
		for _, t := range c.Terms {
			rhs -= t.Coef * lo[t.Var]
			if j := col[t.Var]; j >= 0 && t.Coef != 0 {
				coef[j] += t.Coef
			}
		}
		for j, v := range coef {
			if v == 0 {
				delete(coef, j)
			}
		}
		if len(coef) == 0 {
			if !constantHolds(c.Op, rhs, tol) {
				return 0, nil, lp.ErrInfeasible
			}
			continue
		}
		for j := range coef {
			used[j] = true
		}
		switch c.Op {
		case milp.LE:
			rows = append(rows, row{coef: coef, slack: 1, rhs: rhs})
		case milp.GE:
			rows = append(rows, row{coef: coef, slack: -1, rhs: rhs})
		case milp.EQ:
			rows = append(rows, row{coef: coef, slack: 1, rhs: rhs}, row{coef: coef, slack: -1, rhs: rhs})
		default:
			return 0, nil, fmt.Errorf("solver: unknown operator %d in %s", int(c.Op), c.Name)
		}
	}
	for i := 0; i < n; i++ {
		if j := col[i]; j >= 0 && !math.IsInf(hi[i], 1) {
			rows = append(rows, row{coef: map[int]float64{j: 1}, slack: 1, rhs: hi[i] - lo[i]})
			used[j] = true
		}
	}

	cost := make([]float64, free)
	offset := 0.0
	for _, t := range p.Objective {
		offset += t.Coef * lo[t.Var]
		if j := col[t.Var]; j >= 0 {
			cost[j] += t.Coef
		}
	}
	for j := 0; j < free; j++ {
		if !used[j] && cost[j] < 0 {
			return 0, nil, lp.ErrUnbounded
		}
	}

	y := make([]float64, free)
	obj := offset
	if len(rows) > 0 {
		// Columns that appear in no row sit at zero and are left out.
		active := make([]int, free)
		nActive := 0
		for j := 0; j < free; j++ {
			active[j] = -1
			if used[j] {
				active[j] = nActive
				nActive++
			}
		}
		m := len(rows)
		a := mat.NewDense(m, nActive+m, nil)
		b := make([]float64, m)
		c := make([]float64, nActive+m)
		for j := 0; j < free; j++ {
			if active[j] >= 0 {
				c[active[j]] = cost[j]
			}
		}
		for r, rw := range rows {
			sign := 1.0
			if rw.rhs < 0 {
				sign = -1
			}
			for j, v := range rw.coef {
				a.Set(r, active[j], sign*v)
			}
			a.Set(r, nActive+r, sign*rw.slack)
			b[r] = sign * rw.rhs
		}
		optF, optX, err := lp.Simplex(c, a, b, tol, nil)
		if err != nil {
			return 0, nil, err
		}
		obj += optF
		for j := 0; j < free; j++ {
			if active[j] >= 0 {
				y[j] = optX[active[j]]
			}
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = lo[i]
		if j := col[i]; j >= 0 {
			x[i] += y[j]
		}
	}
	return obj, x, nil
}

func constantHolds(op milp.Op, rhs, tol float64) bool {
	switch op {
	case milp.LE:
		return rhs >= -tol
	case milp.GE:
		return rhs <= tol
	case milp.EQ:
		return math.Abs(rhs) <= tol
	default:
		return false
	}
}
