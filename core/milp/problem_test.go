package milp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_AddVarAndConstraint(t *testing.T) {
	var p Problem
	x := p.AddVar("x", Binary, -3, 7)
	y := p.AddVar("y", Continuous, 0, math.Inf(1))
	assert.Equal(t, Variable{Name: "x", Kind: Binary, Lower: 0, Upper: 1}, p.Vars[x])
	assert.True(t, p.Vars[x].IsInteger())
	assert.False(t, p.Vars[y].IsInteger())

	p.AddConstraint("empty", nil, LE, 1)
	assert.Empty(t, p.Constraints)
	p.AddConstraint("sum", []Term{{Var: x, Coef: 1}, {Var: y, Coef: 2}}, GE, 2)
	require.Len(t, p.Constraints, 1)

	p.Minimize(y, 3)
	assert.InDelta(t, 6, p.Evaluate([]float64{0, 2}), 1e-9)
	require.NoError(t, p.Validate())
}

func TestProblem_Check(t *testing.T) {
	var p Problem
	x := p.AddVar("x", Integer, 0, 5)
	y := p.AddVar("y", Continuous, 0, 5)
	p.AddConstraint("eq", []Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, EQ, 3)

	assert.NoError(t, p.Check([]float64{2, 1}, 1e-9))
	assert.ErrorContains(t, p.Check([]float64{1.5, 1.5}, 1e-9), "not integral")
	assert.ErrorContains(t, p.Check([]float64{2, 2}, 1e-9), "eq")
	assert.ErrorContains(t, p.Check([]float64{6, -3}, 1e-9), "outside")
	assert.Error(t, p.Check([]float64{1}, 1e-9))
}

func TestProblem_ValidateRejects(t *testing.T) {
	p := Problem{Vars: []Variable{{Name: "x", Lower: math.Inf(-1), Upper: 1}}}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProblem)

	p = Problem{Vars: []Variable{{Name: "x", Lower: 2, Upper: 1}}}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProblem)

	p = Problem{Vars: []Variable{{Name: "x", Upper: 1}}, Objective: []Term{{Var: 4, Coef: 1}}}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProblem)
}

func TestSolverConfig_Defaults(t *testing.T) {
	var c SolverConfig
	c.SetDefaults()
	assert.Equal(t, "gonum", c.Backend)
	assert.Equal(t, 1, c.Threads)
	assert.NoError(t, c.Validate())

	c.MIPGap = 1
	assert.Error(t, c.Validate())
	c = SolverConfig{TimeLimitSeconds: 1.5}
	assert.Equal(t, "1.5s", c.TimeLimit().String())
}
