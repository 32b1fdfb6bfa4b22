// Package refsolver is a from-scratch reference implementation of the
// solver façade (spec §4.C). It assigns bit-vector variables by bounded
// backtracking search rather than delegating to an external SMT engine —
// no SMT binding exists anywhere in the dependency corpus this module
// draws from, so the façade's reachability-graph extension is compiled
// down to ordinary boolean terms over per-query edge-selector variables,
// checked with github.com/katalvlaran/lvlath's BFS (see graph.go).
package refsolver

import (
	"context"
	"fmt"

	"github.com/sarchlab/cgrapnr/pnrerr"
	"github.com/sarchlab/cgrapnr/solver"
)

type varInfo struct {
	name string
	bits int
}

// Solver is the concrete solver.Solver backend.
type Solver struct {
	vars    []varInfo
	exprs   []exprNode
	asserts []solver.BoolExpr
	graphs  []*graphImpl

	fixed map[solver.Var]int64

	queryCounter int
}

// New returns an empty Solver.
func New() *Solver {
	return &Solver{fixed: make(map[solver.Var]int64)}
}

var _ solver.Solver = (*Solver)(nil)
var _ solver.Model = (*model)(nil)
var _ solver.Graph = (*graphImpl)(nil)

func (s *Solver) nextQueryID() int {
	s.queryCounter++
	return s.queryCounter
}

// BVVar implements solver.Solver.
func (s *Solver) BVVar(name string, bits int) solver.Var {
	s.vars = append(s.vars, varInfo{name: name, bits: bits})
	return solver.Var(len(s.vars) - 1)
}

// Const implements solver.Solver.
func (s *Solver) Const(bits int, value int64) solver.Var {
	v := s.BVVar(fmt.Sprintf("const_%d", value), bits)
	s.fixed[v] = value
	return v
}

// Assert implements solver.Solver.
func (s *Solver) Assert(c solver.BoolExpr) {
	s.asserts = append(s.asserts, c)
}

func (v varInfo) domainSize() int64 { return int64(1) << uint(v.bits) }

// Solve implements solver.Solver with exhaustive backtracking over every
// variable referenced by an asserted constraint, pruning as soon as a
// constraint's variables are fully bound. Variables not referenced by any
// constraint are left at 0 in the returned model.
func (s *Solver) Solve(ctx context.Context) (solver.Model, error) {
	referenced := s.collectReferencedVars()

	assign := make(map[solver.Var]int64, len(referenced)+len(s.fixed))
	for v, val := range s.fixed {
		assign[v] = val
	}

	for _, a := range s.constOnlyAsserts(referenced) {
		if !s.eval(a, assign) {
			return nil, solver.ErrUnsat
		}
	}

	ready := s.readyConstraintsByVar(referenced)

	ok, err := s.search(ctx, referenced, 0, assign, ready)
	if err != nil {
		return nil, &pnrerr.SolverError{Err: err}
	}
	if !ok {
		return nil, solver.ErrUnsat
	}

	full := make(map[solver.Var]int64, len(s.vars))
	for v := range s.vars {
		full[solver.Var(v)] = assign[solver.Var(v)]
	}
	return &model{solver: s, assign: full}, nil
}

// collectReferencedVars returns, in discovery order, every non-Const
// variable referenced by an asserted constraint. Const variables are
// pre-bound in s.fixed and never branch during search.
func (s *Solver) collectReferencedVars() []solver.Var {
	seen := make(map[solver.Var]bool)
	var order []solver.Var
	for _, a := range s.asserts {
		for _, v := range s.refVars(a) {
			if seen[v] {
				continue
			}
			seen[v] = true
			if _, isConst := s.fixed[v]; isConst {
				continue
			}
			order = append(order, v)
		}
	}
	return order
}

// constOnlyAsserts returns every asserted constraint whose referenced
// variables are all already bound (Const variables only), so they can be
// checked once before search begins rather than waiting for a search
// position that never arrives.
func (s *Solver) constOnlyAsserts(order []solver.Var) []solver.BoolExpr {
	pos := make(map[solver.Var]bool, len(order))
	for _, v := range order {
		pos[v] = true
	}
	var out []solver.BoolExpr
	for _, a := range s.asserts {
		dependsOnSearchVar := false
		for _, v := range s.refVars(a) {
			if pos[v] {
				dependsOnSearchVar = true
				break
			}
		}
		if !dependsOnSearchVar {
			out = append(out, a)
		}
	}
	return out
}

// readyConstraintsByVar maps each variable's position in the search order
// to the asserted constraints that become fully bound once that variable
// (and everything before it) is assigned, so search can prune eagerly.
func (s *Solver) readyConstraintsByVar(order []solver.Var) [][]solver.BoolExpr {
	pos := make(map[solver.Var]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	ready := make([][]solver.BoolExpr, len(order))
	for _, a := range s.asserts {
		maxPos := -1
		for _, v := range s.refVars(a) {
			p, ok := pos[v]
			if ok && p > maxPos {
				maxPos = p
			}
		}
		if maxPos >= 0 {
			ready[maxPos] = append(ready[maxPos], a)
		}
	}
	return ready
}

func (s *Solver) search(
	ctx context.Context,
	order []solver.Var,
	i int,
	assign map[solver.Var]int64,
	ready [][]solver.BoolExpr,
) (bool, error) {
	if i == len(order) {
		return true, nil
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	v := order[i]
	info := s.vars[v]
	for val := int64(0); val < info.domainSize(); val++ {
		assign[v] = val
		if s.satisfiesSoFar(ready[i], assign) {
			ok, err := s.search(ctx, order, i+1, assign, ready)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	delete(assign, v)
	return false, nil
}

func (s *Solver) satisfiesSoFar(ready []solver.BoolExpr, assign map[solver.Var]int64) bool {
	for _, c := range ready {
		if !s.eval(c, assign) {
			return false
		}
	}
	return true
}

func (s *Solver) varName(v solver.Var) string {
	if int(v) < 0 || int(v) >= len(s.vars) {
		return fmt.Sprintf("var%d", v)
	}
	return s.vars[v].name
}
