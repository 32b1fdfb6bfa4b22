package refsolver

import "github.com/sarchlab/cgrapnr/solver"

type model struct {
	solver *Solver
	assign map[solver.Var]int64
}

// Value implements solver.Model.
func (m *model) Value(v solver.Var) int64 {
	return m.assign[v]
}

// Path implements solver.Model. It re-derives the satisfying path from the
// model's edge-selector assignment rather than caching one at Solve time,
// since a model may be queried for any reach term that was ever asserted.
func (m *model) Path(reach solver.BoolExpr) ([]solver.Node, bool) {
	if int(reach) < 0 || int(reach) >= len(m.solver.exprs) {
		return nil, false
	}
	e := m.solver.exprs[reach]
	if e.kind != exprReach && e.kind != exprDistanceLeq {
		return nil, false
	}

	reached, names, depth := e.graph.resolveReach(e, m.assign)
	if !reached || names == nil {
		return nil, false
	}
	if e.kind == exprDistanceLeq && depth > e.k {
		return nil, false
	}

	nodes := make([]solver.Node, len(names))
	for i, name := range names {
		nodes[i] = solver.Node(e.graph.nameToID[name])
	}
	return nodes, true
}
