package refsolver

import "github.com/sarchlab/cgrapnr/solver"

type exprKind int

const (
	exprEq exprKind = iota
	exprAnd
	exprOr
	exprNot
	exprDistinct
	exprReach
	exprDistanceLeq
)

// exprNode is the union representation for every boolean term the façade
// can build. Graph terms (exprReach, exprDistanceLeq) additionally carry
// the per-call edge-selector variables the backtracking search assigns
// alongside ordinary bit-vector variables.
type exprNode struct {
	kind exprKind

	a, b solver.Var   // exprEq
	xs   []solver.Var // exprDistinct

	kids []solver.BoolExpr // exprAnd/exprOr (any length), exprNot (len 1)

	graph     *graphImpl // exprReach/exprDistanceLeq
	u, v      nodeID
	k         int          // exprDistanceLeq bound
	selectors []solver.Var // one per graph edge snapshotted at call time
	edgeRefs  []edgeID     // parallel to selectors
}

// refVars returns every Var this expression (and its descendants) reads,
// used to decide when a constraint is ready to check during search.
func (s *Solver) refVars(h solver.BoolExpr) []solver.Var {
	e := s.exprs[h]
	switch e.kind {
	case exprEq:
		return []solver.Var{e.a, e.b}
	case exprDistinct:
		return append([]solver.Var(nil), e.xs...)
	case exprAnd, exprOr:
		var out []solver.Var
		for _, k := range e.kids {
			out = append(out, s.refVars(k)...)
		}
		return out
	case exprNot:
		return s.refVars(e.kids[0])
	case exprReach, exprDistanceLeq:
		return append([]solver.Var(nil), e.selectors...)
	default:
		return nil
	}
}

// eval evaluates h against a complete assignment. It assumes every Var
// refVars reports is present in assign.
func (s *Solver) eval(h solver.BoolExpr, assign map[solver.Var]int64) bool {
	e := s.exprs[h]
	switch e.kind {
	case exprEq:
		return assign[e.a] == assign[e.b]
	case exprDistinct:
		seen := make(map[int64]bool, len(e.xs))
		for _, x := range e.xs {
			v := assign[x]
			if seen[v] {
				return false
			}
			seen[v] = true
		}
		return true
	case exprAnd:
		for _, k := range e.kids {
			if !s.eval(k, assign) {
				return false
			}
		}
		return true
	case exprOr:
		for _, k := range e.kids {
			if s.eval(k, assign) {
				return true
			}
		}
		return false
	case exprNot:
		return !s.eval(e.kids[0], assign)
	case exprReach:
		ok, _, _ := e.graph.resolveReach(e, assign)
		return ok
	case exprDistanceLeq:
		ok, _, depth := e.graph.resolveReach(e, assign)
		return ok && depth <= e.k
	default:
		return false
	}
}

func (s *Solver) newExpr(e exprNode) solver.BoolExpr {
	s.exprs = append(s.exprs, e)
	return solver.BoolExpr(len(s.exprs) - 1)
}

// Eq implements solver.Solver.
func (s *Solver) Eq(x, y solver.Var) solver.BoolExpr {
	return s.newExpr(exprNode{kind: exprEq, a: x, b: y})
}

// And implements solver.Solver.
func (s *Solver) And(cs ...solver.BoolExpr) solver.BoolExpr {
	return s.newExpr(exprNode{kind: exprAnd, kids: cs})
}

// Or implements solver.Solver.
func (s *Solver) Or(cs ...solver.BoolExpr) solver.BoolExpr {
	return s.newExpr(exprNode{kind: exprOr, kids: cs})
}

// Not implements solver.Solver.
func (s *Solver) Not(c solver.BoolExpr) solver.BoolExpr {
	return s.newExpr(exprNode{kind: exprNot, kids: []solver.BoolExpr{c}})
}

// Distinct implements solver.Solver.
func (s *Solver) Distinct(xs ...solver.Var) solver.BoolExpr {
	return s.newExpr(exprNode{kind: exprDistinct, xs: xs})
}
