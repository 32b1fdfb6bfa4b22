package placement

import (
	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/solver"
)

// flatDistinct asserts that a's and b's flat tuples differ in at least one
// coordinate (spec §4.D rule 3). Both tuples must be the same length.
func flatDistinct(s solver.Solver, a, b []solver.Var) solver.BoolExpr {
	terms := make([]solver.BoolExpr, len(a))
	for i := range a {
		terms[i] = s.Distinct(a[i], b[i])
	}
	return s.Or(terms...)
}

// regDistinct relaxes flatDistinct for a pair of Reg Positions: they may
// share a switch-slot provided their pipeline colors differ (spec §4.D
// rule 3).
func regDistinct(s solver.Solver, a, b *RegPos) solver.BoolExpr {
	return s.Or(
		flatDistinct(s, a.Coords(), b.Coords()),
		s.Distinct(a.Color, b.Color),
	)
}

// pairwiseDistinctness builds the full disjointness constraint set over a
// slice of same-resource, non-fused Positions (spec §4.D rule 3): every
// unordered pair must satisfy flatDistinct, relaxed to regDistinct when
// both sides are Reg.
func pairwiseDistinctness(s solver.Solver, positions []Position) []solver.BoolExpr {
	var out []solver.BoolExpr
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			pi, pj := positions[i], positions[j]
			ri, iIsReg := pi.(*RegPos)
			rj, jIsReg := pj.(*RegPos)
			if iIsReg && jIsReg {
				out = append(out, regDistinct(s, ri, rj))
				continue
			}
			out = append(out, flatDistinct(s, pi.Coords(), pj.Coords()))
		}
	}
	return out
}

// registerColorPropagation asserts spec §4.D rule 4: every net whose source
// and destination are both Reg modules must carry the same pipeline color,
// since a Reg-to-Reg net represents one pipeline register cut continuing
// through another rather than two independently colored cuts.
func registerColorPropagation(s solver.Solver, ps *positionSet, d *design.Design) []solver.BoolExpr {
	var out []solver.BoolExpr
	for _, n := range d.Nets {
		if n.Src.Resource != cgra.Reg || n.Dst.Resource != cgra.Reg {
			continue
		}
		srcPos, ok1 := ps.byModule[n.Src].(*RegPos)
		dstPos, ok2 := ps.byModule[n.Dst].(*RegPos)
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, s.Eq(srcPos.Color, dstPos.Color))
	}
	return out
}

// adjacencyOffsets enumerates the signed (dx, dy) offsets legal under the
// given radius (spec §4.D rule 5): radius 1 is nearest-neighbor, the set
// {(0,1),(1,0),(0,-1),(-1,0)}; radius r > 1 widens to every offset with
// Manhattan magnitude in (0, r].
func adjacencyOffsets(radius int) [][2]int {
	var out [][2]int
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			mag := abs(dx) + abs(dy)
			if mag > 0 && mag <= radius {
				out = append(out, [2]int{dx, dy})
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// adjacencyConstraint asserts that src and dst occupy coordinates at one of
// the legal offsets, built as a disjunction of literal-pair equalities over
// every (legal-src, legal-dst) coordinate pair satisfying the offset —
// the same Const-disjunction strategy Invariants uses, since the façade
// has no arithmetic/comparison primitive (spec §4.C).
func adjacencyConstraint(
	s solver.Solver,
	src, dst Position,
	srcCoords, dstCoords []cgra.Coordinate,
	radius int,
) solver.BoolExpr {
	offsets := adjacencyOffsets(radius)
	legalDst := make(map[cgra.Coordinate]bool, len(dstCoords))
	for _, c := range dstCoords {
		legalDst[c] = true
	}
	var terms []solver.BoolExpr
	for _, sc := range srcCoords {
		for _, off := range offsets {
			dc := cgra.Coordinate{X: sc.X + off[0], Y: sc.Y + off[1]}
			if !legalDst[dc] {
				continue
			}
			terms = append(terms, s.And(src.Encode(s, sc), dst.Encode(s, dc)))
		}
	}
	if len(terms) == 0 {
		return s.Or()
	}
	return s.Or(terms...)
}
