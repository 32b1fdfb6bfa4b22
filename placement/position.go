// Package placement implements the placement engine (spec §4.D): Position
// variable allocation per module, the constraint set (init invariants,
// pinning, distinctness, register-color propagation, adjacency, IO
// pinning), and the strict→relaxed driver policy with model read.
package placement

import (
	"fmt"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/solver"
)

// bitsFor returns the number of bits needed to represent values in
// [0, n) as a disjunction of literal equalities — n itself need not be a
// power of two, since legality is enumerated rather than bounded by a
// comparison the façade cannot express.
func bitsFor(n int) int {
	bits := 0
	for (1 << uint(bits)) < n {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

// Position encodes one non-fused module's placement variables and the
// predicates spec §4.D requires of every Position kind.
type Position interface {
	// Coords returns the position's coordinate variables in a canonical
	// order ("flat", spec §4.D) for equality/distinctness comparisons.
	Coords() []solver.Var
	// Invariants returns the legality predicate restricting this Position
	// to the locations its resource kind may occupy.
	Invariants(s solver.Solver) solver.BoolExpr
	// Encode returns the predicate pinning this Position to a literal
	// coordinate, used to fix already-placed modules.
	Encode(s solver.Solver, c cgra.Coordinate) solver.BoolExpr
}

type basePos struct {
	X, Y     solver.Var
	xBits    int
	yBits    int
	resource cgra.Resource
	f        *fabric.Fabric
}

func (p *basePos) Coords() []solver.Var { return []solver.Var{p.X, p.Y} }

func (p *basePos) Encode(s solver.Solver, c cgra.Coordinate) solver.BoolExpr {
	return s.And(
		s.Eq(p.X, s.Const(p.xBits, int64(c.X))),
		s.Eq(p.Y, s.Const(p.yBits, int64(c.Y))),
	)
}

func (p *basePos) legalCoords() []cgra.Coordinate {
	locs := p.f.Locations[p.resource]
	out := make([]cgra.Coordinate, 0, len(locs))
	for c := range locs {
		out = append(out, c)
	}
	return out
}

func (p *basePos) invariantsOver(s solver.Solver, coords []cgra.Coordinate) solver.BoolExpr {
	if len(coords) == 0 {
		return s.Or() // empty disjunction: unsatisfiable, matches "no legal location"
	}
	terms := make([]solver.BoolExpr, len(coords))
	for i, c := range coords {
		terms[i] = p.Encode(s, c)
	}
	return s.Or(terms...)
}

// PEPos is the Position for a PE module.
type PEPos struct{ basePos }

// NewPEPos allocates coordinate variables for a PE module.
func NewPEPos(s solver.Solver, f *fabric.Fabric, name string) *PEPos {
	xBits, yBits := bitsFor(f.Cols), bitsFor(f.Rows)
	return &PEPos{basePos{
		X: s.BVVar(name+".x", xBits), Y: s.BVVar(name+".y", yBits),
		xBits: xBits, yBits: yBits, resource: cgra.PE, f: f,
	}}
}

// Invariants implements Position: a PE Position is legal at any PE tile.
func (p *PEPos) Invariants(s solver.Solver) solver.BoolExpr {
	return p.invariantsOver(s, p.legalCoords())
}

// MemPos is the Position for a Mem module.
type MemPos struct{ basePos }

// NewMemPos allocates coordinate variables for a Mem module.
func NewMemPos(s solver.Solver, f *fabric.Fabric, name string) *MemPos {
	xBits, yBits := bitsFor(f.Cols), bitsFor(f.Rows)
	return &MemPos{basePos{
		X: s.BVVar(name+".x", xBits), Y: s.BVVar(name+".y", yBits),
		xBits: xBits, yBits: yBits, resource: cgra.Mem, f: f,
	}}
}

// Invariants implements Position: a Mem Position is legal at any Mem tile.
func (p *MemPos) Invariants(s solver.Solver) solver.BoolExpr {
	return p.invariantsOver(s, p.legalCoords())
}

// IOPos is the Position for an IO module.
type IOPos struct{ basePos }

// NewIOPos allocates coordinate variables for an IO module.
func NewIOPos(s solver.Solver, f *fabric.Fabric, name string) *IOPos {
	xBits, yBits := bitsFor(f.Cols), bitsFor(f.Rows)
	return &IOPos{basePos{
		X: s.BVVar(name+".x", xBits), Y: s.BVVar(name+".y", yBits),
		xBits: xBits, yBits: yBits, resource: cgra.IO, f: f,
	}}
}

// Invariants implements Position: an IO Position is legal anywhere in
// column 0 or row 0 of the fabric (spec §4.D rule 6).
func (p *IOPos) Invariants(s solver.Solver) solver.BoolExpr {
	locs := p.f.IOLocations()
	coords := make([]cgra.Coordinate, 0, len(locs))
	for c := range locs {
		coords = append(coords, c)
	}
	return p.invariantsOver(s, coords)
}

// RegPos is the Position for a Reg module: a coordinate plus a track, a
// side, and a pipeline color (spec §4.D).
type RegPos struct {
	basePos
	Track     solver.Var
	Side      solver.Var
	Color     solver.Var
	trackBits int
	sideBits  int
	colorBits int
}

// regSideDomain enumerates the legal cgra.Side values as small ints for the
// Side variable's domain (0..3, matching cgra.N..cgra.W).
const regSideDomain = 4

// NewRegPos allocates coordinate, track, side, and color variables for a
// Reg module. colorBits sizes the pipeline-color field (spec §9).
func NewRegPos(s solver.Solver, f *fabric.Fabric, name string, colorBits int) *RegPos {
	xBits, yBits := bitsFor(f.Cols), bitsFor(f.Rows)
	trackBits := bitsFor(f.NumTracks)
	return &RegPos{
		basePos: basePos{
			X: s.BVVar(name+".x", xBits), Y: s.BVVar(name+".y", yBits),
			xBits: xBits, yBits: yBits, resource: cgra.Reg, f: f,
		},
		Track:     s.BVVar(name+".track", trackBits),
		Side:      s.BVVar(name+".side", bitsFor(regSideDomain)),
		Color:     s.BVVar(name+".color", colorBits),
		trackBits: trackBits,
		sideBits:  bitsFor(regSideDomain),
		colorBits: colorBits,
	}
}

// Coords overrides basePos.Coords to include the track field in the "flat"
// comparison key; side and color are compared separately by the
// distinctness relaxation (spec §4.D rule 3).
func (p *RegPos) Coords() []solver.Var {
	return []solver.Var{p.X, p.Y, p.Track}
}

// Invariants implements Position: a Reg Position is legal at any of the
// fabric's register-capable switch-box slots, for any side.
func (p *RegPos) Invariants(s solver.Solver) solver.BoolExpr {
	if len(p.f.RegSlots) == 0 {
		return s.Or()
	}
	terms := make([]solver.BoolExpr, 0, len(p.f.RegSlots))
	for slot := range p.f.RegSlots {
		terms = append(terms, s.And(
			s.Eq(p.X, s.Const(p.xBits, int64(slot.X))),
			s.Eq(p.Y, s.Const(p.yBits, int64(slot.Y))),
			s.Eq(p.Track, s.Const(p.trackBits, int64(slot.Track))),
		))
	}
	return s.Or(terms...)
}

// Encode pins a Reg Position's X and Y only; track and side are left free,
// since the pinning information is a bare coordinate.
func (p *RegPos) Encode(s solver.Solver, c cgra.Coordinate) solver.BoolExpr {
	return s.And(
		s.Eq(p.X, s.Const(p.xBits, int64(c.X))),
		s.Eq(p.Y, s.Const(p.yBits, int64(c.Y))),
	)
}

// String renders a Position for logging.
func (p *basePos) String() string {
	return fmt.Sprintf("Position{resource=%s}", p.resource.Name())
}
