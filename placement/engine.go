package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/pnrerr"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/state"
)

// Config holds the placement-engine knobs spec §4.H documents:
// adjacency_strategy and register_width.
type Config struct {
	// AdjacencyRadius is the adjacency relaxation radius (spec §4.D rule
	// 5). 1 selects nearest-neighbor.
	AdjacencyRadius int
	// RegisterColorBits sizes the pipeline-color field Reg Positions carry.
	RegisterColorBits int
}

// DefaultConfig returns the nearest-neighbor configuration with a 1-bit
// register color field.
func DefaultConfig() Config {
	return Config{AdjacencyRadius: 1, RegisterColorBits: 1}
}

// Engine drives the placement solve: it builds one Position per non-fused
// module, asserts the constraint set spec §4.D names, and retries with
// adjacency dropped on UNSAT (spec §4.D "driver policy").
type Engine struct {
	NewSolver func() solver.Solver
	Fabric    *fabric.Fabric
	Config    Config
}

// NewEngine returns an Engine backed by newSolver, a fresh solver.Solver
// factory invoked once per placement attempt (placement is a single solver
// session per spec §4.E, and the retry needs an independent session).
func NewEngine(newSolver func() solver.Solver, f *fabric.Fabric, cfg Config) *Engine {
	return &Engine{NewSolver: newSolver, Fabric: f, Config: cfg}
}

// positionSet holds the Position instances built for one solver session,
// grouped by resource for the distinctness pass.
type positionSet struct {
	s          solver.Solver
	byModule   map[*design.Module]Position
	byResource map[cgra.Resource][]Position
}

func (e *Engine) buildPositions(s solver.Solver, d *design.Design) *positionSet {
	ps := &positionSet{
		s:          s,
		byModule:   make(map[*design.Module]Position),
		byResource: make(map[cgra.Resource][]Position),
	}
	for _, m := range d.Modules {
		if m.Fused {
			continue
		}
		var pos Position
		switch m.Resource {
		case cgra.PE:
			pos = NewPEPos(s, e.Fabric, m.Name)
		case cgra.Mem:
			pos = NewMemPos(s, e.Fabric, m.Name)
		case cgra.Reg:
			pos = NewRegPos(s, e.Fabric, m.Name, e.Config.RegisterColorBits)
		case cgra.IO:
			pos = NewIOPos(s, e.Fabric, m.Name)
		default:
			continue
		}
		ps.byModule[m] = pos
		ps.byResource[m.Resource] = append(ps.byResource[m.Resource], pos)
	}
	return ps
}

func (e *Engine) legalCoords(resource cgra.Resource) []cgra.Coordinate {
	switch resource {
	case cgra.IO:
		locs := e.Fabric.IOLocations()
		out := make([]cgra.Coordinate, 0, len(locs))
		for c := range locs {
			out = append(out, c)
		}
		return out
	case cgra.Reg:
		seen := make(map[cgra.Coordinate]bool)
		for slot := range e.Fabric.RegSlots {
			seen[cgra.Coordinate{X: slot.X, Y: slot.Y}] = true
		}
		out := make([]cgra.Coordinate, 0, len(seen))
		for c := range seen {
			out = append(out, c)
		}
		return out
	default:
		locs := e.Fabric.Locations[resource]
		out := make([]cgra.Coordinate, 0, len(locs))
		for c := range locs {
			out = append(out, c)
		}
		return out
	}
}

// physicalEndpoint resolves a net endpoint to the nearest non-fused module
// whose Position adjacency can actually be constrained (spec §4.D:
// adjacency is over "virtual-net endpoint pairs", and a fused module
// shares its upstream producer's physical location).
func physicalEndpoint(m *design.Module) *design.Module {
	if !m.Fused {
		return m
	}
	return design.FusedSource(m)
}

// assertCommon emits the init-invariant, pinning, distinctness, and
// register-color-propagation constraints shared by both the strict and
// relaxed attempts.
func (e *Engine) assertCommon(s solver.Solver, ps *positionSet, d *design.Design, pre *state.PlacementState) {
	for _, m := range d.Modules {
		pos, ok := ps.byModule[m]
		if !ok {
			continue
		}
		s.Assert(pos.Invariants(s))
	}
	if pre != nil {
		for m, pos := range ps.byModule {
			if placed, ok := pre.Lookup(m); ok {
				s.Assert(pos.Encode(s, cgra.Coordinate{X: placed.X, Y: placed.Y}))
			}
		}
	}
	for _, positions := range ps.byResource {
		for _, c := range pairwiseDistinctness(s, positions) {
			s.Assert(c)
		}
	}
	for _, c := range registerColorPropagation(s, ps, d) {
		s.Assert(c)
	}
}

// assertAdjacency emits the nearest-neighbor/radius-r constraint for every
// net whose two physical endpoints both have a Position (spec §4.D rule 5).
func (e *Engine) assertAdjacency(s solver.Solver, ps *positionSet, d *design.Design, radius int) {
	for _, n := range d.Nets {
		srcM := physicalEndpoint(n.Src)
		dstM := physicalEndpoint(n.Dst)
		if srcM == dstM {
			continue
		}
		srcPos, ok1 := ps.byModule[srcM]
		dstPos, ok2 := ps.byModule[dstM]
		if !ok1 || !ok2 {
			continue
		}
		s.Assert(adjacencyConstraint(
			s, srcPos, dstPos,
			e.legalCoords(srcM.Resource), e.legalCoords(dstM.Resource),
			radius,
		))
	}
}

// Place runs the strict-then-relaxed placement solve and writes the result
// into a fresh state.PlacementState. pre may be nil; if non-nil, every
// module already present in pre is pinned to its existing coordinate.
func (e *Engine) Place(ctx context.Context, d *design.Design, pre *state.PlacementState) (*state.PlacementState, error) {
	ps, _, err := e.PlaceDetailed(ctx, d, pre)
	return ps, err
}

// PlaceDetailed is Place plus the driver-policy outcome (spec §4.E's
// Placed(strict)|Placed(relaxed) distinction), which the session state
// machine reports but the placement result itself doesn't need.
func (e *Engine) PlaceDetailed(ctx context.Context, d *design.Design, pre *state.PlacementState) (_ *state.PlacementState, relaxed bool, _ error) {
	strictSolver := e.NewSolver()
	strictPS := e.buildPositions(strictSolver, d)
	e.assertCommon(strictSolver, strictPS, d, pre)
	e.assertAdjacency(strictSolver, strictPS, d, e.Config.AdjacencyRadius)

	model, err := strictSolver.Solve(ctx)
	if err == nil {
		out, err := e.readModel(strictPS, model)
		return out, false, err
	}
	if !errors.Is(err, solver.ErrUnsat) {
		return nil, false, err
	}

	relaxedSolver := e.NewSolver()
	relaxedPS := e.buildPositions(relaxedSolver, d)
	e.assertCommon(relaxedSolver, relaxedPS, d, pre)

	model, err = relaxedSolver.Solve(ctx)
	if err == nil {
		out, err := e.readModel(relaxedPS, model)
		return out, true, err
	}
	if errors.Is(err, solver.ErrUnsat) {
		return nil, true, &pnrerr.Unplaceable{Reason: fmt.Sprintf(
			"no assignment satisfies placement constraints for %d modules, strict and relaxed adjacency both exhausted",
			len(d.Modules))}
	}
	return nil, true, err
}

// readModel decodes a satisfying model into a PlacementState (spec §4.D
// "model reader").
func (e *Engine) readModel(ps *positionSet, model solver.Model) (*state.PlacementState, error) {
	out := state.NewPlacementState()
	for m, pos := range ps.byModule {
		switch p := pos.(type) {
		case *RegPos:
			out.Insert(m, state.PlacedPosition{
				X:     int(model.Value(p.X)),
				Y:     int(model.Value(p.Y)),
				Track: int(model.Value(p.Track)),
				Side:  cgra.Side(model.Value(p.Side)),
				Color: int(model.Value(p.Color)),
				IsReg: true,
			})
		default:
			base := pos.Coords()
			out.Insert(m, state.PlacedPosition{
				X: int(model.Value(base[0])),
				Y: int(model.Value(base[1])),
			})
		}
	}
	return out, nil
}
