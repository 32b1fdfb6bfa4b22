package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/pnrerr"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/state"
)

// Config holds the routing-engine knob spec §4.H documents: dist_factor.
type Config struct {
	// DistFactor is the routing slack multiplier F in the distance bound
	// 3·F·manhattan(place(src), place(dst)) + 1. Must be >= 1.
	DistFactor int
}

// DefaultConfig returns dist_factor = 1.
func DefaultConfig() Config { return Config{DistFactor: 1} }

// Engine drives one routing solve over a single bus-width layer (spec
// §4.E: routing is "a single solver session" operating on one placed
// layer at a time).
type Engine struct {
	NewSolver func() solver.Solver
	Fabric    *fabric.Fabric
	Config    Config
}

// NewEngine returns an Engine backed by newSolver.
func NewEngine(newSolver func() solver.Solver, f *fabric.Fabric, cfg Config) *Engine {
	return &Engine{NewSolver: newSolver, Fabric: f, Config: cfg}
}

// Route builds the msgraph for busWidth, asserts reachability, distance
// bound, and both exclusivity rules for every physical net at that width,
// solves, and writes the result into a fresh state.RoutingState.
func (e *Engine) Route(ctx context.Context, d *design.Design, ps *state.PlacementState, busWidth int) (*state.RoutingState, error) {
	layer := e.Fabric.Layer(busWidth)
	if layer == nil {
		return nil, fmt.Errorf("routing: no fabric layer for bus width %d", busWidth)
	}

	s := e.NewSolver()
	mg := buildMsgraph(s, layer, e.Fabric, ps)

	var nets []design.PhysicalNet
	reachExprs := make(map[*design.Net]solver.BoolExpr)
	for _, pn := range d.PhysicalNets() {
		if pn.BusWidth != busWidth {
			continue
		}
		reach, ok := assertNetReachability(s, mg, ps, pn, e.Config.DistFactor)
		if !ok {
			continue
		}
		reachExprs[pn.Net] = reach
		assertSiblingExclusivity(s, mg, ps, pn)
		nets = append(nets, pn)
	}
	assertGlobalExclusivity(s, mg, d, ps)

	model, err := s.Solve(ctx)
	if err != nil {
		if errors.Is(err, solver.ErrUnsat) {
			return nil, &pnrerr.Unroutable{Reason: fmt.Sprintf(
				"no routing satisfies reachability/distance/exclusivity for %d nets at bus width %d",
				len(nets), busWidth)}
		}
		return nil, err
	}

	return e.readModel(mg, layer, model, nets, reachExprs, busWidth)
}

// readModel implements spec §4.E's "post-solve model read": for each net,
// walk the satisfying path's consecutive node pairs, look up each edge's
// Track, and record the path into RoutingState, rejecting a two-driver
// configuration as pnrerr.IllegalRouting.
func (e *Engine) readModel(
	mg *msgraph,
	layer *fabric.FabricLayer,
	model solver.Model,
	nets []design.PhysicalNet,
	reachExprs map[*design.Net]solver.BoolExpr,
	busWidth int,
) (*state.RoutingState, error) {
	rs := state.NewRoutingState()
	for _, pn := range nets {
		nodes, ok := model.Path(reachExprs[pn.Net])
		if !ok {
			continue
		}
		tracks := make([]fabric.TrackHandle, 0, len(nodes)-1)
		for i := 0; i+1 < len(nodes); i++ {
			th, ok := mg.edgeBetween(nodes[i], nodes[i+1])
			if !ok {
				return nil, &pnrerr.SolverError{Err: fmt.Errorf(
					"routing: no edge between model path nodes %d and %d", nodes[i], nodes[i+1])}
			}
			tracks = append(tracks, th)
		}

		var dstPort fabric.PortHandle
		if len(tracks) > 0 {
			last := layer.Track(tracks[len(tracks)-1])
			dstPort = last.Dst
		}

		if err := rs.Record(pn.Net, state.RoutedPath{Tracks: tracks, BusWidth: busWidth}, dstPort); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
