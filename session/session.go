package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/cgrapnr/bitstream"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/placement"
	"github.com/sarchlab/cgrapnr/pnrerr"
	"github.com/sarchlab/cgrapnr/routing"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/solver/refsolver"
	"github.com/sarchlab/cgrapnr/state"
)

// Status is a job's position in the state machine of spec §4.E:
// Unplaced -> Placed(strict)|Placed(relaxed) -> Routed, with Unplaceable
// and Unroutable as terminal failure states.
type Status int

const (
	Unplaced Status = iota
	PlacedStrict
	PlacedRelaxed
	Routed
	Unplaceable
	Unroutable
)

func (s Status) String() string {
	switch s {
	case Unplaced:
		return "unplaced"
	case PlacedStrict:
		return "placed(strict)"
	case PlacedRelaxed:
		return "placed(relaxed)"
	case Routed:
		return "routed"
	case Unplaceable:
		return "unplaceable"
	case Unroutable:
		return "unroutable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is what a session produces: the final Status plus whichever state
// stores were successfully populated before it was reached.
type Result struct {
	Status    Status
	Placement *state.PlacementState
	Routing   *state.RoutingState
}

func newSolverFactory(backend string) (func() solver.Solver, error) {
	switch backend {
	case "", "refsolver":
		return func() solver.Solver { return refsolver.New() }, nil
	default:
		return nil, fmt.Errorf("session: unknown solver backend %q", backend)
	}
}

// Session owns the scoped resources of one PnR job (spec §5 "scoped
// resources"): the fabric, the placement/routing engines built against it,
// and the bitstream writer. A Session is entered once per job and never
// reused across fabrics.
type Session struct {
	Fabric  *fabric.Fabric
	Config  Config
	Writer  bitstream.Writer
	Logger  *slog.Logger
	placeEg *placement.Engine
	routeEg *routing.Engine
}

// New builds a Session over f, resolving cfg.SolverBackend to a concrete
// solver.Solver factory. Logger is set to slog.Default().
func New(f *fabric.Fabric, cfg Config) (*Session, error) {
	newSolver, err := newSolverFactory(cfg.SolverBackend)
	if err != nil {
		return nil, err
	}
	return &Session{
		Fabric: f,
		Config: cfg,
		Writer: bitstream.NewTextWriter(),
		Logger: slog.Default(),
		placeEg: placement.NewEngine(newSolver, f, placement.Config{
			AdjacencyRadius:   cfg.AdjacencyRadius,
			RegisterColorBits: cfg.RegisterWidth,
		}),
		routeEg: routing.NewEngine(newSolver, f, routing.Config{DistFactor: cfg.DistFactor}),
	}, nil
}

// Place runs just the placement half of the job (spec §4.E's
// Place transition on Unplaced), for callers that only need PlacementState
// (the CLI's place-design subcommand).
func (s *Session) Place(ctx context.Context, d *design.Design) (*state.PlacementState, bool, error) {
	return s.placeEg.PlaceDetailed(ctx, d, nil)
}

// Route runs just the routing half of the job against an already-placed
// design, after the caller has handled SplitRegisters itself.
func (s *Session) Route(ctx context.Context, d *design.Design, ps *state.PlacementState, busWidth int) (*state.RoutingState, error) {
	return s.routeEg.Route(ctx, d, ps, busWidth)
}

// Run drives Place -> SplitRegisters -> Route for d on a single bus-width
// layer (spec §4.E operates "on... a single bus-width layer at a time").
// It always returns a non-nil Result reflecting how far the job got, even
// on failure, alongside the terminal error.
func (s *Session) Run(ctx context.Context, d *design.Design, busWidth int) (*Result, error) {
	s.Logger.Info("placing design", "modules", len(d.Modules), "nets", len(d.Nets))
	ps, relaxed, err := s.Place(ctx, d)
	if err != nil {
		var unplaceable *pnrerr.Unplaceable
		if errors.As(err, &unplaceable) {
			return &Result{Status: Unplaceable}, err
		}
		return &Result{Status: Unplaced}, err
	}
	status := PlacedStrict
	if relaxed {
		status = PlacedRelaxed
	}
	s.Logger.Info("placed design", "status", status.String())

	if err := s.splitRegisters(ps, busWidth); err != nil {
		return &Result{Status: status, Placement: ps}, err
	}

	s.Logger.Info("routing design", "bus_width", busWidth)
	rs, err := s.Route(ctx, d, ps, busWidth)
	if err != nil {
		var unroutable *pnrerr.Unroutable
		if errors.As(err, &unroutable) {
			return &Result{Status: Unroutable, Placement: ps}, err
		}
		return &Result{Status: status, Placement: ps}, err
	}

	s.Logger.Info("routed design", "nets", len(rs.Nets()))
	return &Result{Status: Routed, Placement: ps, Routing: rs}, nil
}

// splitRegisters implements the implicit SplitRegisters transition (spec
// §4.E): for every placed Reg module, materialize its register-cut ports
// at the switch-box slot the placer chose, on the layer this job routes.
func (s *Session) splitRegisters(ps *state.PlacementState, busWidth int) error {
	for _, m := range ps.Modules() {
		pos, ok := ps.Lookup(m)
		if !ok || !pos.IsReg {
			continue
		}
		if err := s.Fabric.SplitRegister(busWidth, pos.X, pos.Y, pos.Track, pos.Side); err != nil {
			return fmt.Errorf("session: split register for module %q: %w", m.Name, err)
		}
	}
	return nil
}

// WriteBitstream renders a routed result through the session's Writer.
func (s *Session) WriteBitstream(w io.Writer, d *design.Design, busWidth int, rs *state.RoutingState) error {
	layer := s.Fabric.Layer(busWidth)
	if layer == nil {
		return fmt.Errorf("session: no fabric layer for bus width %d", busWidth)
	}
	return s.Writer.Write(w, d, layer, rs)
}
