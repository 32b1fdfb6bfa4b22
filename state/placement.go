// Package state holds the two write-once-then-read stores the session
// driver threads between the placement and routing engines (spec §4.F):
// PlacementState, populated by the placer and consumed by the fabric's
// register-split pass and the router; and RoutingState, populated by the
// router and consumed by the bitstream writer.
package state

import (
	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
)

// PlacedPosition is the tuple a module's Position decodes to after a
// successful placement solve. Track and Side are meaningful only for Reg
// modules.
type PlacedPosition struct {
	X, Y  int
	Track int
	Side  cgra.Side
	Color int
	IsReg bool
}

// PlacementState is the bidirectional, injective mapping module -> position
// the placement engine's model reader populates. I is the reverse index of
// occupied coordinates (spec §4.F).
type PlacementState struct {
	byModule map[*design.Module]PlacedPosition
	byCoord  map[cgra.Coordinate][]*design.Module
}

// NewPlacementState returns an empty PlacementState.
func NewPlacementState() *PlacementState {
	return &PlacementState{
		byModule: make(map[*design.Module]PlacedPosition),
		byCoord:  make(map[cgra.Coordinate][]*design.Module),
	}
}

// Insert records m's position, overwriting any previous entry for m (the
// reverse index is updated to drop the stale coordinate).
func (ps *PlacementState) Insert(m *design.Module, pos PlacedPosition) {
	if old, ok := ps.byModule[m]; ok {
		ps.removeFromCoord(m, cgra.Coordinate{X: old.X, Y: old.Y})
	}
	ps.byModule[m] = pos
	c := cgra.Coordinate{X: pos.X, Y: pos.Y}
	ps.byCoord[c] = append(ps.byCoord[c], m)
}

func (ps *PlacementState) removeFromCoord(m *design.Module, c cgra.Coordinate) {
	mods := ps.byCoord[c]
	for i, cand := range mods {
		if cand == m {
			ps.byCoord[c] = append(mods[:i], mods[i+1:]...)
			break
		}
	}
	if len(ps.byCoord[c]) == 0 {
		delete(ps.byCoord, c)
	}
}

// Lookup returns m's position, if placed.
func (ps *PlacementState) Lookup(m *design.Module) (PlacedPosition, bool) {
	p, ok := ps.byModule[m]
	return p, ok
}

// At returns every module occupying coordinate c (the reverse index I;
// normally at most one module per coordinate except where Reg modules
// legally coexist on a shared switch slot under distinct colors).
func (ps *PlacementState) At(c cgra.Coordinate) []*design.Module {
	return ps.byCoord[c]
}

// Occupied returns the set of coordinates with at least one placed module
// (PlacementState.I of spec §3).
func (ps *PlacementState) Occupied() map[cgra.Coordinate]bool {
	out := make(map[cgra.Coordinate]bool, len(ps.byCoord))
	for c := range ps.byCoord {
		out[c] = true
	}
	return out
}

// Modules returns every placed module.
func (ps *PlacementState) Modules() []*design.Module {
	out := make([]*design.Module, 0, len(ps.byModule))
	for m := range ps.byModule {
		out = append(out, m)
	}
	return out
}
