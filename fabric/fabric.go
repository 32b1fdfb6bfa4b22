// Package fabric implements the in-memory fabric model (spec §4.A) and the
// XML fabric builder (spec §4.B): tiles, ports, tracks, and per-bus-width
// layers for a rectangular CGRA.
package fabric

import (
	"fmt"

	"github.com/sarchlab/cgrapnr/cgra"
)

func errPortNotFound(k PortKey) error {
	return fmt.Errorf("fabric: no port at %s", k)
}

// Fabric is a value object: no mutation is allowed after construction
// except the single register-split pass the placement engine triggers
// between placement and routing (spec §4.A).
type Fabric struct {
	Rows, Cols int
	NumTracks  int // min across tiles, per spec §3

	// Locations maps a resource kind to the set of tile coordinates that
	// may host it.
	Locations map[cgra.Resource]map[cgra.Coordinate]bool

	// RegSlots is the set of (x, y, track) switch-box mux positions
	// designated reg="1" in the XML -- the legal positions for a Reg
	// module's Position before a side is chosen.
	RegSlots map[RegSlotKey]bool

	layers map[int]*FabricLayer
	arena  *arena
}

// RegSlotKey identifies a candidate pipeline-register switch-box slot.
type RegSlotKey struct {
	X, Y, Track int
}

// Layer returns the FabricLayer for the given bus width, or nil if none was
// built.
func (f *Fabric) Layer(busWidth int) *FabricLayer {
	return f.layers[busWidth]
}

// BusWidths lists the bus widths this fabric has layers for.
func (f *Fabric) BusWidths() []int {
	widths := make([]int, 0, len(f.layers))
	for w := range f.layers {
		widths = append(widths, w)
	}
	return widths
}

// IOLocations returns every coordinate in column 0 or row 0 (the west and
// north edges): the locations an IO module may legally be pinned to
// (spec §4.D rule 6).
func (f *Fabric) IOLocations() map[cgra.Coordinate]bool {
	locs := make(map[cgra.Coordinate]bool)
	for y := 0; y < f.Rows; y++ {
		locs[cgra.Coordinate{X: 0, Y: y}] = true
	}
	for x := 0; x < f.Cols; x++ {
		locs[cgra.Coordinate{X: x, Y: 0}] = true
	}
	return locs
}

// SplitRegister materializes the pipeline-register ports at the switch-box
// position a placed Reg module occupies (spec §4.B phase 8). It must be
// called once per placed Reg module, after placement and before routing.
func (f *Fabric) SplitRegister(busWidth, x, y, track int, side cgra.Side) error {
	layer := f.layers[busWidth]
	if layer == nil {
		return fmt.Errorf("fabric: no layer for bus width %d", busWidth)
	}
	key := sideKey(x, y, side, track)
	_, _, err := layer.splitRegisterPort(key)
	return err
}
