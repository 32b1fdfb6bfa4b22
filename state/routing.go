package state

import (
	"fmt"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/pnrerr"
)

// RoutedPath is the sequence of Tracks a net's model-read path resolved to,
// one entry per hop along the reachability graph's satisfying path.
type RoutedPath struct {
	Tracks   []fabric.TrackHandle
	BusWidth int
}

// RoutingState is the write-once store the routing engine's model reader
// populates: one RoutedPath per net, plus the reverse index from a
// destination port to the net that drives it — the same two-driver check
// spec §4.E requires the model reader to perform while recording paths.
type RoutingState struct {
	byNet    map[*design.Net]RoutedPath
	driverOf map[fabric.PortHandle]*design.Net
}

// NewRoutingState returns an empty RoutingState.
func NewRoutingState() *RoutingState {
	return &RoutingState{
		byNet:    make(map[*design.Net]RoutedPath),
		driverOf: make(map[fabric.PortHandle]*design.Net),
	}
}

// Record stores net's routed path. dstPort is the sink port the path's
// final track drives; if another net has already registered itself as
// that sink's driver, Record returns IllegalRouting instead of overwriting
// it — a routed design never has two drivers for one sink (spec §4.E).
func (rs *RoutingState) Record(net *design.Net, path RoutedPath, dstPort fabric.PortHandle) error {
	if existing, ok := rs.driverOf[dstPort]; ok && existing != net {
		return &pnrerr.IllegalRouting{
			Track:   fmt.Sprintf("port handle %d", dstPort),
			DriverA: existing.Src.Name,
			DriverB: net.Src.Name,
		}
	}
	rs.byNet[net] = path
	rs.driverOf[dstPort] = net
	return nil
}

// Path returns the routed path for net, if routed.
func (rs *RoutingState) Path(net *design.Net) (RoutedPath, bool) {
	p, ok := rs.byNet[net]
	return p, ok
}

// DebugPath renders a net's routed path as the sequence of port names along
// it, for diagnostics and the CLI's print subcommand.
func (rs *RoutingState) DebugPath(net *design.Net, layer *fabric.FabricLayer) []string {
	path, ok := rs.byNet[net]
	if !ok {
		return nil
	}
	if len(path.Tracks) == 0 {
		return nil
	}
	names := make([]string, 0, len(path.Tracks)+1)
	for i, th := range path.Tracks {
		track := layer.Track(th)
		if i == 0 {
			names = append(names, layer.Port(track.Src).Name)
		}
		names = append(names, layer.Port(track.Dst).Name)
	}
	return names
}

// Nets returns every net that has been routed.
func (rs *RoutingState) Nets() []*design.Net {
	out := make([]*design.Net, 0, len(rs.byNet))
	for n := range rs.byNet {
		out = append(out, n)
	}
	return out
}
