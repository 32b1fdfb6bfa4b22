package routing

import (
	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/state"
)

// netEndpoints resolves a physical net's source and destination graph
// nodes, if both ends have a port in this layer's msgraph.
func netEndpoints(mg *msgraph, ps *state.PlacementState, n design.PhysicalNet) (srcNode, dstNode solver.Node, ok bool) {
	srcPos, ok1 := ps.Lookup(n.Src)
	dstPos, ok2 := ps.Lookup(n.Dst)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	srcNode, okS := mg.sourceNode(n.Src, cgra.Coordinate{X: srcPos.X, Y: srcPos.Y}, n.SrcPort)
	dstNode, okD := mg.sinkNode(n.Dst, cgra.Coordinate{X: dstPos.X, Y: dstPos.Y}, n.DstPort)
	return srcNode, dstNode, okS && okD
}

// distanceBound computes spec §4.E's distance-bound constant:
// 3·dist_factor·manhattan(place(src), place(dst)) + 1.
func distanceBound(distFactor int, ps *state.PlacementState, n *design.Net) int {
	srcPos, _ := ps.Lookup(n.Src)
	dstPos, _ := ps.Lookup(n.Dst)
	manhattan := cgra.ManhattanDist(
		cgra.Coordinate{X: srcPos.X, Y: srcPos.Y},
		cgra.Coordinate{X: dstPos.X, Y: dstPos.Y},
	)
	return 3*distFactor*manhattan + 1
}

// assertNetReachability emits the reachability and distance-bound asserts
// for one physical net (spec §4.E "Constraints emitted per net"), returning
// the asserted Reaches term so the caller can re-resolve its path after
// Solve.
func assertNetReachability(s solver.Solver, mg *msgraph, ps *state.PlacementState, n design.PhysicalNet, distFactor int) (solver.BoolExpr, bool) {
	srcNode, dstNode, ok := netEndpoints(mg, ps, n)
	if !ok {
		return 0, false
	}
	reach := mg.g.Reaches(srcNode, dstNode)
	s.Assert(reach)
	s.Assert(mg.g.DistanceLeq(srcNode, dstNode, distanceBound(distFactor, ps, n.Net)))
	return reach, true
}

// assertSiblingExclusivity forbids a net's source from also reaching any
// other named input port of its destination module (spec §4.E: "for every
// other input port port' ≠ dst_port of the destination module").
func assertSiblingExclusivity(s solver.Solver, mg *msgraph, ps *state.PlacementState, n design.PhysicalNet) {
	srcPos, ok := ps.Lookup(n.Src)
	if !ok {
		return
	}
	dstPos, ok := ps.Lookup(n.Dst)
	if !ok {
		return
	}
	srcNode, ok := mg.sourceNode(n.Src, cgra.Coordinate{X: srcPos.X, Y: srcPos.Y}, n.SrcPort)
	if !ok {
		return
	}
	dstC := cgra.Coordinate{X: dstPos.X, Y: dstPos.Y}
	for _, port := range inputPortsOf(mg, n.Dst, dstC) {
		if port == n.DstPort {
			continue
		}
		siblingNode, ok := mg.sinkNode(n.Dst, dstC, port)
		if !ok {
			continue
		}
		s.Assert(s.Not(mg.g.Reaches(srcNode, siblingNode)))
	}
}

// inputPortsOf returns the legal input-port set spec §4.E quantifies
// exclusivity over: the fixed {a, b} set when m is a PE (spec §4.E's own
// phrasing), or every named sink port the fabric actually wired at c
// otherwise.
func inputPortsOf(mg *msgraph, m *design.Module, c cgra.Coordinate) []string {
	if m.Resource == cgra.PE {
		return peInputPorts
	}
	return mg.namedSinksAt(c)
}

// driverOutputPort returns m's canonical output port for the generalized
// pairwise exclusivity pass, and whether m's resource has one well-defined
// regardless of which net (if any) uses it. Reg and IO outputs depend on a
// placement detail (the side chosen, or the fabric-edge wire used) that
// isn't resolved independent of an actual net, so they are excluded from
// this pass; any net they do participate in is still covered by
// assertSiblingExclusivity and assertNetReachability.
func driverOutputPort(m *design.Module) (string, bool) {
	switch m.Resource {
	case cgra.PE:
		return peOutputPort, true
	case cgra.Mem:
		return memOutputPort, true
	default:
		return "", false
	}
}

// connectedByNet reports whether some net in d connects m2's output to one
// of m1's input ports, after resolving both ends through fused chains
// (spec §4.E: "m2 is not a contracted ... input of m1").
func connectedByNet(d *design.Design, m1, m2 *design.Module) bool {
	for _, n := range d.Nets {
		if design.FusedSource(n.Dst) == m1 && design.FusedSource(n.Src) == m2 {
			return true
		}
	}
	return false
}

// assertGlobalExclusivity emits spec §4.E's second exclusivity rule: for
// every ordered pair of distinct non-fused, placed modules (m1, m2) not
// connected by a net (after fusion resolution), where m2 has a driver
// output port, m2's output must not reach any named input port of m1.
func assertGlobalExclusivity(s solver.Solver, mg *msgraph, d *design.Design, ps *state.PlacementState) {
	placed := ps.Modules()
	for _, m1 := range placed {
		if m1.Fused {
			continue
		}
		pos1, _ := ps.Lookup(m1)
		c1 := cgra.Coordinate{X: pos1.X, Y: pos1.Y}
		for _, m2 := range placed {
			if m2 == m1 || m2.Fused {
				continue
			}
			outPort, ok := driverOutputPort(m2)
			if !ok || connectedByNet(d, m1, m2) {
				continue
			}
			pos2, _ := ps.Lookup(m2)
			srcNode, ok := mg.sourceNode(m2, cgra.Coordinate{X: pos2.X, Y: pos2.Y}, outPort)
			if !ok {
				continue
			}
			for _, port := range inputPortsOf(mg, m1, c1) {
				dstNode, ok := mg.sinkNode(m1, c1, port)
				if !ok {
					continue
				}
				s.Assert(s.Not(mg.g.Reaches(srcNode, dstNode)))
			}
		}
	}
}
