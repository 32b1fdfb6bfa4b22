// Package routing implements the routing engine (spec §4.E): the msgraph
// construction over one placed bus-width layer, the per-net reachability,
// distance-bound, and exclusivity constraints, and the model reader that
// writes a RoutingState.
package routing

import (
	"fmt"
	"strconv"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/state"
)

// peOutputPort and peInputPorts name the PE module's single logical output
// and fixed input-port set (spec §6: "PE output is a single logical port
// named pe_out_res"; the worked examples throughout spec.md consistently
// use the two-input-operand set {a, b}).
const peOutputPort = "pe_out_res"

var peInputPorts = []string{"a", "b"}

// memOutputPort names a memory module's single logical output wire (spec
// §6's memExposedOutputs; mirrors peOutputPort's role for the Mem resource).
const memOutputPort = "mem_out"

// msgraph is the single shared reachability graph spec §4.E's "msgraph
// encoding" builds per layer: one graph handle, with every node bound back
// to the fabric port it represents and every edge bound back to the Track
// it came from.
type msgraph struct {
	g         solver.Graph
	layer     *fabric.FabricLayer
	nodeOf    map[fabric.PortHandle]solver.Node
	portOf    map[solver.Node]fabric.PortHandle
	edgeTrack map[solver.Edge]fabric.TrackHandle
	adj       map[solver.Node]map[solver.Node]fabric.TrackHandle
}

// buildMsgraph implements spec §4.E's graph-construction steps 1-3: one
// graph node per PE connection-box port at a used PE location, then every
// track whose source isn't on an unused PE tile, with nodes for its
// endpoints allocated on demand.
func buildMsgraph(s solver.Solver, layer *fabric.FabricLayer, f *fabric.Fabric, ps *state.PlacementState) *msgraph {
	mg := &msgraph{
		g:         s.AddGraph(),
		layer:     layer,
		nodeOf:    make(map[fabric.PortHandle]solver.Node),
		portOf:    make(map[solver.Node]fabric.PortHandle),
		edgeTrack: make(map[solver.Edge]fabric.TrackHandle),
		adj:       make(map[solver.Node]map[solver.Node]fabric.TrackHandle),
	}

	for _, m := range ps.Modules() {
		if m.Resource != cgra.PE {
			continue
		}
		pos, _ := ps.Lookup(m)
		c := cgra.Coordinate{X: pos.X, Y: pos.Y}
		mg.bindNamed(c, "a", fmt.Sprintf("(%d,%d)PE_a", c.X, c.Y), true)
		mg.bindNamed(c, "b", fmt.Sprintf("(%d,%d)PE_b", c.X, c.Y), true)
		mg.bindNamed(c, peOutputPort, fmt.Sprintf("(%d,%d)PE_out", c.X, c.Y), false)
	}

	usedPE := make(map[cgra.Coordinate]bool)
	for c := range f.Locations[cgra.PE] {
		usedPE[c] = false
	}
	for _, m := range ps.Modules() {
		if m.Resource != cgra.PE {
			continue
		}
		pos, _ := ps.Lookup(m)
		usedPE[cgra.Coordinate{X: pos.X, Y: pos.Y}] = true
	}

	for _, th := range layer.Tracks {
		t := layer.Track(th)
		srcPort := layer.Port(t.Src)
		if isUnusedPELoc(srcPort.Key, f, usedPE) {
			continue
		}
		srcNode := mg.nodeFor(t.Src)
		dstNode := mg.nodeFor(t.Dst)
		e := mg.g.AddEdge(srcNode, dstNode)
		mg.edgeTrack[e] = th
		if mg.adj[srcNode] == nil {
			mg.adj[srcNode] = make(map[solver.Node]fabric.TrackHandle)
		}
		mg.adj[srcNode][dstNode] = th
	}

	return mg
}

// edgeBetween returns the Track backing the msgraph edge from u to v, if
// one was added (spec §4.E's post-solve model read: "look up the edge's
// Track" for each consecutive node pair on a satisfying path).
func (mg *msgraph) edgeBetween(u, v solver.Node) (fabric.TrackHandle, bool) {
	th, ok := mg.adj[u][v]
	return th, ok
}

func isUnusedPELoc(k fabric.PortKey, f *fabric.Fabric, usedPE map[cgra.Coordinate]bool) bool {
	c := cgra.Coordinate{X: k.X, Y: k.Y}
	if !f.Locations[cgra.PE][c] {
		return false
	}
	return !usedPE[c]
}

// bindNamed binds the sink port at (c, name) when asSink is true, or the
// source port at (c, name) when asSink is false, to a freshly-named graph
// node, if that port exists in this layer. Unused when the port is absent (e.g. a PE tile whose CB never
// wires the "b" operand).
func (mg *msgraph) bindNamed(c cgra.Coordinate, name, nodeName string, asSink bool) {
	k := fabric.PortKey{X: c.X, Y: c.Y, Track: -1, Name: name}
	var h fabric.PortHandle
	var ok bool
	if asSink {
		var p *fabric.Port
		p, ok = mg.layer.SinkPort(k)
		if ok {
			h = p.Handle
		}
	} else {
		var p *fabric.Port
		p, ok = mg.layer.SourcePort(k)
		if ok {
			h = p.Handle
		}
	}
	if !ok {
		return
	}
	if _, already := mg.nodeOf[h]; already {
		return
	}
	n := mg.g.AddNode(nodeName)
	mg.nodeOf[h] = n
	mg.portOf[n] = h
}

// nodeFor returns h's graph node, allocating one on demand (spec §4.E step
// 3's "allocate graph nodes for src and dst on demand").
func (mg *msgraph) nodeFor(h fabric.PortHandle) solver.Node {
	if n, ok := mg.nodeOf[h]; ok {
		return n
	}
	p := mg.layer.Port(h)
	n := mg.g.AddNode(p.Name)
	mg.nodeOf[h] = n
	mg.portOf[n] = h
	return n
}

// sinkNode resolves a module m's input port at c to its graph node,
// allocating one on demand if the port was not already bound by
// buildMsgraph. An IO module has no CB-wired named port, so its input
// resolves through its fabric-edge wire instead (ioSinkNode).
func (mg *msgraph) sinkNode(m *design.Module, c cgra.Coordinate, portName string) (solver.Node, bool) {
	if m.Resource == cgra.IO {
		return mg.ioSinkNode(c, portName)
	}
	p, ok := mg.layer.SinkPort(fabric.PortKey{X: c.X, Y: c.Y, Track: -1, Name: portName})
	if !ok {
		return 0, false
	}
	return mg.nodeFor(p.Handle), true
}

// sourceNode resolves a module's output port to its graph node. PE and Mem
// both expose a single logical output port; IO resolves through its
// fabric-edge wire (ioSourceNode); other resources address their output by
// the design's own port name for that net.
func (mg *msgraph) sourceNode(m *design.Module, c cgra.Coordinate, portName string) (solver.Node, bool) {
	if m.Resource == cgra.IO {
		return mg.ioSourceNode(c, portName)
	}
	name := portName
	switch m.Resource {
	case cgra.PE:
		name = peOutputPort
	case cgra.Mem:
		name = memOutputPort
	}
	p, ok := mg.layer.SourcePort(fabric.PortKey{X: c.X, Y: c.Y, Track: -1, Name: name})
	if !ok {
		return 0, false
	}
	return mg.nodeFor(p.Handle), true
}

// ioEdgeSide returns the off-fabric side an IO module placed at c faces.
// Spec §4.D rule 6 pins IO Positions to (x=0) or (y=0); a west-edge
// placement (including the (0,0) corner, which satisfies both) faces W,
// and any other north-edge placement faces N.
func ioEdgeSide(c cgra.Coordinate) cgra.Side {
	if c.X == 0 {
		return cgra.W
	}
	return cgra.N
}

// ioTrackPort parses an IO net-port name as the edge track index it names --
// an IO module has no CB-wired named ports, so the design graph's port name
// is its only remaining way to pick among that edge's tracks.
func ioTrackPort(portName string) (int, bool) {
	track, err := strconv.Atoi(portName)
	if err != nil || track < 0 {
		return 0, false
	}
	return track, true
}

// ioSourceNode resolves an IO module's output port to the fabric-edge
// Source port an external driver feeds into the fabric through.
func (mg *msgraph) ioSourceNode(c cgra.Coordinate, portName string) (solver.Node, bool) {
	track, ok := ioTrackPort(portName)
	if !ok {
		return 0, false
	}
	p, ok := mg.layer.SourcePort(fabric.PortKey{X: c.X, Y: c.Y, Side: ioEdgeSide(c), Track: track})
	if !ok {
		return 0, false
	}
	return mg.nodeFor(p.Handle), true
}

// ioSinkNode resolves an IO module's input port to the fabric-edge Sink
// port a routed signal leaves the fabric through.
func (mg *msgraph) ioSinkNode(c cgra.Coordinate, portName string) (solver.Node, bool) {
	track, ok := ioTrackPort(portName)
	if !ok {
		return 0, false
	}
	p, ok := mg.layer.SinkPort(fabric.PortKey{X: c.X, Y: c.Y, Side: ioEdgeSide(c), Track: track})
	if !ok {
		return 0, false
	}
	return mg.nodeFor(p.Handle), true
}

// namedSinksAt returns every named sink-port name registered at coordinate
// c, the "legal input port" set spec §4.E's exclusivity rule quantifies
// over.
func (mg *msgraph) namedSinksAt(c cgra.Coordinate) []string {
	var names []string
	for k := range mg.layer.Sinks {
		if k.X == c.X && k.Y == c.Y && k.Track == -1 {
			names = append(names, k.Name)
		}
	}
	return names
}
