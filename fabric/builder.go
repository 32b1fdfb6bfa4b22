package fabric

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/cgrapnr/cgra"
)

// Parse reads a fabric description document from r and builds a Fabric from
// it in one call (spec §6).
func Parse(r io.Reader) (*Fabric, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fabric: reading document: %w", err)
	}
	return NewBuilder().WithXML(data).Build()
}

// Builder constructs a Fabric from an XML fabric description (spec §4.B).
// It follows the same immutable, value-receiver WithX(...) shape the rest
// of the corpus uses for multi-stage construction: each With method returns
// a modified copy, and Build runs the phases in a fixed order.
type Builder struct {
	xmlData []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() Builder {
	return Builder{}
}

// WithXML sets the fabric description document to parse.
func (b Builder) WithXML(data []byte) Builder {
	b.xmlData = data
	return b
}

// Build runs the fabric construction pipeline: pre-scan, per-bus-width
// layer generation, tile-to-tile connection, PE and memory connection-box
// wiring, memory switch-box internal wiring, and switch-box wiring
// (spec §4.B phases 1-7; phase 8, register splitting, happens later through
// Fabric.SplitRegister once placement has chosen register locations).
func (b Builder) Build() (*Fabric, error) {
	var doc xmlFabric
	if err := xml.Unmarshal(b.xmlData, &doc); err != nil {
		return nil, &fabricParseWrap{err}
	}

	bs, err := newBuildState(doc)
	if err != nil {
		return nil, err
	}

	bs.generateLayers()
	bs.connectTiles()
	bs.connectPECB()
	bs.connectMemCB()
	bs.connectMemSBInternal()
	bs.connectSB()

	f := &Fabric{
		Rows:      bs.rows,
		Cols:      bs.cols,
		NumTracks: bs.minNumTracks(),
		Locations: bs.locations,
		RegSlots:  bs.regSlots,
		layers:    bs.layers,
		arena:     bs.arena,
	}
	return f, nil
}

type fabricParseWrap struct{ err error }

func (e *fabricParseWrap) Error() string { return "fabric: malformed XML: " + e.err.Error() }
func (e *fabricParseWrap) Unwrap() error { return e.err }

// buildState carries the mutable intermediate tables used across the
// builder's phases; it exists only for the duration of one Build call.
type buildState struct {
	doc  xmlFabric
	rows int
	cols int

	tileType map[cgra.Coordinate]cgra.Resource
	tileXML  map[cgra.Coordinate]xmlTile

	// numTracks maps a bus width to the track count every tile on that
	// bus must provide (spec §3: the fabric-wide minimum).
	numTracks map[int]int

	arena     *arena
	layers    map[int]*FabricLayer
	locations map[cgra.Resource]map[cgra.Coordinate]bool
	regSlots  map[RegSlotKey]bool
}

func newBuildState(doc xmlFabric) (*buildState, error) {
	bs := &buildState{
		doc:       doc,
		tileType:  make(map[cgra.Coordinate]cgra.Resource),
		tileXML:   make(map[cgra.Coordinate]xmlTile),
		numTracks: make(map[int]int),
		arena:     newArena(),
		layers:    make(map[int]*FabricLayer),
		locations: map[cgra.Resource]map[cgra.Coordinate]bool{
			cgra.PE:  {},
			cgra.Mem: {},
		},
		regSlots: make(map[RegSlotKey]bool),
	}

	for _, t := range doc.Tiles {
		c := cgra.Coordinate{X: t.Col, Y: t.Row}
		if t.Row+1 > bs.rows {
			bs.rows = t.Row + 1
		}
		if t.Col+1 > bs.cols {
			bs.cols = t.Col + 1
		}

		res := cgra.PE
		if t.Type == "memory_tile" {
			res = cgra.Mem
		}
		bs.tileType[c] = res
		bs.tileXML[c] = t
		bs.locations[res][c] = true

		for _, tok := range strings.Fields(t.Tracks) {
			if tok == "" {
				continue
			}
			width, count, ok := busWidthToken(tok)
			if !ok {
				continue
			}
			w := atoiMust(width)
			if existing, seen := bs.numTracks[w]; !seen || count < existing {
				bs.numTracks[w] = count
			}
		}
	}

	if len(bs.tileType) == 0 {
		return nil, fmt.Errorf("fabric: document has no tiles")
	}

	return bs, nil
}

func atoiMust(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (bs *buildState) minNumTracks() int {
	min := -1
	for _, n := range bs.numTracks {
		if min == -1 || n < min {
			min = n
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// generateLayers is phase 2: for every bus width observed in the document,
// allocate the in/out switch-box ports on every tile and every side.
func (bs *buildState) generateLayers() {
	for width, count := range bs.numTracks {
		layer := newFabricLayer(width, bs.arena)
		bs.layers[width] = layer

		for c := range bs.tileType {
			for _, side := range cgra.AllSides() {
				for t := 0; t < count; t++ {
					getOrCreateSidePort(layer, c.X, c.Y, side, t, cgra.In)
					getOrCreateSidePort(layer, c.X, c.Y, side, t, cgra.Out)
				}
			}
		}
	}
}

// neighborCoord returns the coordinate reached by stepping off tile c
// through side s, and whether that coordinate is on the fabric.
func (bs *buildState) neighborCoord(c cgra.Coordinate, s cgra.Side) (cgra.Coordinate, bool) {
	n := c
	switch s {
	case cgra.N:
		n.Y--
	case cgra.S:
		n.Y++
	case cgra.E:
		n.X++
	case cgra.W:
		n.X--
	}
	if n.X < 0 || n.X >= bs.cols || n.Y < 0 || n.Y >= bs.rows {
		return n, false
	}
	if _, ok := bs.tileType[n]; !ok {
		return n, false
	}
	return n, true
}

// connectTiles is phase 3: connect every tile's out_side port to the
// neighboring tile's in_opposite(side) port with a Track, one per track
// index. The two facing ports stay distinct Ports joined by that Track;
// they are not merged into one port. A side with no neighbor faces off the
// fabric: its inward port is
// registered as a Source and its outward port as a Sink (spec §4.B phase 3,
// ported from the Python ground truth's edge-source registration in
// generate_layer and off-edge sink synthesis in connect_tiles) -- the pair
// of fabric entry/exit points an IO module placed in column 0 or row 0
// (spec §4.D rule 6) routes through.
func (bs *buildState) connectTiles() {
	for width, count := range bs.numTracks {
		layer := bs.layers[width]
		for c := range bs.tileType {
			for _, side := range cgra.AllSides() {
				nc, ok := bs.neighborCoord(c, side)
				if !ok {
					bs.connectEdge(layer, c, side, count)
					continue
				}
				for t := 0; t < count; t++ {
					out := getOrCreateSidePort(layer, c.X, c.Y, side, t, cgra.Out)
					in := getOrCreateSidePort(layer, nc.X, nc.Y, side.Opposite(), t, cgra.In)
					layer.addTrack(out.Handle, in.Handle, width, TrackAnnotation{
						SrcWireName: out.Name,
						DstWireName: in.Name,
						Parent:      "tile",
					})
				}
			}
		}
	}
}

// connectEdge registers the pair of ports a fabric-boundary side already
// holds (allocated by generateLayers) as routable endpoints: the in-side
// port as a Source (an external signal driving into the fabric) and the
// out-side port as a Sink (a fabric signal leaving to the outside world).
func (bs *buildState) connectEdge(layer *FabricLayer, c cgra.Coordinate, side cgra.Side, count int) {
	for t := 0; t < count; t++ {
		in := getOrCreateSidePort(layer, c.X, c.Y, side, t, cgra.In)
		layer.Sources[in.Key] = in.Handle

		out := getOrCreateSidePort(layer, c.X, c.Y, side, t, cgra.Out)
		layer.Sinks[out.Key] = out.Handle
	}
}

// connectPECB is phase 4: wire each PE tile's connection-box muxes, which
// select the value driving each PE input port from the tile's own
// switch-box wires.
func (bs *buildState) connectPECB() {
	for c, res := range bs.tileType {
		if res != cgra.PE {
			continue
		}
		t := bs.tileXML[c]
		for _, cb := range t.CBs {
			width := atoiMust(strings.TrimPrefix(cb.Bus, busPrefix))
			layer := bs.layers[width]
			if layer == nil {
				continue
			}
			bs.wireMuxes(layer, c, cb.Muxes, "CB", snkIsNamedPECBPort)
		}
	}
}

// connectMemCB is phase 5: the memory-tile counterpart of connectPECB,
// wiring memory module input ports (data, address, control) to the tile's
// switch fabric.
func (bs *buildState) connectMemCB() {
	for c, res := range bs.tileType {
		if res != cgra.Mem {
			continue
		}
		t := bs.tileXML[c]
		for _, cb := range t.CBs {
			width := atoiMust(strings.TrimPrefix(cb.Bus, busPrefix))
			layer := bs.layers[width]
			if layer == nil {
				continue
			}
			bs.wireMuxes(layer, c, cb.Muxes, "CB", snkIsNamedPECBPort)
		}
	}
}

// memExposedOutputs names the memory module's status/output wires that a
// multi-row memory tile's internal SB plumbing produces for consumption by
// other tiles' CB and SB muxes (spec §6).
var memExposedOutputs = map[string]bool{
	"valid":       true,
	"almost_full": true,
	"mem_out":     true,
}

// connectMemSBInternal is phase 6: resolve a memory tile's internal named
// wires (its own multi-row plumbing, plus the exposed status outputs) and
// wire them exactly like ordinary switch-box muxes.
func (bs *buildState) connectMemSBInternal() {
	for c, res := range bs.tileType {
		if res != cgra.Mem {
			continue
		}
		t := bs.tileXML[c]
		for _, sb := range t.SBs {
			width := atoiMust(strings.TrimPrefix(sb.Bus, busPrefix))
			layer := bs.layers[width]
			if layer == nil {
				continue
			}
			rowC := cgra.Coordinate{X: c.X, Y: c.Y + sb.Row}
			bs.wireMuxes(layer, rowC, sb.Muxes, "SB-mem", func(name string) bool {
				_, _, _, ok := parseWireName(name)
				return !ok
			})
			for _, ft := range sb.FTs {
				bs.wireFT(layer, rowC, ft)
			}
		}
	}
}

// connectSB is phase 7: wire every PE tile's switch-box muxes (the general
// routing fabric) and record feedthroughs and register-legal slots.
func (bs *buildState) connectSB() {
	for c, res := range bs.tileType {
		if res != cgra.PE {
			continue
		}
		t := bs.tileXML[c]
		for _, sb := range t.SBs {
			width := atoiMust(strings.TrimPrefix(sb.Bus, busPrefix))
			layer := bs.layers[width]
			if layer == nil {
				continue
			}
			for _, mux := range sb.Muxes {
				if mux.Reg == "1" {
					if track, ok := regTrackFromSnk(mux.Snk); ok {
						bs.regSlots[RegSlotKey{X: c.X, Y: c.Y, Track: track}] = true
					}
				}
			}
			bs.wireMuxes(layer, c, sb.Muxes, "SB", func(string) bool { return false })
			for _, ft := range sb.FTs {
				bs.wireFT(layer, c, ft)
			}
		}
	}
}

// snkIsNamedPECBPort reports whether a CB mux's snk attribute names a
// plain module port (the normal case: every CB sink is a named module
// input, never a side/track wire).
func snkIsNamedPECBPort(string) bool { return true }

// wireMuxes resolves and connects one <mux> list shared by the CB and SB
// wiring phases. namedSnk decides, for a given snk token, whether it
// resolves through the named-port table (module ports, status outputs) or
// through the side/track table (switch-box wires).
func (bs *buildState) wireMuxes(layer *FabricLayer, c cgra.Coordinate, muxes []xmlMux, parent string, namedSnk func(string) bool) {
	for _, mux := range muxes {
		snk := bs.resolveEndpoint(layer, c, mux.Snk, cgra.In, namedSnk(mux.Snk))
		if snk == nil {
			continue
		}
		for _, src := range mux.Srcs {
			namedSrc := isPEOutputSrc(src) || memExposedOutputs[src]
			srcPort := bs.resolveEndpoint(layer, c, src, cgra.Out, namedSrc)
			if srcPort == nil {
				continue
			}
			layer.addTrack(srcPort.Handle, snk.Handle, layer.BusWidth, TrackAnnotation{
				SrcWireName: src,
				DstWireName: mux.Snk,
				Parent:      parent,
			})
			if namedSrc {
				layer.Sources[srcPort.Key] = srcPort.Handle
			}
		}
		if namedSnk(mux.Snk) {
			if memExposedOutputs[mux.Snk] {
				layer.Sources[snk.Key] = snk.Handle
			} else {
				layer.Sinks[snk.Key] = snk.Handle
			}
		}
	}
}

func (bs *buildState) wireFT(layer *FabricLayer, c cgra.Coordinate, ft xmlFT) {
	snk := bs.resolveEndpoint(layer, c, ft.Snk, cgra.In, false)
	src := bs.resolveEndpoint(layer, c, ft.Src, cgra.Out, isPEOutputSrc(ft.Src))
	if snk == nil || src == nil {
		return
	}
	layer.addTrack(src.Handle, snk.Handle, layer.BusWidth, TrackAnnotation{
		SrcWireName: ft.Src,
		DstWireName: ft.Snk,
		Parent:      "FT",
	})
}

// resolveEndpoint looks up (and lazily allocates) the port a mux's snk or
// src token names. If named is true, or the token does not parse as a
// side/track wire, it resolves through the named-port table at c;
// otherwise it resolves through the side/track table, honoring whichever
// direction the wire-name grammar itself encodes.
func (bs *buildState) resolveEndpoint(layer *FabricLayer, c cgra.Coordinate, token string, fallbackDir cgra.Direction, named bool) *Port {
	if !named {
		if dir, side, track, ok := parseWireName(token); ok {
			return getOrCreateSidePort(layer, c.X, c.Y, side, track, dir)
		}
		if dir, side, track, ok := parseMemWireName(token); ok {
			return getOrCreateSidePort(layer, c.X, c.Y, side, track, dir)
		}
	}
	return getOrCreateNamedPort(layer, c.X, c.Y, token, fallbackDir)
}

func getOrCreateSidePort(layer *FabricLayer, x, y int, side cgra.Side, track int, dir cgra.Direction) *Port {
	key := sideKey(x, y, side, track)
	if h, ok := layer.Ports[key]; ok {
		return layer.arena.port(h)
	}
	if h, ok := layer.Sources[key]; ok {
		return layer.arena.port(h)
	}
	if h, ok := layer.Sinks[key]; ok {
		return layer.arena.port(h)
	}
	p := layer.arena.newPort(key, dir)
	layer.Ports[key] = p.Handle
	return p
}

func getOrCreateNamedPort(layer *FabricLayer, x, y int, name string, dir cgra.Direction) *Port {
	key := namedKey(x, y, name)
	if h, ok := layer.Ports[key]; ok {
		return layer.arena.port(h)
	}
	if h, ok := layer.Sources[key]; ok {
		return layer.arena.port(h)
	}
	if h, ok := layer.Sinks[key]; ok {
		return layer.arena.port(h)
	}
	p := layer.arena.newPort(key, dir)
	layer.Ports[key] = p.Handle
	return p
}
