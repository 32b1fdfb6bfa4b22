package fabric

import (
	"fmt"

	"github.com/sarchlab/cgrapnr/cgra"
)

// PortHandle is a stable index into a Fabric's port arena.
type PortHandle int

// TrackHandle is a stable index into a Fabric's track arena.
type TrackHandle int

const noHandle PortHandle = -1

// PortKey identifies a port within one bus-width layer. Switch-box and
// connection-box ports are indexed by (x, y, side, track); PE and memory
// ports are indexed by (x, y, name) for named wires such as "pe_out_res",
// "a", "b", "valid", "almost_full", or "mem_out". Register slots extend the
// side+track form once a module is placed there.
type PortKey struct {
	X, Y  int
	Side  cgra.Side
	Track int // -1 when the port is named instead
	Name  string
}

func sideKey(x, y int, side cgra.Side, track int) PortKey {
	return PortKey{X: x, Y: y, Side: side, Track: track}
}

func namedKey(x, y int, name string) PortKey {
	return PortKey{X: x, Y: y, Track: -1, Name: name}
}

func (k PortKey) String() string {
	if k.Name != "" {
		return fmt.Sprintf("(%d, %d)%s", k.X, k.Y, k.Name)
	}
	return fmt.Sprintf("(%d, %d)%s[%d]", k.X, k.Y, k.Side.Name(), k.Track)
}

// Port is a single named connection point in the fabric graph. It carries
// the set of Tracks that feed into it and the set that leave it; a Port may
// later be split into a paired (out-port, in-port) to materialize a
// pipeline register cut (spec §4.B phase 8).
type Port struct {
	Handle PortHandle
	Key    PortKey
	Name   string
	Dir    cgra.Direction

	// Resource, OnPE and OnMem are not set by the builder: every port
	// carries their zero values. Ports are identified by Key instead.
	Resource cgra.Resource
	OnPE     bool
	OnMem    bool

	Inputs  []TrackHandle
	Outputs []TrackHandle
}

// Track is a directed edge between two Ports carrying bus-width bits.
// Invariant: src.Outputs contains this track's handle and dst.Inputs does
// too (enforced by the arena's addTrack, never by direct field mutation).
type Track struct {
	Handle TrackHandle
	Src    PortHandle
	Dst    PortHandle
	Width  int
}

// TrackAnnotation records the wire-name pair and owning structure a Track
// came from, consumed by the bitstream writer.
type TrackAnnotation struct {
	SrcWireName string
	DstWireName string
	// Parent is "CB" or "SB" for connection-box and switch-box muxes, and
	// also "SB-mem" (memory-tile internal muxes), "FT" (feedthroughs) or
	// "tile" (tracks between neighboring tiles).
	Parent string
}

// arena owns the Port and Track storage for one Fabric. Arena allocation
// with stable index handles keeps the cyclic Port/Track graph free of
// pointer cycles that would complicate arena teardown (spec §9).
type arena struct {
	ports  []*Port
	tracks []*Track
}

func newArena() *arena {
	return &arena{}
}

func (a *arena) newPort(key PortKey, dir cgra.Direction) *Port {
	p := &Port{
		Handle: PortHandle(len(a.ports)),
		Key:    key,
		Name:   key.String(),
		Dir:    dir,
	}
	a.ports = append(a.ports, p)
	return p
}

func (a *arena) port(h PortHandle) *Port {
	return a.ports[h]
}

func (a *arena) track(h TrackHandle) *Track {
	return a.tracks[h]
}

// addTrack creates a Track from src to dst and wires both ports' in/out
// sets, maintaining the Track-consistency invariant of spec §8.
func (a *arena) addTrack(src, dst PortHandle, width int) TrackHandle {
	t := &Track{
		Handle: TrackHandle(len(a.tracks)),
		Src:    src,
		Dst:    dst,
		Width:  width,
	}
	a.tracks = append(a.tracks, t)
	a.ports[src].Outputs = append(a.ports[src].Outputs, t.Handle)
	a.ports[dst].Inputs = append(a.ports[dst].Inputs, t.Handle)
	return t.Handle
}

// rebindTrackDst updates a previously created track to point at a new
// destination port and appends the track to that port's Inputs. The
// register split does not use it; splitRegisterPort calls the InPlace
// variants instead.
func (a *arena) rebindTrackDst(th TrackHandle, newDst PortHandle) {
	t := a.tracks[th]
	t.Dst = newDst
	a.ports[newDst].Inputs = append(a.ports[newDst].Inputs, th)
}

func (a *arena) rebindTrackSrc(th TrackHandle, newSrc PortHandle) {
	t := a.tracks[th]
	t.Src = newSrc
	a.ports[newSrc].Outputs = append(a.ports[newSrc].Outputs, th)
}

// rebindTrackSrcInPlace repoints a track's src field only, used by a
// register split where the destination port's Outputs slice has already
// been copied wholesale onto the new port.
func (a *arena) rebindTrackSrcInPlace(th TrackHandle, newSrc PortHandle) {
	a.tracks[th].Src = newSrc
}

// rebindTrackDstInPlace repoints a track's dst field only, the dst-side
// counterpart of rebindTrackSrcInPlace.
func (a *arena) rebindTrackDstInPlace(th TrackHandle, newDst PortHandle) {
	a.tracks[th].Dst = newDst
}
