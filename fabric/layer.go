package fabric

// FabricLayer holds the ports and tracks for one bus-width routing layer
// (spec §3: typically {1, 16}).
type FabricLayer struct {
	BusWidth int

	// Sources are ports from which a module drives signals: PE output,
	// Mem output, register-output side, or a fabric-edge input port.
	Sources map[PortKey]PortHandle
	// Sinks are ports at module inputs or fabric-edge output ports.
	Sinks map[PortKey]PortHandle
	// Ports holds every port the builder allocates. A port registered in
	// Sources or Sinks stays in Ports too, so the three maps are not
	// disjoint; only splitRegisterPort removes a key from Ports.
	Ports map[PortKey]PortHandle

	Tracks []TrackHandle

	// Annotations maps every Track in this layer to its wire-name-pair and
	// owning structure, consumed by the bitstream writer.
	Annotations map[TrackHandle]TrackAnnotation

	arena *arena
}

func newFabricLayer(busWidth int, a *arena) *FabricLayer {
	return &FabricLayer{
		BusWidth:    busWidth,
		Sources:     make(map[PortKey]PortHandle),
		Sinks:       make(map[PortKey]PortHandle),
		Ports:       make(map[PortKey]PortHandle),
		Annotations: make(map[TrackHandle]TrackAnnotation),
		arena:       a,
	}
}

// Port resolves a handle back to the underlying Port value.
func (l *FabricLayer) Port(h PortHandle) *Port { return l.arena.port(h) }

// Track resolves a handle back to the underlying Track value.
func (l *FabricLayer) Track(h TrackHandle) *Track { return l.arena.track(h) }

// SourcePort looks up a source port by key, reporting whether it exists.
func (l *FabricLayer) SourcePort(k PortKey) (*Port, bool) {
	h, ok := l.Sources[k]
	if !ok {
		return nil, false
	}
	return l.arena.port(h), true
}

// SinkPort looks up a sink port by key, reporting whether it exists.
func (l *FabricLayer) SinkPort(k PortKey) (*Port, bool) {
	h, ok := l.Sinks[k]
	if !ok {
		return nil, false
	}
	return l.arena.port(h), true
}

func (l *FabricLayer) addTrack(srcH, dstH PortHandle, width int, ann TrackAnnotation) TrackHandle {
	th := l.arena.addTrack(srcH, dstH, width)
	l.Tracks = append(l.Tracks, th)
	l.Annotations[th] = ann
	return th
}

// splitRegisterPort implements spec §4.B phase 8: the Port at key is
// removed from Ports (or Sinks, if it had already been registered there)
// and replaced by a paired (out-port, in-port): existing outgoing tracks
// rebind to the new in-port, existing incoming tracks rebind to the new
// out-port, and the new ports are registered as sinks[key] (outgoing side,
// receives the upstream signal) and sources[key] (incoming side, drives the
// downstream signal).
func (l *FabricLayer) splitRegisterPort(key PortKey) (outPort, inPort *Port, err error) {
	h, ok := l.Ports[key]
	if !ok {
		h, ok = l.Sinks[key]
	}
	if !ok {
		return nil, nil, errPortNotFound(key)
	}
	orig := l.arena.port(h)
	delete(l.Ports, key)
	delete(l.Sinks, key)

	in := l.arena.newPort(key, orig.Dir)
	in.Outputs = orig.Outputs
	for _, th := range in.Outputs {
		l.arena.rebindTrackSrcInPlace(th, in.Handle)
	}

	out := l.arena.newPort(key, orig.Dir)
	out.Inputs = orig.Inputs
	for _, th := range out.Inputs {
		l.arena.rebindTrackDstInPlace(th, out.Handle)
	}

	l.Sinks[key] = out.Handle
	l.Sources[key] = in.Handle

	return out, in, nil
}
