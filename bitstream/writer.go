// Package bitstream emits the routed design as a sequence of configured
// tracks. It stands in for the out-of-scope real bitstream serializer
// (spec.md §1): every routed Track carries a wire-name-pair/parent
// TrackAnnotation, and a Writer's job is just to render that guarantee in
// some concrete form.
package bitstream

import (
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/state"
)

// Writer renders a routed design's configuration bits to w. Implementations
// own their own format; NewTextWriter is the reference implementation.
type Writer interface {
	Write(w io.Writer, d *design.Design, layer *fabric.FabricLayer, rs *state.RoutingState) error
}

// TextWriter emits one line per configured track, ordered by net name then
// hop index, in the form:
//
//	<net> <hop> <SrcWireName> -> <DstWireName> (<Parent>)
//
// the minimal rendering that demonstrates every routed Track in the design
// carries its wire-name-pair and owning structure (spec.md §6).
type TextWriter struct{}

// NewTextWriter returns the reference Writer.
func NewTextWriter() *TextWriter { return &TextWriter{} }

func (tw *TextWriter) Write(w io.Writer, d *design.Design, layer *fabric.FabricLayer, rs *state.RoutingState) error {
	nets := rs.Nets()
	sort.Slice(nets, func(i, j int) bool { return netLabel(nets[i]) < netLabel(nets[j]) })

	for _, n := range nets {
		path, ok := rs.Path(n)
		if !ok {
			continue
		}
		for i, th := range path.Tracks {
			ann, ok := layer.Annotations[th]
			if !ok {
				return fmt.Errorf("bitstream: track %d has no annotation", th)
			}
			if _, err := fmt.Fprintf(w, "%s %d %s -> %s (%s)\n",
				netLabel(n), i, ann.SrcWireName, ann.DstWireName, ann.Parent); err != nil {
				return err
			}
		}
	}
	return nil
}

func netLabel(n *design.Net) string {
	return fmt.Sprintf("%s.%s->%s.%s", n.Src.Name, n.SrcPort, n.Dst.Name, n.DstPort)
}
