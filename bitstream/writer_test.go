package bitstream

import (
	"strings"
	"testing"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/state"
)

func TestTextWriterRendersOneLinePerHop(t *testing.T) {
	layer := &fabric.FabricLayer{
		Annotations: map[fabric.TrackHandle]fabric.TrackAnnotation{
			0: {SrcWireName: "pe_out_res", DstWireName: "out_BUS16_E_0", Parent: "SB"},
			1: {SrcWireName: "out_BUS16_E_0", DstWireName: "in_BUS16_W_0", Parent: "tile"},
			2: {SrcWireName: "in_BUS16_W_0", DstWireName: "a", Parent: "CB"},
		},
	}

	a := &design.Module{Name: "A", Resource: cgra.PE}
	b := &design.Module{Name: "B", Resource: cgra.PE}
	net := &design.Net{Src: a, SrcPort: "pe_out_res", Dst: b, DstPort: "a", Width: 16}
	d := &design.Design{Modules: []*design.Module{a, b}, Nets: []*design.Net{net}}

	rs := state.NewRoutingState()
	if err := rs.Record(net, state.RoutedPath{
		Tracks:   []fabric.TrackHandle{0, 1, 2},
		BusWidth: 16,
	}, 0); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var buf strings.Builder
	if err := NewTextWriter().Write(&buf, d, layer, rs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	wantLines := []string{
		"A.pe_out_res->B.a 0 pe_out_res -> out_BUS16_E_0 (SB)",
		"A.pe_out_res->B.a 1 out_BUS16_E_0 -> in_BUS16_W_0 (tile)",
		"A.pe_out_res->B.a 2 in_BUS16_W_0 -> a (CB)",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("output missing line %q; got:\n%s", want, out)
		}
	}
}

func TestTextWriterSkipsUnroutedNets(t *testing.T) {
	layer := &fabric.FabricLayer{Annotations: map[fabric.TrackHandle]fabric.TrackAnnotation{}}
	a := &design.Module{Name: "A", Resource: cgra.PE}
	b := &design.Module{Name: "B", Resource: cgra.PE}
	net := &design.Net{Src: a, SrcPort: "pe_out_res", Dst: b, DstPort: "a", Width: 16}
	d := &design.Design{Modules: []*design.Module{a, b}, Nets: []*design.Net{net}}

	var buf strings.Builder
	if err := NewTextWriter().Write(&buf, d, layer, state.NewRoutingState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an unrouted design, got %q", buf.String())
	}
}
