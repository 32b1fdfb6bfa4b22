package routing

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/solver/refsolver"
	"github.com/sarchlab/cgrapnr/state"
)

const twoTileXML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1">
    <sb bus="BUS16">
      <mux snk="out_BUS16_E_0"><src>pe_out_res</src></mux>
    </sb>
  </tile>
  <tile row="0" col="1" type="pe_tile_new" tracks="BUS16:1">
    <cb bus="BUS16">
      <mux snk="a"><src>in_BUS16_W_0</src></mux>
    </cb>
  </tile>
</fabric>
`

var _ = Describe("Engine", func() {
	var (
		f    *fabric.Fabric
		a, b *design.Module
		net  *design.Net
		d    *design.Design
		ps   *state.PlacementState
	)

	BeforeEach(func() {
		var err error
		f, err = fabric.NewBuilder().WithXML([]byte(twoTileXML)).Build()
		Expect(err).NotTo(HaveOccurred())

		a = &design.Module{Name: "A", Resource: cgra.PE}
		b = &design.Module{Name: "B", Resource: cgra.PE}
		net = &design.Net{Src: a, SrcPort: "pe_out_res", Dst: b, DstPort: "a", Width: 16}
		a.Outputs = []*design.Net{net}
		b.Inputs = []*design.Net{net}
		d = &design.Design{Modules: []*design.Module{a, b}, Nets: []*design.Net{net}}

		ps = state.NewPlacementState()
		ps.Insert(a, state.PlacedPosition{X: 0, Y: 0})
		ps.Insert(b, state.PlacedPosition{X: 1, Y: 0})
	})

	It("routes a net across a tile boundary and records its track path", func() {
		eng := NewEngine(func() solver.Solver { return refsolver.New() }, f, DefaultConfig())
		rs, err := eng.Route(context.Background(), d, ps, 16)
		Expect(err).NotTo(HaveOccurred())

		path, ok := rs.Path(net)
		Expect(ok).To(BeTrue())
		Expect(path.Tracks).To(HaveLen(3))
		Expect(path.BusWidth).To(Equal(16))
	})

	It("reports Unroutable when the distance bound is too tight to reach", func() {
		eng := NewEngine(func() solver.Solver { return refsolver.New() }, f, Config{DistFactor: 0})
		_, err := eng.Route(context.Background(), d, ps, 16)
		Expect(err).To(HaveOccurred())
	})
})

const ioEdgeXML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1">
    <cb bus="BUS16">
      <mux snk="a"><src>in_BUS16_W_0</src></mux>
    </cb>
    <sb bus="BUS16">
      <mux snk="out_BUS16_W_0"><src>pe_out_res</src></mux>
    </sb>
  </tile>
</fabric>
`

var _ = Describe("Engine routing through an IO module", func() {
	var (
		f   *fabric.Fabric
		pe  *design.Module
		d   *design.Design
		ps  *state.PlacementState
		eng *Engine
	)

	BeforeEach(func() {
		var err error
		f, err = fabric.NewBuilder().WithXML([]byte(ioEdgeXML)).Build()
		Expect(err).NotTo(HaveOccurred())

		pe = &design.Module{Name: "P", Resource: cgra.PE}
		ps = state.NewPlacementState()
		ps.Insert(pe, state.PlacedPosition{X: 0, Y: 0})

		eng = NewEngine(func() solver.Solver { return refsolver.New() }, f, DefaultConfig())
	})

	It("routes a net from an IO source into a PE input across the fabric edge", func() {
		io := &design.Module{Name: "I", Resource: cgra.IO}
		net := &design.Net{Src: io, SrcPort: "0", Dst: pe, DstPort: "a", Width: 16}
		io.Outputs = []*design.Net{net}
		pe.Inputs = []*design.Net{net}
		d = &design.Design{Modules: []*design.Module{io, pe}, Nets: []*design.Net{net}}
		ps.Insert(io, state.PlacedPosition{X: 0, Y: 0})

		rs, err := eng.Route(context.Background(), d, ps, 16)
		Expect(err).NotTo(HaveOccurred())

		path, ok := rs.Path(net)
		Expect(ok).To(BeTrue())
		Expect(path.Tracks).To(HaveLen(1))
	})

	It("routes a net from a PE output out through an IO sink at the fabric edge", func() {
		io := &design.Module{Name: "O", Resource: cgra.IO}
		net := &design.Net{Src: pe, SrcPort: "pe_out_res", Dst: io, DstPort: "0", Width: 16}
		pe.Outputs = []*design.Net{net}
		io.Inputs = []*design.Net{net}
		d = &design.Design{Modules: []*design.Module{pe, io}, Nets: []*design.Net{net}}
		ps.Insert(io, state.PlacedPosition{X: 0, Y: 0})

		rs, err := eng.Route(context.Background(), d, ps, 16)
		Expect(err).NotTo(HaveOccurred())

		path, ok := rs.Path(net)
		Expect(ok).To(BeTrue())
		Expect(path.Tracks).To(HaveLen(1))
	})
})
