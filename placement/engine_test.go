package placement

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/solver"
	"github.com/sarchlab/cgrapnr/solver/refsolver"
)

const grid2x2XML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1" />
  <tile row="0" col="1" type="pe_tile_new" tracks="BUS16:1" />
  <tile row="1" col="0" type="pe_tile_new" tracks="BUS16:1" />
  <tile row="1" col="1" type="pe_tile_new" tracks="BUS16:1" />
</fabric>
`

const strip1x3XML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1" />
  <tile row="0" col="1" type="pe_tile_new" tracks="BUS16:1" />
  <tile row="0" col="2" type="pe_tile_new" tracks="BUS16:1" />
</fabric>
`

const twoRegSlotXML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1">
    <sb bus="BUS16">
      <mux snk="out_BUS16_E_0" reg="1"><src>pe_out_res</src></mux>
    </sb>
  </tile>
  <tile row="0" col="1" type="pe_tile_new" tracks="BUS16:1">
    <sb bus="BUS16">
      <mux snk="out_BUS16_E_0" reg="1"><src>pe_out_res</src></mux>
    </sb>
  </tile>
</fabric>
`

func buildFabric(xmlDoc string) *fabric.Fabric {
	f, err := fabric.NewBuilder().WithXML([]byte(xmlDoc)).Build()
	Expect(err).NotTo(HaveOccurred())
	return f
}

func newRefSolverEngine(f *fabric.Fabric, cfg Config) *Engine {
	return NewEngine(func() solver.Solver { return refsolver.New() }, f, cfg)
}

var _ = Describe("Engine", func() {
	var f *fabric.Fabric

	BeforeEach(func() {
		f = buildFabric(grid2x2XML)
	})

	It("places two nearest-neighbor-connected PEs orthogonally adjacent", func() {
		a := &design.Module{Name: "A", Resource: cgra.PE}
		b := &design.Module{Name: "B", Resource: cgra.PE}
		net := &design.Net{Src: a, SrcPort: "pe_out_res", Dst: b, DstPort: "a", Width: 16}
		a.Outputs = []*design.Net{net}
		b.Inputs = []*design.Net{net}
		d := &design.Design{Modules: []*design.Module{a, b}, Nets: []*design.Net{net}}

		eng := newRefSolverEngine(f, DefaultConfig())
		ps, err := eng.Place(context.Background(), d, nil)
		Expect(err).NotTo(HaveOccurred())

		pa, ok := ps.Lookup(a)
		Expect(ok).To(BeTrue())
		pb, ok := ps.Lookup(b)
		Expect(ok).To(BeTrue())

		dist := cgra.ManhattanDist(cgra.Coordinate{X: pa.X, Y: pa.Y}, cgra.Coordinate{X: pb.X, Y: pb.Y})
		Expect(dist).To(Equal(1))
	})

	It("pins an IO module to the fabric's edge ring", func() {
		io := &design.Module{Name: "I", Resource: cgra.IO}
		d := &design.Design{Modules: []*design.Module{io}}

		eng := newRefSolverEngine(f, DefaultConfig())
		ps, err := eng.Place(context.Background(), d, nil)
		Expect(err).NotTo(HaveOccurred())

		p, ok := ps.Lookup(io)
		Expect(ok).To(BeTrue())
		Expect(p.X == 0 || p.Y == 0).To(BeTrue())
	})

	It("places two disconnected same-resource modules at distinct coordinates", func() {
		a := &design.Module{Name: "A", Resource: cgra.PE}
		b := &design.Module{Name: "B", Resource: cgra.PE}
		d := &design.Design{Modules: []*design.Module{a, b}}

		eng := newRefSolverEngine(f, DefaultConfig())
		ps, err := eng.Place(context.Background(), d, nil)
		Expect(err).NotTo(HaveOccurred())

		pa, _ := ps.Lookup(a)
		pb, _ := ps.Lookup(b)
		Expect(cgra.Coordinate{X: pa.X, Y: pa.Y}).NotTo(Equal(cgra.Coordinate{X: pb.X, Y: pb.Y}))
	})

	It("recovers via the relaxed driver policy when the strict triangle is UNSAT", func() {
		strip := buildFabric(strip1x3XML)

		a := &design.Module{Name: "A", Resource: cgra.PE}
		b := &design.Module{Name: "B", Resource: cgra.PE}
		c := &design.Module{Name: "C", Resource: cgra.PE}
		nAB := &design.Net{Src: a, SrcPort: "pe_out_res", Dst: b, DstPort: "a", Width: 16}
		nBC := &design.Net{Src: b, SrcPort: "pe_out_res", Dst: c, DstPort: "a", Width: 16}
		nAC := &design.Net{Src: a, SrcPort: "pe_out_res", Dst: c, DstPort: "b", Width: 16}
		d := &design.Design{
			Modules: []*design.Module{a, b, c},
			Nets:    []*design.Net{nAB, nBC, nAC},
		}

		eng := newRefSolverEngine(strip, DefaultConfig())
		ps, err := eng.Place(context.Background(), d, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ps.Modules()).To(HaveLen(3))
	})

	It("propagates pipeline color across a Reg-to-Reg net", func() {
		regFabric := buildFabric(twoRegSlotXML)

		r1 := &design.Module{Name: "R1", Resource: cgra.Reg}
		r2 := &design.Module{Name: "R2", Resource: cgra.Reg}
		net := &design.Net{Src: r1, SrcPort: "out", Dst: r2, DstPort: "in", Width: 16}
		r1.Outputs = []*design.Net{net}
		r2.Inputs = []*design.Net{net}
		d := &design.Design{Modules: []*design.Module{r1, r2}, Nets: []*design.Net{net}}

		eng := newRefSolverEngine(regFabric, DefaultConfig())
		ps, err := eng.Place(context.Background(), d, nil)
		Expect(err).NotTo(HaveOccurred())

		p1, ok := ps.Lookup(r1)
		Expect(ok).To(BeTrue())
		p2, ok := ps.Lookup(r2)
		Expect(ok).To(BeTrue())
		Expect(p1.Color).To(Equal(p2.Color))
		Expect(cgra.Coordinate{X: p1.X, Y: p1.Y}).NotTo(Equal(cgra.Coordinate{X: p2.X, Y: p2.Y}))
	})
})
