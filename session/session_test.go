package session

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
)

const twoTileFabricXML = `
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

const twoModuleDesignYAML = `
modules:
  - name: A
    resource: PE
  - name: B
    resource: PE
nets:
  - src: A
    src_port: pe_out_res
    dst: B
    dst_port: a
    width: 16
`

var _ = Describe("Session", func() {
	It("runs a design end to end to Routed", func() {
		f, err := fabric.NewBuilder().WithXML([]byte(twoTileFabricXML)).Build()
		Expect(err).NotTo(HaveOccurred())

		d, err := design.LoadYAML(strings.NewReader(twoModuleDesignYAML))
		Expect(err).NotTo(HaveOccurred())

		s, err := New(f, DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		result, err := s.Run(context.Background(), d, 16)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(Routed))
		Expect(result.Placement).NotTo(BeNil())
		Expect(result.Routing).NotTo(BeNil())

		a, _ := d.ModuleByName("A")
		b, _ := d.ModuleByName("B")
		_, okA := result.Placement.Lookup(a)
		_, okB := result.Placement.Lookup(b)
		Expect(okA).To(BeTrue())
		Expect(okB).To(BeTrue())

		net := d.Nets[0]
		path, ok := result.Routing.Path(net)
		Expect(ok).To(BeTrue())
		Expect(len(path.Tracks)).To(BeNumerically(">", 0))

		var buf strings.Builder
		Expect(s.WriteBitstream(&buf, d, 16, result.Routing)).To(Succeed())
		Expect(buf.String()).NotTo(BeEmpty())
	})

	It("reports Unplaceable when two same-resource modules have only one legal location", func() {
		const oneTileXML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:1" />
</fabric>
`
		f, err := fabric.NewBuilder().WithXML([]byte(oneTileXML)).Build()
		Expect(err).NotTo(HaveOccurred())

		d, err := design.LoadYAML(strings.NewReader(`
modules:
  - name: A
    resource: PE
  - name: B
    resource: PE
`))
		Expect(err).NotTo(HaveOccurred())

		s, err := New(f, DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		result, err := s.Run(context.Background(), d, 16)
		Expect(err).To(HaveOccurred())
		Expect(result.Status).To(Equal(Unplaceable))
	})

	It("rejects an unknown solver backend at construction", func() {
		f, err := fabric.NewBuilder().WithXML([]byte(twoTileFabricXML)).Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = New(f, DefaultConfig().WithSolverBackend("z3-remote"))
		Expect(err).To(HaveOccurred())
	})
})
