package fabric

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/cgra"
)

const testFabricXML = `
<fabric>
  <tile row="0" col="0" type="pe_tile_new" tracks="BUS16:2">
    <cb bus="BUS16">
      <mux snk="a"><src>in_BUS16_W_0</src></mux>
      <mux snk="b"><src>in_BUS16_N_0</src></mux>
    </cb>
    <sb bus="BUS16">
      <mux snk="out_BUS16_E_0"><src>pe_out_res</src><src>in_BUS16_W_0</src></mux>
      <mux snk="out_BUS16_S_0" reg="1"><src>pe_out_res</src></mux>
    </sb>
  </tile>
  <tile row="0" col="1" type="pe_tile_new" tracks="BUS16:2">
    <cb bus="BUS16">
      <mux snk="a"><src>in_BUS16_W_0</src></mux>
    </cb>
    <sb bus="BUS16">
      <mux snk="out_BUS16_W_0"><src>pe_out_res</src></mux>
    </sb>
  </tile>
  <tile row="1" col="0" type="memory_tile" tracks="BUS16:2">
    <cb bus="BUS16">
      <mux snk="data_in"><src>in_BUS16_N_0</src></mux>
    </cb>
    <sb bus="BUS16" row="0">
      <mux snk="valid"><src>mem_internal_0</src></mux>
    </sb>
  </tile>
  <tile row="1" col="1" type="pe_tile_new" tracks="BUS16:2" />
</fabric>
`

var _ = Describe("Builder", func() {
	var f *Fabric

	BeforeEach(func() {
		built, err := NewBuilder().WithXML([]byte(testFabricXML)).Build()
		Expect(err).NotTo(HaveOccurred())
		f = built
	})

	It("infers fabric extent and track count from the tile list", func() {
		Expect(f.Rows).To(Equal(2))
		Expect(f.Cols).To(Equal(2))
		Expect(f.NumTracks).To(Equal(2))
	})

	It("classifies tile locations by resource kind", func() {
		Expect(f.Locations[cgra.PE]).To(HaveKey(cgra.Coordinate{X: 0, Y: 0}))
		Expect(f.Locations[cgra.Mem]).To(HaveKey(cgra.Coordinate{X: 0, Y: 1}))
		Expect(f.Locations[cgra.Mem]).NotTo(HaveKey(cgra.Coordinate{X: 1, Y: 0}))
	})

	It("wires PE connection-box muxes to named sink ports", func() {
		layer := f.Layer(16)
		Expect(layer).NotTo(BeNil())

		a, ok := layer.SinkPort(namedKey(0, 0, "a"))
		Expect(ok).To(BeTrue())
		Expect(a.Inputs).To(HaveLen(1))
	})

	It("connects neighboring tiles' facing side ports with a track across a tile boundary", func() {
		layer := f.Layer(16)

		eastOut := layer.Ports[sideKey(0, 0, cgra.E, 0)]
		westIn := layer.Ports[sideKey(1, 0, cgra.W, 0)]
		Expect(eastOut).NotTo(BeZero())
		Expect(westIn).NotTo(BeZero())

		track := layer.arena.track(findConnectingTrack(layer, eastOut, westIn))
		Expect(track).NotTo(BeNil())
	})

	It("records a register-legal switch-box slot", func() {
		Expect(f.RegSlots[RegSlotKey{X: 0, Y: 0, Track: 0}]).To(BeTrue())
	})

	It("exposes a memory tile's status output as a layer source", func() {
		layer := f.Layer(16)
		_, ok := layer.SourcePort(namedKey(0, 1, "valid"))
		Expect(ok).To(BeTrue())
	})

	It("splits a register slot into a paired out/in port", func() {
		err := f.SplitRegister(16, 0, 0, 0, cgra.S)
		Expect(err).NotTo(HaveOccurred())

		layer := f.Layer(16)
		out, ok := layer.SinkPort(sideKey(0, 0, cgra.S, 0))
		Expect(ok).To(BeTrue())
		in, ok := layer.SourcePort(sideKey(0, 0, cgra.S, 0))
		Expect(ok).To(BeTrue())
		Expect(out.Handle).NotTo(Equal(in.Handle))
	})
})

func findConnectingTrack(layer *FabricLayer, src, dst PortHandle) TrackHandle {
	for _, th := range layer.Tracks {
		t := layer.arena.track(th)
		if t.Src == src && t.Dst == dst {
			return th
		}
	}
	return -1
}
